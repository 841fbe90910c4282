package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Sweeper SweeperConfig `yaml:"sweeper"`
	Quote   QuoteConfig   `yaml:"quote"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controls the betting engine.
type EngineConfig struct {
	PoolAccount     string `yaml:"pool_account"`
	MaxBetsPerOwner int    `yaml:"max_bets_per_owner"` // 0 = unbounded
}

// OracleConfig points at the spot price feed.
type OracleConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Currency       string  `yaml:"currency"`
	PriceDecimals  int32   `yaml:"price_decimals"` // integer units per 1.0 = 10^price_decimals
	MaxAgeSeconds  int     `yaml:"max_age_seconds"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
	APIKey         string  `yaml:"api_key"`
}

// RedisConfig enables the price cache when Addr is set.
type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	PoolSize        int    `yaml:"pool_size"`
	TLS             bool   `yaml:"tls"`
	PriceTTLSeconds int    `yaml:"price_ttl_seconds"`
}

// KafkaConfig enables lifecycle events when Brokers is set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// StorageConfig controls where bets and the ledger are persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// HTTPConfig controls the REST API listener.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	MaxPage int    `yaml:"max_page"`
}

// MetricsConfig controls the /metrics listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// SweeperConfig controls the expired-bet sweeper.
type SweeperConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
	Workers         int  `yaml:"workers"`
	BatchSize       int  `yaml:"batch_size"`
}

// QuoteConfig holds the premium quote inputs.
type QuoteConfig struct {
	Volatility   float64 `yaml:"volatility"`
	TenorDays    float64 `yaml:"tenor_days"`
	InterestRate float64 `yaml:"interest_rate"`
}

// LogConfig controls logging format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file at path and the .env file if present.
// Environment variables override the YAML values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse builds a Config from YAML bytes, applying env overrides and
// defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SweepInterval returns the sweep interval as a time.Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalSeconds) * time.Second
}

// OracleMaxAge returns the staleness bound, 0 when disabled.
func (c *Config) OracleMaxAge() time.Duration {
	return time.Duration(c.Oracle.MaxAgeSeconds) * time.Second
}

// OracleTimeout returns the per-request timeout of the price feed.
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// PriceTTL returns how long a cached price is served.
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Redis.PriceTTLSeconds) * time.Second
}

// QuoteTenorYears returns the quote tenor in years.
func (c *Config) QuoteTenorYears() float64 {
	return c.Quote.TenorDays / 365
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Engine.PoolAccount) == "" {
		return fmt.Errorf("engine.pool_account is required")
	}
	if c.Engine.MaxBetsPerOwner < 0 {
		return fmt.Errorf("engine.max_bets_per_owner must be >= 0")
	}
	if c.Oracle.PriceDecimals < 0 || c.Oracle.PriceDecimals > 18 {
		return fmt.Errorf("oracle.price_decimals must be in [0, 18], got %d", c.Oracle.PriceDecimals)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}

// applyEnvOverrides overrides values with environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BLINKBET_POOL_ACCOUNT"); v != "" {
		cfg.Engine.PoolAccount = v
	}
	if v := os.Getenv("BLINKBET_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("BLINKBET_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("BLINKBET_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("BLINKBET_ORACLE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("BLINKBET_ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("BLINKBET_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BLINKBET_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BLINKBET_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("BLINKBET_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("BLINKBET_MAX_BETS_PER_OWNER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxBetsPerOwner = n
		}
	}
}

// setDefaults fills required values with sensible defaults.
func setDefaults(cfg *Config) {
	if cfg.Engine.PoolAccount == "" {
		cfg.Engine.PoolAccount = "pool"
	}
	if cfg.Oracle.Currency == "" {
		cfg.Oracle.Currency = "usd"
	}
	if cfg.Oracle.TimeoutSeconds <= 0 {
		cfg.Oracle.TimeoutSeconds = 5
	}
	if cfg.Redis.PriceTTLSeconds <= 0 {
		cfg.Redis.PriceTTLSeconds = 5
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "blinkbet.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxPage <= 0 {
		cfg.HTTP.MaxPage = 100
	}
	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 60
	}
	if cfg.Sweeper.BatchSize <= 0 {
		cfg.Sweeper.BatchSize = 500
	}
	if cfg.Quote.Volatility <= 0 {
		cfg.Quote.Volatility = 0.75
	}
	if cfg.Quote.TenorDays <= 0 {
		cfg.Quote.TenorDays = 30
	}
	if cfg.Quote.InterestRate == 0 {
		cfg.Quote.InterestRate = 0.04
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
