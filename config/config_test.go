package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/blinkbet/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "pool", cfg.Engine.PoolAccount)
	assert.Equal(t, "usd", cfg.Oracle.Currency)
	assert.Equal(t, "blinkbet.db", cfg.Storage.DSN)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Equal(t, 5*time.Second, cfg.OracleTimeout())
	assert.Zero(t, cfg.OracleMaxAge())
	assert.InDelta(t, 30.0/365.0, cfg.QuoteTenorYears(), 1e-12)
	assert.InDelta(t, 0.75, cfg.Quote.Volatility, 1e-12)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_YAML(t *testing.T) {
	yml := `
engine:
  pool_account: treasury
  max_bets_per_owner: 50
oracle:
  base_url: http://feed.local
  price_decimals: 2
  max_age_seconds: 120
kafka:
  brokers: [k1:9092, k2:9092]
  topic: bets
sweeper:
  enabled: true
  interval_seconds: 15
  workers: 4
`
	cfg, err := config.Parse([]byte(yml))
	require.NoError(t, err)
	assert.Equal(t, "treasury", cfg.Engine.PoolAccount)
	assert.Equal(t, 50, cfg.Engine.MaxBetsPerOwner)
	assert.Equal(t, int32(2), cfg.Oracle.PriceDecimals)
	assert.Equal(t, 2*time.Minute, cfg.OracleMaxAge())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BLINKBET_POOL_ACCOUNT", "vault")
	t.Setenv("BLINKBET_KAFKA_BROKERS", "a:1, b:2,")
	t.Setenv("BLINKBET_KAFKA_TOPIC", "events")
	t.Setenv("BLINKBET_MAX_BETS_PER_OWNER", "7")

	cfg, err := config.Parse([]byte("engine:\n  pool_account: ignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "vault", cfg.Engine.PoolAccount)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.Engine.MaxBetsPerOwner)
}

func TestParse_Invalid(t *testing.T) {
	_, err := config.Parse([]byte("kafka:\n  brokers: [k:9092]\n"))
	assert.ErrorContains(t, err, "kafka.topic")

	_, err = config.Parse([]byte("oracle:\n  price_decimals: 40\n"))
	assert.ErrorContains(t, err, "price_decimals")

	_, err = config.Parse([]byte("engine: [not, a, map]"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  dsn: \":memory:\"\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
