// Package pricecache puts a short-lived Redis cache in front of a price
// oracle so bursts of placements do not hammer the upstream feed.
package pricecache

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// NewClient creates a Redis client and pings it.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pricecache.NewClient: ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Cache is a read-through ports.PriceOracle. Each asset is a hash at
// "price:{assetID}" with fields "price" (integer units) and "ts" (unix
// nanoseconds of the upstream read).
type Cache struct {
	rdb  *redis.Client
	next ports.PriceOracle
	ttl  time.Duration
	now  func() time.Time
}

// New wraps next with a cache whose entries are served for at most ttl.
func New(rdb *redis.Client, next ports.PriceOracle, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Cache{rdb: rdb, next: next, ttl: ttl, now: time.Now}
}

func priceKey(assetID string) string {
	return "price:" + assetID
}

// Price returns a cached price younger than the TTL, or reads through to
// the wrapped oracle. Redis failures never fail the read.
func (c *Cache) Price(ctx context.Context, assetID string) (uint64, error) {
	if price, ok := c.lookup(ctx, assetID); ok {
		return price, nil
	}

	price, err := c.next.Price(ctx, assetID)
	if err != nil {
		return 0, err
	}
	c.store(ctx, assetID, price)
	return price, nil
}

func (c *Cache) lookup(ctx context.Context, assetID string) (uint64, bool) {
	vals, err := c.rdb.HGetAll(ctx, priceKey(assetID)).Result()
	if err != nil {
		slog.Debug("price cache read failed", "asset", assetID, "err", err)
		return 0, false
	}
	if len(vals) == 0 {
		return 0, false
	}
	price, err := strconv.ParseUint(vals["price"], 10, 64)
	if err != nil || price == 0 {
		return 0, false
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, false
	}
	if c.now().Sub(time.Unix(0, tsNano)) > c.ttl {
		return 0, false
	}
	return price, true
}

func (c *Cache) store(ctx context.Context, assetID string, price uint64) {
	key := priceKey(assetID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"price": strconv.FormatUint(price, 10),
		"ts":    strconv.FormatInt(c.now().UnixNano(), 10),
	})
	pipe.Expire(ctx, key, 2*c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("price cache write failed", "asset", assetID, "err", err)
	}
}

var _ ports.PriceOracle = (*Cache)(nil)
