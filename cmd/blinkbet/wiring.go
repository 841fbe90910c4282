package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alejandrodnm/blinkbet/config"
	"github.com/alejandrodnm/blinkbet/internal/adapters/clock"
	"github.com/alejandrodnm/blinkbet/internal/adapters/events"
	"github.com/alejandrodnm/blinkbet/internal/adapters/metrics"
	"github.com/alejandrodnm/blinkbet/internal/adapters/pricecache"
	"github.com/alejandrodnm/blinkbet/internal/adapters/pricefeed"
	"github.com/alejandrodnm/blinkbet/internal/adapters/storage"
	"github.com/alejandrodnm/blinkbet/internal/application/engine"
	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// fundingLedger is a ledger that can also mint units into an account.
type fundingLedger interface {
	ports.TokenLedger
	Credit(ctx context.Context, account string, amt uint64) (uint64, error)
}

// backend groups the bet store and the ledger it shares a database with.
type backend struct {
	store  ports.BetStore
	ledger fundingLedger
}

func (b *backend) Close() error { return b.store.Close() }

func openBackend(cfg *config.Config, dryRun bool) (*backend, error) {
	if dryRun {
		return &backend{
			store:  storage.NewMemory(),
			ledger: storage.NewMemoryLedger(nil),
		}, nil
	}
	s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	return &backend{store: s, ledger: s.Ledger()}, nil
}

// runtime holds the collaborators shared by the long-running modes.
type runtime struct {
	engine   *engine.Engine
	oracle   ports.PriceOracle
	recorder *metrics.Recorder
	closers  []io.Closer
}

func (rt *runtime) Close() {
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
}

func buildRuntime(ctx context.Context, cfg *config.Config, b *backend) (*runtime, error) {
	rt := &runtime{recorder: metrics.NewRecorder()}

	var oracle ports.PriceOracle = pricefeed.NewClient(pricefeed.Config{
		BaseURL:    cfg.Oracle.BaseURL,
		Currency:   cfg.Oracle.Currency,
		Decimals:   cfg.Oracle.PriceDecimals,
		MaxAge:     cfg.OracleMaxAge(),
		Timeout:    cfg.OracleTimeout(),
		RatePerSec: cfg.Oracle.RatePerSecond,
		Burst:      cfg.Oracle.Burst,
		APIKey:     cfg.Oracle.APIKey,
	})

	if cfg.Redis.Addr != "" {
		rdb, err := pricecache.NewClient(ctx, pricecache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: 1,
			TLSEnabled: cfg.Redis.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("buildRuntime: %w", err)
		}
		rt.closers = append(rt.closers, rdb)
		oracle = pricecache.New(rdb, oracle, cfg.PriceTTL())
		slog.Info("price cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.PriceTTL())
	}
	rt.oracle = oracle

	pubs := events.Multi{rt.recorder}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), 0)
		rt.closers = append(rt.closers, kp)
		pubs = append(pubs, kp)
		slog.Info("kafka events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	eng, err := engine.New(ctx,
		engine.Config{
			PoolAccount:     cfg.Engine.PoolAccount,
			MaxBetsPerOwner: cfg.Engine.MaxBetsPerOwner,
		},
		oracle, b.ledger, clock.System{}, b.store,
		engine.WithPublisher(pubs),
	)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("buildRuntime: %w", err)
	}
	rt.engine = eng

	status, err := eng.PoolStatus(ctx)
	if err != nil {
		slog.Warn("could not read pool status at startup", "err", err)
	} else {
		rt.recorder.SetTotalLocked(status.TotalLocked)
		slog.Info("pool loaded",
			"account", status.Account,
			"balance", status.Balance,
			"total_locked", status.TotalLocked,
			"open_bets", status.OpenBets,
		)
	}
	return rt, nil
}
