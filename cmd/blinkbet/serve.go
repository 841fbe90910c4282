package main

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/blinkbet/config"
	"github.com/alejandrodnm/blinkbet/internal/adapters/clock"
	"github.com/alejandrodnm/blinkbet/internal/adapters/httpapi"
	"github.com/alejandrodnm/blinkbet/internal/adapters/metrics"
	"github.com/alejandrodnm/blinkbet/internal/application/sweeper"
)

// runServe runs the REST API, the metrics listener and the sweeper until
// ctx is cancelled or one of them fails.
func runServe(ctx context.Context, cfg *config.Config, b *backend) error {
	rt, err := buildRuntime(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer rt.Close()

	api := &httpapi.API{
		Bets:   rt.engine,
		Oracle: rt.oracle,
		Quote: httpapi.QuoteConfig{
			Volatility:   cfg.Quote.Volatility,
			TenorYears:   cfg.QuoteTenorYears(),
			InterestRate: cfg.Quote.InterestRate,
		},
		Observer: rt.recorder,
		MaxPage:  cfg.HTTP.MaxPage,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpapi.Serve(ctx, cfg.HTTP.Addr, api.Router())
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Addr, rt.recorder)
		})
	}
	if cfg.Sweeper.Enabled {
		sw := sweeper.New(sweeperConfig(cfg, false), rt.engine, b.store, clock.System{})
		g.Go(func() error {
			return sw.Run(ctx)
		})
	}
	return g.Wait()
}

func sweeperConfig(cfg *config.Config, once bool) sweeper.Config {
	return sweeper.Config{
		Interval:  cfg.SweepInterval(),
		Workers:   cfg.Sweeper.Workers,
		BatchSize: cfg.Sweeper.BatchSize,
		Once:      once,
	}
}
