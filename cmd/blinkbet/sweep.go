package main

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/blinkbet/config"
	"github.com/alejandrodnm/blinkbet/internal/adapters/clock"
	"github.com/alejandrodnm/blinkbet/internal/application/sweeper"
)

// runSweep forfeits every bet whose claim window is over, once.
func runSweep(ctx context.Context, cfg *config.Config, b *backend) error {
	rt, err := buildRuntime(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer rt.Close()

	sw := sweeper.New(sweeperConfig(cfg, true), rt.engine, b.store, clock.System{})
	res, err := sw.RunOnce(ctx)
	if err != nil {
		return err
	}
	slog.Info("sweep done",
		"due", res.Due,
		"forfeited", res.Forfeited,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"released", res.Released,
	)
	return nil
}
