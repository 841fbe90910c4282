package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/blinkbet/config"
	"github.com/alejandrodnm/blinkbet/internal/adapters/notify"
)

// runReport prints the pool and every open bet.
func runReport(ctx context.Context, cfg *config.Config, b *backend, format string) error {
	rt, err := buildRuntime(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer rt.Close()

	status, err := rt.engine.PoolStatus(ctx)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	open, err := rt.engine.OpenBets(ctx)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}
	return notify.NewConsole(notify.Format(format)).Notify(ctx, status, open)
}

// runCheck verifies the pool accounting against the stored bets.
func runCheck(ctx context.Context, cfg *config.Config, b *backend) error {
	rt, err := buildRuntime(ctx, cfg, b)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.engine.CheckInvariants(ctx); err != nil {
		return fmt.Errorf("runCheck: %w", err)
	}
	slog.Info("pool invariants hold")
	return nil
}
