package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// Config holds the sweeper settings.
type Config struct {
	Interval  time.Duration
	Workers   int  // goroutines unlocking in parallel (0 = NumCPU*2)
	BatchSize int  // max bets per cycle (0 = all due)
	Once      bool // Run does a single cycle and returns; unlocks still happen
}

// Unlocker forfeits one bet whose claim window is over.
type Unlocker interface {
	UnlockExpiredBet(ctx context.Context, betID string) (uint64, error)
}

// DueLister finds OPEN bets whose claim window ended before now.
type DueLister interface {
	ListUnlockable(ctx context.Context, now time.Time, limit int) ([]domain.Bet, error)
}

// Sweeper periodically forfeits unclaimed bets so their collateral returns
// to the pool. It only calls the public unlock operation; anyone could do
// the same.
type Sweeper struct {
	cfg      Config
	unlocker Unlocker
	due      DueLister
	clock    ports.Clock
}

// New creates a Sweeper with its dependencies injected.
func New(cfg Config, unlocker Unlocker, due DueLister, clock ports.Clock) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Sweeper{cfg: cfg, unlocker: unlocker, due: due, clock: clock}
}

// Result summarizes one sweep cycle.
type Result struct {
	Due       int
	Forfeited int
	Skipped   int // finalized by someone else in the meantime
	Failed    int
	Released  uint64
}

// Run sweeps until ctx is cancelled. With Once it runs one real cycle and
// returns.
func (s *Sweeper) Run(ctx context.Context) error {
	slog.Info("sweeper starting",
		"interval", s.cfg.Interval,
		"workers", s.cfg.Workers,
		"batch", s.cfg.BatchSize,
		"once", s.cfg.Once,
	)

	if _, err := s.runCycle(ctx); err != nil {
		slog.Error("sweep cycle failed", "err", err)
		if s.cfg.Once {
			return err
		}
	}

	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.runCycle(ctx); err != nil {
				slog.Error("sweep cycle failed", "err", err)
			}
		}
	}
}

// RunOnce performs exactly one sweep cycle.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	return s.runCycle(ctx)
}

func (s *Sweeper) runCycle(ctx context.Context) (Result, error) {
	started := time.Now()

	bets, err := s.due.ListUnlockable(ctx, s.clock.Now(), s.cfg.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("sweeper.runCycle: list due: %w", err)
	}
	if len(bets) == 0 {
		slog.Debug("sweep cycle: nothing due")
		return Result{}, nil
	}

	res := unlockConcurrent(ctx, s.unlocker, bets, s.cfg.Workers)

	slog.Info("sweep cycle complete",
		"due", res.Due,
		"forfeited", res.Forfeited,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"released", res.Released,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return res, nil
}
