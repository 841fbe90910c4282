package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

type outcome struct {
	released uint64
	err      error
}

// unlockConcurrent forfeits bets with a pool of workers. Bets already
// finalized by a concurrent claim or unlock count as skipped.
//
// If workers <= 0 it uses runtime.NumCPU() × 2.
func unlockConcurrent(ctx context.Context, unlocker Unlocker, bets []domain.Bet, workers int) Result {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	workCh := make(chan string, len(bets))
	resultCh := make(chan outcome, len(bets))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range workCh {
				released, err := unlocker.UnlockExpiredBet(ctx, id)
				if err != nil && !errors.Is(err, domain.ErrAlreadyFinalized) {
					slog.Warn("unlock failed", "bet_id", id, "err", err)
				}
				resultCh <- outcome{released: released, err: err}
			}
		}()
	}

	for _, b := range bets {
		workCh <- b.ID
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	res := Result{Due: len(bets)}
	for o := range resultCh {
		switch {
		case o.err == nil:
			res.Forfeited++
			res.Released += o.released
		case errors.Is(o.err, domain.ErrAlreadyFinalized):
			res.Skipped++
		default:
			res.Failed++
		}
	}
	return res
}
