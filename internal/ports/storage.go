package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// BetStore persists bets, the per-owner registry and the pool counter.
// Commit methods are atomic: either every write lands or none does.
type BetStore interface {
	// LoadTotalLocked returns the persisted pool counter.
	LoadTotalLocked(ctx context.Context) (uint64, error)

	// CommitPlacement inserts an OPEN bet, appends its id to the owner's
	// registry and stores the new pool counter.
	CommitPlacement(ctx context.Context, bet domain.Bet, totalLocked uint64) error

	// CommitSettlement stores a finalized bet and the new pool counter. It
	// fails with domain.ErrAlreadyFinalized if the stored bet is not OPEN.
	CommitSettlement(ctx context.Context, bet domain.Bet, totalLocked uint64) error

	// GetBet returns domain.ErrBetNotFound for unknown ids.
	GetBet(ctx context.Context, id string) (domain.Bet, error)

	// ListOwnerBets returns a page of the owner's registry in placement order.
	ListOwnerBets(ctx context.Context, owner string, offset, limit int) ([]string, error)

	// CountOwnerBets returns the length of the owner's registry.
	CountOwnerBets(ctx context.Context, owner string) (int, error)

	// ListOpenBets returns every OPEN bet.
	ListOpenBets(ctx context.Context) ([]domain.Bet, error)

	// ListUnlockable returns OPEN bets whose claim window ended before now.
	ListUnlockable(ctx context.Context, now time.Time, limit int) ([]domain.Bet, error)

	// Close releases the underlying resources.
	Close() error
}
