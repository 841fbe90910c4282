package ports

import (
	"context"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// Notifier presents the state of the pool and its bets to an operator.
type Notifier interface {
	// Notify prints the pool summary followed by the given bets.
	Notify(ctx context.Context, pool domain.PoolStatus, bets []domain.Bet) error
}
