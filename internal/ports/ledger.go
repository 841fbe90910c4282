package ports

import "context"

// TokenLedger moves value between accounts. Each transfer is atomic: it
// either fully happens or fails with nothing moved.
type TokenLedger interface {
	// Transfer moves amount from one account to another. It fails with
	// domain.ErrInsufficientFunds or domain.ErrUnauthorized.
	Transfer(ctx context.Context, from, to string, amount uint64) error

	// Balance returns the current balance of an account (zero if unknown).
	Balance(ctx context.Context, account string) (uint64, error)
}
