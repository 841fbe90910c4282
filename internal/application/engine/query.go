package engine

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// GetBet returns a bet by id.
func (e *Engine) GetBet(ctx context.Context, id string) (domain.Bet, error) {
	bet, err := e.store.GetBet(ctx, id)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("engine.GetBet: %w", err)
	}
	return bet, nil
}

// BetPage is one page of an owner's registry.
type BetPage struct {
	Owner  string
	Total  int
	Offset int
	Bets   []domain.Bet
}

// ListBets returns the owner's bets in placement order, including finalized
// ones. A limit of 0 or less returns everything from offset.
func (e *Engine) ListBets(ctx context.Context, owner string, offset, limit int) (BetPage, error) {
	if offset < 0 {
		offset = 0
	}
	total, err := e.store.CountOwnerBets(ctx, owner)
	if err != nil {
		return BetPage{}, fmt.Errorf("engine.ListBets: count: %w", err)
	}
	page := BetPage{Owner: owner, Total: total, Offset: offset, Bets: []domain.Bet{}}
	if offset >= total {
		return page, nil
	}
	if limit <= 0 {
		limit = total - offset
	}
	ids, err := e.store.ListOwnerBets(ctx, owner, offset, limit)
	if err != nil {
		return BetPage{}, fmt.Errorf("engine.ListBets: list: %w", err)
	}
	for _, id := range ids {
		bet, err := e.store.GetBet(ctx, id)
		if err != nil {
			return BetPage{}, fmt.Errorf("engine.ListBets: get %s: %w", id, err)
		}
		page.Bets = append(page.Bets, bet)
	}
	return page, nil
}

// PoolStatus reports the pool balance and counter as one consistent view.
func (e *Engine) PoolStatus(ctx context.Context) (domain.PoolStatus, error) {
	pool, err := e.snapshot(ctx)
	if err != nil {
		return domain.PoolStatus{}, fmt.Errorf("engine.PoolStatus: %w", err)
	}

	open, err := e.store.ListOpenBets(ctx)
	if err != nil {
		return domain.PoolStatus{}, fmt.Errorf("engine.PoolStatus: open bets: %w", err)
	}

	st := domain.PoolStatus{
		Account:     pool.Account,
		Balance:     pool.Balance,
		TotalLocked: pool.TotalLocked,
		OpenBets:    len(open),
	}
	if avail, err := pool.Available(); err == nil {
		st.Available = avail
	}
	return st, nil
}

// snapshot reads the ledger balance and the counter under the same lock.
func (e *Engine) snapshot(ctx context.Context) (domain.CollateralPool, error) {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()

	pool := e.pool
	balance, err := e.ledger.Balance(ctx, pool.Account)
	if err != nil {
		return domain.CollateralPool{}, asLedgerErr(domain.ErrLedgerUnavailable, err)
	}
	pool.Balance = balance
	return pool, nil
}

// OpenBets returns every OPEN bet.
func (e *Engine) OpenBets(ctx context.Context) ([]domain.Bet, error) {
	bets, err := e.store.ListOpenBets(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.OpenBets: %w", err)
	}
	return bets, nil
}

// CheckInvariants verifies that the counter equals the sum of open
// reservations and that the pool covers it. It holds the pool lock so no
// transition can interleave.
func (e *Engine) CheckInvariants(ctx context.Context) error {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()

	open, err := e.store.ListOpenBets(ctx)
	if err != nil {
		return fmt.Errorf("engine.CheckInvariants: open bets: %w", err)
	}
	var sum uint64
	for _, b := range open {
		if sum, err = domain.CheckedAdd(sum, b.ReservedPayout); err != nil {
			return fmt.Errorf("engine.CheckInvariants: %w: %w", domain.ErrInvariantViolation, err)
		}
	}
	if sum != e.pool.TotalLocked {
		return fmt.Errorf("engine.CheckInvariants: %w: total locked %d, open reservations %d",
			domain.ErrInvariantViolation, e.pool.TotalLocked, sum)
	}
	stored, err := e.store.LoadTotalLocked(ctx)
	if err != nil {
		return fmt.Errorf("engine.CheckInvariants: load pool: %w", err)
	}
	if stored != e.pool.TotalLocked {
		return fmt.Errorf("engine.CheckInvariants: %w: stored total locked %d, in memory %d",
			domain.ErrInvariantViolation, stored, e.pool.TotalLocked)
	}
	balance, err := e.ledger.Balance(ctx, e.pool.Account)
	if err != nil {
		return fmt.Errorf("engine.CheckInvariants: %w", asLedgerErr(domain.ErrLedgerUnavailable, err))
	}
	if balance < e.pool.TotalLocked {
		return fmt.Errorf("engine.CheckInvariants: %w: balance %d below total locked %d",
			domain.ErrInvariantViolation, balance, e.pool.TotalLocked)
	}
	return nil
}
