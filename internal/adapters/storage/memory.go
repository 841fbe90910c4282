package storage

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// Memory is an in-process ports.BetStore. Bets live in one slice and are
// addressed by index; the id index and owner registries hold indices, never
// copies.
type Memory struct {
	mu          sync.RWMutex
	bets        []domain.Bet
	byID        map[string]int
	byOwner     map[string][]int
	totalLocked uint64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]int),
		byOwner: make(map[string][]int),
	}
}

// LoadTotalLocked returns the last committed pool counter.
func (m *Memory) LoadTotalLocked(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalLocked, nil
}

// CommitPlacement appends the bet to the arena, indexes it by id and owner
// and stores the new counter.
func (m *Memory) CommitPlacement(_ context.Context, bet domain.Bet, totalLocked uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[bet.ID]; ok {
		return fmt.Errorf("storage.CommitPlacement: duplicate bet id %s", bet.ID)
	}
	h := len(m.bets)
	m.bets = append(m.bets, bet)
	m.byID[bet.ID] = h
	m.byOwner[bet.Owner] = append(m.byOwner[bet.Owner], h)
	m.totalLocked = totalLocked
	return nil
}

// CommitSettlement replaces an OPEN bet with its finalized state and stores
// the new counter.
func (m *Memory) CommitSettlement(_ context.Context, bet domain.Bet, totalLocked uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.byID[bet.ID]
	if !ok {
		return fmt.Errorf("storage.CommitSettlement: %s: %w", bet.ID, domain.ErrBetNotFound)
	}
	if m.bets[h].Status != domain.BetStatusOpen {
		return fmt.Errorf("storage.CommitSettlement: %s: %w", bet.ID, domain.ErrAlreadyFinalized)
	}
	m.bets[h] = bet
	m.totalLocked = totalLocked
	return nil
}

// GetBet returns a copy of the bet with the given id.
func (m *Memory) GetBet(_ context.Context, id string) (domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.byID[id]
	if !ok {
		return domain.Bet{}, fmt.Errorf("storage.GetBet: %s: %w", id, domain.ErrBetNotFound)
	}
	return m.bets[h], nil
}

// ListOwnerBets returns a page of bet ids in the owner's placement order.
// A limit of 0 or less returns everything from offset.
func (m *Memory) ListOwnerBets(_ context.Context, owner string, offset, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	handles := m.byOwner[owner]
	offset = max(offset, 0)
	if offset >= len(handles) {
		return nil, nil
	}
	end := len(handles)
	if limit > 0 {
		end = min(end, offset+limit)
	}
	ids := make([]string, 0, end-offset)
	for _, h := range handles[offset:end] {
		ids = append(ids, m.bets[h].ID)
	}
	return ids, nil
}

// CountOwnerBets returns how many bets the owner has ever placed.
func (m *Memory) CountOwnerBets(_ context.Context, owner string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byOwner[owner]), nil
}

// ListOpenBets returns every OPEN bet in placement order.
func (m *Memory) ListOpenBets(_ context.Context) ([]domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var open []domain.Bet
	for _, b := range m.bets {
		if b.Status == domain.BetStatusOpen {
			open = append(open, b)
		}
	}
	return open, nil
}

// ListUnlockable returns OPEN bets whose claim window ended before now,
// oldest window first.
func (m *Memory) ListUnlockable(_ context.Context, now time.Time, limit int) ([]domain.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Bet
	for _, b := range m.bets {
		if b.Status == domain.BetStatusOpen && now.After(b.ClaimWindowEnd) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Bet) int {
		return a.ClaimWindowEnd.Compare(b.ClaimWindowEnd)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// MemoryLedger is an in-process ports.TokenLedger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewMemoryLedger returns a ledger with the given opening balances.
func NewMemoryLedger(balances map[string]uint64) *MemoryLedger {
	l := &MemoryLedger{balances: make(map[string]uint64, len(balances))}
	for k, v := range balances {
		l.balances[k] = v
	}
	return l
}

// Balance returns the account balance, zero for unknown accounts.
func (l *MemoryLedger) Balance(_ context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// Transfer moves amt between accounts. Blank accounts are
// domain.ErrUnauthorized; an overdraft is domain.ErrInsufficientFunds.
func (l *MemoryLedger) Transfer(_ context.Context, from, to string, amt uint64) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return fmt.Errorf("storage.Transfer: %w", domain.ErrUnauthorized)
	}
	if amt == 0 || from == to {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amt {
		return fmt.Errorf("storage.Transfer: %s has %d, needs %d: %w", from, l.balances[from], amt, domain.ErrInsufficientFunds)
	}
	credited, err := domain.CheckedAdd(l.balances[to], amt)
	if err != nil {
		return fmt.Errorf("storage.Transfer: credit %s: %w", to, err)
	}
	l.balances[from] -= amt
	l.balances[to] = credited
	return nil
}

// Credit mints amount into account.
func (l *MemoryLedger) Credit(_ context.Context, account string, amt uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := domain.CheckedAdd(l.balances[account], amt)
	if err != nil {
		return 0, fmt.Errorf("storage.Credit: %s: %w", account, err)
	}
	l.balances[account] = next
	return next, nil
}
