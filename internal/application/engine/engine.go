package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// Config holds engine-level settings.
type Config struct {
	// PoolAccount is the ledger account that holds the pooled collateral.
	PoolAccount string
	// MaxBetsPerOwner bounds each owner's registry. 0 means unbounded.
	MaxBetsPerOwner int
}

// Engine is the betting engine: the only component with business rules.
//
// The pool counter is owned here and only touched under poolMu. Placement
// holds poolMu from the collateral check to the commit so two placements
// can never reserve the same collateral. Claims and unlocks take a per-bet
// lock and only enter poolMu for the payout, release and commit. Events are
// published after poolMu is released.
type Engine struct {
	cfg    Config
	oracle ports.PriceOracle
	ledger ports.TokenLedger
	clock  ports.Clock
	store  ports.BetStore
	events ports.EventPublisher
	newID  func() string

	poolMu sync.Mutex
	pool   domain.CollateralPool

	bets *keyedMutex
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPublisher sets where committed transitions are announced.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithIDGenerator replaces the uuid-based bet id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an Engine and loads the persisted pool counter.
func New(
	ctx context.Context,
	cfg Config,
	oracle ports.PriceOracle,
	ledger ports.TokenLedger,
	clock ports.Clock,
	store ports.BetStore,
	opts ...Option,
) (*Engine, error) {
	if cfg.PoolAccount == "" {
		return nil, errors.New("engine.New: pool account is required")
	}
	locked, err := store.LoadTotalLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.New: load pool: %w", err)
	}
	e := &Engine{
		cfg:    cfg,
		oracle: oracle,
		ledger: ledger,
		clock:  clock,
		store:  store,
		newID:  uuid.NewString,
		pool:   domain.CollateralPool{Account: cfg.PoolAccount, TotalLocked: locked},
		bets:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PlaceBet opens a position for owner. On any error nothing is persisted
// and no premium stays transferred.
func (e *Engine) PlaceBet(ctx context.Context, owner string, req domain.PlaceBetRequest) (domain.Bet, error) {
	if strings.TrimSpace(owner) == "" || owner == e.cfg.PoolAccount {
		return domain.Bet{}, fmt.Errorf("engine.PlaceBet: %w", domain.ErrInvalidOwner)
	}
	if err := req.Validate(); err != nil {
		return domain.Bet{}, fmt.Errorf("engine.PlaceBet: %w", err)
	}
	terms, err := req.ComputeTerms()
	if err != nil {
		return domain.Bet{}, fmt.Errorf("engine.PlaceBet: terms: %w", err)
	}

	bet, locked, err := e.reserve(ctx, owner, req, terms)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("engine.PlaceBet: %w", err)
	}

	slog.Info("bet placed",
		"bet_id", bet.ID,
		"owner", owner,
		"asset", bet.AssetID,
		"notional", bet.NotionalAmount,
		"premium", bet.PremiumAmount,
		"reserved", bet.ReservedPayout,
		"start_price", bet.StartPrice,
		"total_locked", locked,
	)
	e.publish(ctx, domain.BetEvent{
		Type:        domain.EventBetPlaced,
		BetID:       bet.ID,
		Owner:       bet.Owner,
		AssetID:     bet.AssetID,
		Notional:    bet.NotionalAmount,
		Premium:     bet.PremiumAmount,
		Reserved:    bet.ReservedPayout,
		Price:       bet.StartPrice,
		TotalLocked: locked,
		At:          bet.CreatedAt,
	})
	return bet, nil
}

// reserve runs the placement critical section: registry bound, collateral
// check, price read, premium collection and commit, all under poolMu.
func (e *Engine) reserve(ctx context.Context, owner string, req domain.PlaceBetRequest, terms domain.Terms) (domain.Bet, uint64, error) {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()

	if e.cfg.MaxBetsPerOwner > 0 {
		n, err := e.store.CountOwnerBets(ctx, owner)
		if err != nil {
			return domain.Bet{}, 0, fmt.Errorf("count bets: %w", err)
		}
		if n >= e.cfg.MaxBetsPerOwner {
			return domain.Bet{}, 0, domain.ErrRegistryFull
		}
	}

	balance, err := e.ledger.Balance(ctx, e.cfg.PoolAccount)
	if err != nil {
		return domain.Bet{}, 0, fmt.Errorf("pool balance: %w", asLedgerErr(domain.ErrLedgerUnavailable, err))
	}
	e.pool.Balance = balance
	if err := e.pool.CanReserve(terms.MaxPayout); err != nil {
		return domain.Bet{}, 0, fmt.Errorf("reserve %d: %w", terms.MaxPayout, err)
	}

	now := e.clock.Now()
	startPrice, err := e.readPrice(ctx, req.AssetID)
	if err != nil {
		return domain.Bet{}, 0, err
	}

	bet, err := domain.NewBet(e.newID(), owner, req, terms, startPrice, now)
	if err != nil {
		return domain.Bet{}, 0, fmt.Errorf("new bet: %w", err)
	}

	next := e.pool
	if err := next.Lock(terms.MaxPayout); err != nil {
		return domain.Bet{}, 0, fmt.Errorf("lock collateral: %w", err)
	}

	if terms.Premium > 0 {
		if err := e.ledger.Transfer(ctx, owner, e.cfg.PoolAccount, terms.Premium); err != nil {
			return domain.Bet{}, 0, fmt.Errorf("collect premium: %w", asLedgerErr(domain.ErrLedgerTransferFailed, err))
		}
	}
	if err := e.store.CommitPlacement(ctx, bet, next.TotalLocked); err != nil {
		e.compensate(ctx, e.cfg.PoolAccount, owner, terms.Premium, bet.ID)
		return domain.Bet{}, 0, fmt.Errorf("commit: %w", err)
	}
	e.pool = next
	return bet, next.TotalLocked, nil
}

// ClaimBet settles an expired bet for its owner inside the claim window and
// pays out at most the collateral reserved at placement.
func (e *Engine) ClaimBet(ctx context.Context, caller, betID string) (domain.Settlement, error) {
	unlock := e.bets.Lock(betID)
	defer unlock()

	bet, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: %w", err)
	}
	if caller != bet.Owner {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: %w", domain.ErrNotBetOwner)
	}

	now := e.clock.Now()
	if err := bet.CheckClaimable(now); err != nil {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: %w", err)
	}

	price, err := e.readPrice(ctx, bet.AssetID)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: %w", err)
	}
	s, err := bet.Settle(price)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: settle: %w", err)
	}

	claimed := bet
	if err := claimed.MarkClaimed(s, now); err != nil {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: %w", err)
	}

	// The whole reservation leaves the counter: the payout leaves the pool
	// through the ledger and the rest is free collateral again.
	locked, err := e.release(ctx, claimed, s.Payout)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("engine.ClaimBet: %w", err)
	}

	slog.Info("bet claimed",
		"bet_id", bet.ID,
		"owner", bet.Owner,
		"price", price,
		"winning", s.Winning,
		"payout", s.Payout,
		"released", s.Released,
		"total_locked", locked,
	)
	e.publish(ctx, domain.BetEvent{
		Type:        domain.EventBetClaimed,
		BetID:       bet.ID,
		Owner:       bet.Owner,
		AssetID:     bet.AssetID,
		Notional:    bet.NotionalAmount,
		Reserved:    bet.ReservedPayout,
		Payout:      s.Payout,
		Released:    s.Released,
		Price:       price,
		TotalLocked: locked,
		At:          now,
	})
	return s, nil
}

// UnlockExpiredBet forfeits a bet nobody claimed within its window and
// returns its reservation to the pool. Anyone may call it.
func (e *Engine) UnlockExpiredBet(ctx context.Context, betID string) (uint64, error) {
	unlock := e.bets.Lock(betID)
	defer unlock()

	bet, err := e.store.GetBet(ctx, betID)
	if err != nil {
		return 0, fmt.Errorf("engine.UnlockExpiredBet: %w", err)
	}

	now := e.clock.Now()
	if err := bet.CheckUnlockable(now); err != nil {
		return 0, fmt.Errorf("engine.UnlockExpiredBet: %w", err)
	}

	forfeited := bet
	if err := forfeited.MarkForfeited(now); err != nil {
		return 0, fmt.Errorf("engine.UnlockExpiredBet: %w", err)
	}
	locked, err := e.release(ctx, forfeited, 0)
	if err != nil {
		return 0, fmt.Errorf("engine.UnlockExpiredBet: %w", err)
	}

	slog.Info("bet forfeited",
		"bet_id", bet.ID,
		"owner", bet.Owner,
		"released", bet.ReservedPayout,
		"total_locked", locked,
	)
	e.publish(ctx, domain.BetEvent{
		Type:        domain.EventBetForfeited,
		BetID:       bet.ID,
		Owner:       bet.Owner,
		AssetID:     bet.AssetID,
		Notional:    bet.NotionalAmount,
		Reserved:    bet.ReservedPayout,
		Released:    bet.ReservedPayout,
		TotalLocked: locked,
		At:          now,
	})
	return bet.ReservedPayout, nil
}

// release pays out from the pool, takes the finalized bet's reservation
// off the counter and commits the bet with the new counter value. The
// balance and the counter only move together under poolMu.
func (e *Engine) release(ctx context.Context, finalized domain.Bet, payout uint64) (uint64, error) {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()

	next := e.pool
	if err := next.Release(finalized.ReservedPayout); err != nil {
		return 0, fmt.Errorf("release %d: %w", finalized.ReservedPayout, err)
	}
	if payout > 0 {
		if err := e.ledger.Transfer(ctx, e.cfg.PoolAccount, finalized.Owner, payout); err != nil {
			return 0, fmt.Errorf("pay out: %w", asLedgerErr(domain.ErrLedgerTransferFailed, err))
		}
	}
	if err := e.store.CommitSettlement(ctx, finalized, next.TotalLocked); err != nil {
		e.compensate(ctx, finalized.Owner, e.cfg.PoolAccount, payout, finalized.ID)
		return 0, fmt.Errorf("commit: %w", err)
	}
	e.pool = next
	return next.TotalLocked, nil
}

func (e *Engine) readPrice(ctx context.Context, assetID string) (uint64, error) {
	price, err := e.oracle.Price(ctx, assetID)
	if err != nil {
		if errors.Is(err, domain.ErrOracleUnavailable) || errors.Is(err, domain.ErrStalePrice) {
			return 0, fmt.Errorf("read price %s: %w", assetID, err)
		}
		return 0, fmt.Errorf("read price %s: %w: %w", assetID, domain.ErrOracleUnavailable, err)
	}
	if price == 0 {
		return 0, fmt.Errorf("read price %s: zero price: %w", assetID, domain.ErrOracleUnavailable)
	}
	return price, nil
}

// compensate reverses a transfer that already happened when a later step of
// the same operation failed. It runs even if ctx was cancelled.
func (e *Engine) compensate(ctx context.Context, from, to string, amount uint64, betID string) {
	if amount == 0 {
		return
	}
	if err := e.ledger.Transfer(context.WithoutCancel(ctx), from, to, amount); err != nil {
		slog.Error("compensating transfer failed",
			"bet_id", betID,
			"from", from,
			"to", to,
			"amount", amount,
			"err", err,
		)
	}
}

func (e *Engine) publish(ctx context.Context, ev domain.BetEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, ev); err != nil {
		slog.Warn("publish event failed", "type", ev.Type, "bet_id", ev.BetID, "err", err)
	}
}

// asLedgerErr classifies a ledger failure under sentinel while keeping the
// ledger's own error matchable.
func asLedgerErr(sentinel *domain.Error, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
