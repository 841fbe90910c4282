package domain

import (
	"strings"
	"time"
)

const (
	// MaxPremiumBps caps the premium at 10% of notional.
	MaxPremiumBps uint64 = 1_000

	// BetTenor is the time from placement to expiry.
	BetTenor = 24 * time.Hour
	// ClaimWindow is how long after expiry the owner may still claim.
	ClaimWindow = 24 * time.Hour
)

// BetStatus represents the lifecycle of a position. OPEN is the only
// non-terminal state.
type BetStatus string

const (
	BetStatusOpen      BetStatus = "OPEN"
	BetStatusClaimed   BetStatus = "CLAIMED"
	BetStatusForfeited BetStatus = "FORFEITED"
)

// IsTerminal reports whether no further transition is allowed.
func (s BetStatus) IsTerminal() bool {
	return s == BetStatusClaimed || s == BetStatusForfeited
}

// PlaceBetRequest carries the caller's parameters for a new position.
// Percentages are in basis points.
type PlaceBetRequest struct {
	NotionalAmount    uint64
	PremiumPercentage uint64
	StrikePercentage  uint64
	CapPercentage     uint64
	AssetID           string
}

// Validate checks the request shape before any side effect happens.
func (r PlaceBetRequest) Validate() error {
	if r.NotionalAmount == 0 {
		return ErrInvalidNotional
	}
	if r.PremiumPercentage > MaxPremiumBps {
		return ErrPremiumTooHigh
	}
	if r.PremiumPercentage == 0 {
		return ErrPremiumTooLow
	}
	if r.CapPercentage <= r.StrikePercentage {
		return ErrInvalidStrikeCap
	}
	if strings.TrimSpace(r.AssetID) == "" {
		return ErrInvalidAsset
	}
	return nil
}

// Terms are the amounts fixed at placement that do not depend on price.
type Terms struct {
	Premium   uint64
	MaxPayout uint64
}

// ComputeTerms derives the premium and the worst-case payout to reserve.
func (r PlaceBetRequest) ComputeTerms() (Terms, error) {
	premium, err := ApplyBps(r.NotionalAmount, r.PremiumPercentage)
	if err != nil {
		return Terms{}, err
	}
	spread, err := CheckedSub(r.CapPercentage, r.StrikePercentage)
	if err != nil {
		return Terms{}, err
	}
	maxPayout, err := ApplyBps(r.NotionalAmount, spread)
	if err != nil {
		return Terms{}, err
	}
	return Terms{Premium: premium, MaxPayout: maxPayout}, nil
}

// Bet is one owner's capped call-spread position.
type Bet struct {
	ID                string
	Owner             string
	AssetID           string
	NotionalAmount    uint64
	PremiumPercentage uint64
	PremiumAmount     uint64
	StartPrice        uint64
	StrikePrice       uint64
	StrikePercentage  uint64
	CapPercentage     uint64
	ReservedPayout    uint64
	CreatedAt         time.Time
	Expiry            time.Time
	ClaimWindowEnd    time.Time
	Status            BetStatus

	// Settlement record; zero while the bet is open.
	SettledAt       *time.Time
	SettlementPrice uint64
	Payout          uint64
	Released        uint64
}

// NewBet builds an OPEN bet from a validated request, its terms and the
// price read at placement.
func NewBet(id, owner string, req PlaceBetRequest, terms Terms, startPrice uint64, now time.Time) (Bet, error) {
	strikePrice, err := ApplyBps(startPrice, req.StrikePercentage)
	if err != nil {
		return Bet{}, err
	}
	expiry := now.Add(BetTenor)
	return Bet{
		ID:                id,
		Owner:             owner,
		AssetID:           req.AssetID,
		NotionalAmount:    req.NotionalAmount,
		PremiumPercentage: req.PremiumPercentage,
		PremiumAmount:     terms.Premium,
		StartPrice:        startPrice,
		StrikePrice:       strikePrice,
		StrikePercentage:  req.StrikePercentage,
		CapPercentage:     req.CapPercentage,
		ReservedPayout:    terms.MaxPayout,
		CreatedAt:         now,
		Expiry:            expiry,
		ClaimWindowEnd:    expiry.Add(ClaimWindow),
		Status:            BetStatusOpen,
	}, nil
}

// CheckClaimable returns the lifecycle error that forbids a claim at now,
// or nil.
func (b Bet) CheckClaimable(now time.Time) error {
	if b.Status != BetStatusOpen {
		return ErrAlreadyFinalized
	}
	if !now.After(b.Expiry) {
		return ErrNotYetExpired
	}
	if now.After(b.ClaimWindowEnd) {
		return ErrClaimWindowClosed
	}
	return nil
}

// CheckUnlockable returns the lifecycle error that forbids forfeiture at
// now, or nil.
func (b Bet) CheckUnlockable(now time.Time) error {
	if b.Status != BetStatusOpen {
		return ErrAlreadyFinalized
	}
	if !now.After(b.ClaimWindowEnd) {
		return ErrClaimWindowNotYetOver
	}
	return nil
}

// Settlement is the outcome of resolving a bet against a price.
type Settlement struct {
	BetID       string
	Price       uint64
	CapPrice    uint64
	PayoutPrice uint64
	Winning     bool
	// Payout goes to the owner.
	Payout uint64
	// Released is the part of the reservation returned to free collateral.
	Released uint64
}

// Settle computes the payout at price pc. Payout never exceeds
// ReservedPayout.
func (b Bet) Settle(pc uint64) (Settlement, error) {
	s := Settlement{BetID: b.ID, Price: pc}

	capPrice, err := ApplyBps(b.StartPrice, b.CapPercentage)
	if err != nil {
		return Settlement{}, err
	}
	s.CapPrice = capPrice

	if pc < b.StrikePrice {
		s.Released = b.ReservedPayout
		return s, nil
	}
	s.Winning = true

	s.PayoutPrice = min(pc, capPrice)
	delta, err := CheckedSub(s.PayoutPrice, b.StrikePrice)
	if err != nil {
		return Settlement{}, err
	}
	payout, err := MulDiv(b.NotionalAmount, delta, b.StartPrice)
	if err != nil {
		return Settlement{}, err
	}
	s.Payout = min(payout, b.ReservedPayout)
	s.Released = b.ReservedPayout - s.Payout
	return s, nil
}

// MarkClaimed records the settlement and moves the bet to CLAIMED.
func (b *Bet) MarkClaimed(s Settlement, now time.Time) error {
	if b.Status != BetStatusOpen {
		return ErrAlreadyFinalized
	}
	b.Status = BetStatusClaimed
	b.SettledAt = &now
	b.SettlementPrice = s.Price
	b.Payout = s.Payout
	b.Released = s.Released
	return nil
}

// MarkForfeited returns the whole reservation and moves the bet to
// FORFEITED.
func (b *Bet) MarkForfeited(now time.Time) error {
	if b.Status != BetStatusOpen {
		return ErrAlreadyFinalized
	}
	b.Status = BetStatusForfeited
	b.SettledAt = &now
	b.Released = b.ReservedPayout
	return nil
}
