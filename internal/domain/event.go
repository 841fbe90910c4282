package domain

import "time"

// BetEventType names a committed lifecycle transition.
type BetEventType string

const (
	EventBetPlaced    BetEventType = "bet_placed"
	EventBetClaimed   BetEventType = "bet_claimed"
	EventBetForfeited BetEventType = "bet_forfeited"
)

// BetEvent is emitted after a transition has been committed. It is a
// notification only; nothing in the engine depends on its delivery.
type BetEvent struct {
	Type        BetEventType `json:"type"`
	BetID       string       `json:"bet_id"`
	Owner       string       `json:"owner"`
	AssetID     string       `json:"asset_id"`
	Notional    uint64       `json:"notional"`
	Premium     uint64       `json:"premium,omitempty"`
	Reserved    uint64       `json:"reserved"`
	Payout      uint64       `json:"payout,omitempty"`
	Released    uint64       `json:"released,omitempty"`
	Price       uint64       `json:"price,omitempty"`
	TotalLocked uint64       `json:"total_locked"`
	At          time.Time    `json:"at"`
}
