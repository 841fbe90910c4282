package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placedAt = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

func scenarioRequest() PlaceBetRequest {
	return PlaceBetRequest{
		NotionalAmount:    1_000_000,
		PremiumPercentage: 500,
		StrikePercentage:  10_000,
		CapPercentage:     12_000,
		AssetID:           "bitcoin",
	}
}

func scenarioBet(t *testing.T) Bet {
	t.Helper()
	req := scenarioRequest()
	terms, err := req.ComputeTerms()
	require.NoError(t, err)
	bet, err := NewBet("bet-1", "alice", req, terms, 100, placedAt)
	require.NoError(t, err)
	return bet
}

func TestValidate_Order(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*PlaceBetRequest)
		want error
	}{
		{"zero notional", func(r *PlaceBetRequest) { r.NotionalAmount = 0 }, ErrInvalidNotional},
		{"premium above cap", func(r *PlaceBetRequest) { r.PremiumPercentage = 1_001 }, ErrPremiumTooHigh},
		{"premium at cap", func(r *PlaceBetRequest) { r.PremiumPercentage = 1_000 }, nil},
		{"zero premium", func(r *PlaceBetRequest) { r.PremiumPercentage = 0 }, ErrPremiumTooLow},
		{"cap equals strike", func(r *PlaceBetRequest) { r.CapPercentage = r.StrikePercentage }, ErrInvalidStrikeCap},
		{"cap below strike", func(r *PlaceBetRequest) { r.CapPercentage = 9_000 }, ErrInvalidStrikeCap},
		{"blank asset", func(r *PlaceBetRequest) { r.AssetID = "  " }, ErrInvalidAsset},
		{"notional checked first", func(r *PlaceBetRequest) { r.NotionalAmount = 0; r.PremiumPercentage = 5_000 }, ErrInvalidNotional},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := scenarioRequest()
			tt.mod(&req)
			err := req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestComputeTerms_ScenarioA(t *testing.T) {
	terms, err := scenarioRequest().ComputeTerms()
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000), terms.Premium)
	assert.Equal(t, uint64(200_000), terms.MaxPayout)
}

func TestComputeTerms_Overflow(t *testing.T) {
	req := scenarioRequest()
	req.NotionalAmount = math.MaxUint64
	_, err := req.ComputeTerms()
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestNewBet_Windows(t *testing.T) {
	bet := scenarioBet(t)
	assert.Equal(t, uint64(100), bet.StrikePrice)
	assert.Equal(t, uint64(200_000), bet.ReservedPayout)
	assert.Equal(t, placedAt.Add(24*time.Hour), bet.Expiry)
	assert.Equal(t, placedAt.Add(48*time.Hour), bet.ClaimWindowEnd)
	assert.Equal(t, BetStatusOpen, bet.Status)
	assert.False(t, bet.Status.IsTerminal())
}

func TestCheckClaimable_Boundaries(t *testing.T) {
	bet := scenarioBet(t)
	assert.ErrorIs(t, bet.CheckClaimable(bet.Expiry), ErrNotYetExpired)
	assert.NoError(t, bet.CheckClaimable(bet.Expiry.Add(time.Nanosecond)))
	assert.NoError(t, bet.CheckClaimable(bet.ClaimWindowEnd))
	assert.ErrorIs(t, bet.CheckClaimable(bet.ClaimWindowEnd.Add(time.Nanosecond)), ErrClaimWindowClosed)
}

func TestCheckUnlockable_Boundaries(t *testing.T) {
	bet := scenarioBet(t)
	assert.ErrorIs(t, bet.CheckUnlockable(bet.ClaimWindowEnd), ErrClaimWindowNotYetOver)
	assert.NoError(t, bet.CheckUnlockable(bet.ClaimWindowEnd.Add(time.Nanosecond)))
}

func TestSettle_ScenarioB_Winning(t *testing.T) {
	s, err := scenarioBet(t).Settle(115)
	require.NoError(t, err)
	assert.True(t, s.Winning)
	assert.Equal(t, uint64(120), s.CapPrice)
	assert.Equal(t, uint64(115), s.PayoutPrice)
	assert.Equal(t, uint64(150_000), s.Payout)
	assert.Equal(t, uint64(50_000), s.Released)
}

func TestSettle_ScenarioC_Losing(t *testing.T) {
	s, err := scenarioBet(t).Settle(90)
	require.NoError(t, err)
	assert.False(t, s.Winning)
	assert.Zero(t, s.Payout)
	assert.Equal(t, uint64(200_000), s.Released)
}

func TestSettle_AtStrikeIsWinningWithZeroPayout(t *testing.T) {
	s, err := scenarioBet(t).Settle(100)
	require.NoError(t, err)
	assert.True(t, s.Winning)
	assert.Zero(t, s.Payout)
	assert.Equal(t, uint64(200_000), s.Released)
}

func TestSettle_AboveCapPaysReserved(t *testing.T) {
	s, err := scenarioBet(t).Settle(1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), s.PayoutPrice)
	assert.Equal(t, uint64(200_000), s.Payout)
	assert.Zero(t, s.Released)
}

func TestSettle_PayoutNeverExceedsReserved(t *testing.T) {
	// Strike above start with rounding in the reservation.
	req := PlaceBetRequest{NotionalAmount: 999, PremiumPercentage: 10, StrikePercentage: 10_500, CapPercentage: 13_333, AssetID: "eth"}
	terms, err := req.ComputeTerms()
	require.NoError(t, err)
	for _, start := range []uint64{1, 3, 7, 97, 1_000, 123_457} {
		bet, err := NewBet("b", "o", req, terms, start, placedAt)
		require.NoError(t, err)
		for _, pc := range []uint64{0, start, start * 2, start * 10} {
			t.Run(fmt.Sprintf("start=%d pc=%d", start, pc), func(t *testing.T) {
				s, err := bet.Settle(pc)
				require.NoError(t, err)
				assert.LessOrEqual(t, s.Payout, bet.ReservedPayout)
				assert.Equal(t, bet.ReservedPayout, s.Payout+s.Released)
			})
		}
	}
}

func TestMarkClaimed_OnlyOnce(t *testing.T) {
	bet := scenarioBet(t)
	s, err := bet.Settle(115)
	require.NoError(t, err)
	at := bet.Expiry.Add(time.Hour)

	require.NoError(t, bet.MarkClaimed(s, at))
	assert.Equal(t, BetStatusClaimed, bet.Status)
	assert.True(t, bet.Status.IsTerminal())
	require.NotNil(t, bet.SettledAt)

	assert.ErrorIs(t, bet.MarkClaimed(s, at), ErrAlreadyFinalized)
	assert.ErrorIs(t, bet.MarkForfeited(at), ErrAlreadyFinalized)
	assert.ErrorIs(t, bet.CheckClaimable(at), ErrAlreadyFinalized)
}

func TestMarkForfeited(t *testing.T) {
	bet := scenarioBet(t)
	at := bet.ClaimWindowEnd.Add(time.Second)
	require.NoError(t, bet.MarkForfeited(at))
	assert.Equal(t, BetStatusForfeited, bet.Status)
	assert.Equal(t, bet.ReservedPayout, bet.Released)
	assert.ErrorIs(t, bet.CheckUnlockable(at), ErrAlreadyFinalized)
}

func TestPool_LockRelease(t *testing.T) {
	p := CollateralPool{Account: "pool", Balance: 300_000}
	require.NoError(t, p.Lock(200_000))
	avail, err := p.Available()
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), avail)

	assert.ErrorIs(t, p.Lock(100_001), ErrInsufficientCollateral)
	assert.Equal(t, uint64(200_000), p.TotalLocked)

	require.NoError(t, p.Release(200_000))
	assert.ErrorIs(t, p.Release(1), ErrArithmetic)
	assert.Zero(t, p.TotalLocked)
}

func TestPool_BrokenSolvencyRefusesReservation(t *testing.T) {
	p := CollateralPool{Balance: 10, TotalLocked: 20}
	assert.ErrorIs(t, p.CanReserve(0), ErrInsufficientCollateral)
}

func TestErrorClassification_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("engine.ClaimBet: %w", ErrClaimWindowClosed)
	assert.Equal(t, KindLifecycle, KindOf(err))
	assert.Equal(t, "CLAIM_WINDOW_CLOSED", CodeOf(err))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "INTERNAL", CodeOf(plain))

	both := fmt.Errorf("%w: %w", ErrOracleUnavailable, plain)
	assert.ErrorIs(t, both, plain)
	assert.Equal(t, KindExternal, KindOf(both))
}
