package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlackScholesCall_Degenerate(t *testing.T) {
	assert.InDelta(t, 10.0, BlackScholesCall(100, 90, 0, 0.75, 0.04), 1e-9)
	assert.Equal(t, 0.0, BlackScholesCall(100, 110, 1, 0, 0.04))
}

func TestBlackScholesCall_AtTheMoney(t *testing.T) {
	// ≈ 0.4·S·σ·√T for a short-dated ATM call
	c := BlackScholesCall(100, 100, DefaultQuoteTenorYears, DefaultQuoteVolatility, DefaultQuoteInterestRate)
	assert.InDelta(t, 0.4*100*0.75*math.Sqrt(DefaultQuoteTenorYears), c, 0.5)
}

func TestQuoteCallSpread_Defaults(t *testing.T) {
	q := QuoteCallSpread(QuoteParams{Spot: 100, StrikeRatio: 1.0, CapRatio: 1.2, InterestRate: DefaultQuoteInterestRate})
	assert.Greater(t, q.StrikeCall, q.CapCall)
	assert.InDelta(t, q.StrikeCall-q.CapCall, q.Premium, 1e-9)
	assert.Less(t, q.Premium, 20.0) // never more than the spread width
	assert.InDelta(t, 600, float64(q.PremiumBps), 150)
}

func TestQuoteCallSpread_WiderCapCostsMore(t *testing.T) {
	narrow := QuoteCallSpread(QuoteParams{Spot: 100, StrikeRatio: 1.0, CapRatio: 1.1})
	wide := QuoteCallSpread(QuoteParams{Spot: 100, StrikeRatio: 1.0, CapRatio: 1.5})
	assert.Greater(t, wide.Premium, narrow.Premium)
}

func TestSuggestPremiumBps_Clamped(t *testing.T) {
	assert.Equal(t, uint64(1), SuggestPremiumBps(0, 100))
	assert.Equal(t, uint64(1), SuggestPremiumBps(1e-9, 100))
	assert.Equal(t, MaxPremiumBps, SuggestPremiumBps(50, 100))
	assert.Equal(t, uint64(625), SuggestPremiumBps(0.0625, 1))
	assert.Equal(t, uint64(1), SuggestPremiumBps(math.NaN(), 100))
}
