package domain

import "math"

// Quote defaults for a call spread on a volatile asset.
const (
	DefaultQuoteVolatility   = 0.75
	DefaultQuoteTenorYears   = 30.0 / 365.0
	DefaultQuoteInterestRate = 0.04
)

// QuoteParams describes a call spread relative to spot. Ratios are
// strike/spot and cap/spot, e.g. 1.2 and 2.0.
type QuoteParams struct {
	Spot         float64
	StrikeRatio  float64
	CapRatio     float64
	Volatility   float64
	TenorYears   float64
	InterestRate float64
}

// Quote is the fair value of a call spread.
type Quote struct {
	StrikeCall float64 // call struck at the strike
	CapCall    float64 // call struck at the cap
	Premium    float64 // StrikeCall − CapCall, in price units per unit of spot
	// PremiumBps is Premium/Spot in basis points, clamped to (0, MaxPremiumBps].
	PremiumBps uint64
}

func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// BlackScholesCall prices a European call. Degenerate inputs (non-positive
// spot, strike, volatility or tenor) return the intrinsic value.
func BlackScholesCall(spot, strike, tenor, vol, rate float64) float64 {
	if spot <= 0 || strike <= 0 || vol <= 0 || tenor <= 0 {
		return math.Max(spot-strike, 0)
	}
	sqrtT := math.Sqrt(tenor)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*tenor) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT
	return spot*normalCDF(d1) - strike*math.Exp(-rate*tenor)*normalCDF(d2)
}

// QuoteCallSpread prices the capped position: long a call at the strike,
// short a call at the cap.
func QuoteCallSpread(p QuoteParams) Quote {
	if p.Volatility == 0 {
		p.Volatility = DefaultQuoteVolatility
	}
	if p.TenorYears == 0 {
		p.TenorYears = DefaultQuoteTenorYears
	}
	lo := BlackScholesCall(p.Spot, p.Spot*p.StrikeRatio, p.TenorYears, p.Volatility, p.InterestRate)
	hi := BlackScholesCall(p.Spot, p.Spot*p.CapRatio, p.TenorYears, p.Volatility, p.InterestRate)
	q := Quote{StrikeCall: lo, CapCall: hi, Premium: math.Max(lo-hi, 0)}
	q.PremiumBps = SuggestPremiumBps(q.Premium, p.Spot)
	return q
}

// SuggestPremiumBps converts a premium in price units to basis points of
// spot, rounded up and clamped to the range placement accepts.
func SuggestPremiumBps(premium, spot float64) uint64 {
	if spot <= 0 || premium <= 0 || math.IsNaN(premium) {
		return 1
	}
	bps := math.Ceil(premium / spot * float64(BasisPoints))
	if bps >= float64(MaxPremiumBps) {
		return MaxPremiumBps
	}
	if bps < 1 {
		return 1
	}
	return uint64(bps)
}
