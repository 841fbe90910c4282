package domain

import (
	"github.com/ethereum/go-ethereum/common/math"
)

// BasisPoints is the denominator for every percentage in the engine:
// 10000 bp = 100%.
const BasisPoints uint64 = 10_000

// MulDiv returns floor(a × b / d). The product is checked; any overflow or a
// zero divisor is ErrArithmetic.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrArithmetic
	}
	p, overflow := math.SafeMul(a, b)
	if overflow {
		return 0, ErrArithmetic
	}
	return p / d, nil
}

// ApplyBps returns floor(amount × bps / 10000).
func ApplyBps(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BasisPoints)
}

// CheckedAdd returns a + b or ErrArithmetic on overflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	s, overflow := math.SafeAdd(a, b)
	if overflow {
		return 0, ErrArithmetic
	}
	return s, nil
}

// CheckedSub returns a − b or ErrArithmetic when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	d, overflow := math.SafeSub(a, b)
	if overflow {
		return 0, ErrArithmetic
	}
	return d, nil
}
