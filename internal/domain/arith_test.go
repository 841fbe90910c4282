package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv_Floors(t *testing.T) {
	got, err := MulDiv(1_000_000, 15, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(150_000), got)

	got, err = MulDiv(7, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got)
}

func TestMulDiv_ZeroDivisor(t *testing.T) {
	_, err := MulDiv(1, 1, 0)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestMulDiv_ProductOverflow(t *testing.T) {
	_, err := MulDiv(math.MaxUint64, 2, 2)
	assert.ErrorIs(t, err, ErrArithmetic)
}

func TestApplyBps(t *testing.T) {
	got, err := ApplyBps(1_000_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000), got)

	got, err = ApplyBps(1, 9_999)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestCheckedAddSub(t *testing.T) {
	_, err := CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrArithmetic)

	_, err = CheckedSub(1, 2)
	assert.ErrorIs(t, err, ErrArithmetic)

	d, err := CheckedSub(5, 5)
	require.NoError(t, err)
	assert.Zero(t, d)
}
