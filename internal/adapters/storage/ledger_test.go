package storage_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/blinkbet/internal/adapters/storage"
	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fundedLedger interface {
	Balance(ctx context.Context, account string) (uint64, error)
	Transfer(ctx context.Context, from, to string, amount uint64) error
	Credit(ctx context.Context, account string, amount uint64) (uint64, error)
}

func eachLedger(t *testing.T, fn func(t *testing.T, l fundedLedger)) {
	t.Run("sqlite", func(t *testing.T) {
		db, err := storage.NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer db.Close()
		fn(t, db.Ledger())
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, storage.NewMemoryLedger(nil))
	})
}

func TestLedger_CreditAndTransfer(t *testing.T) {
	eachLedger(t, func(t *testing.T, l fundedLedger) {
		ctx := context.Background()
		bal, err := l.Credit(ctx, "alice", 500)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), bal)

		require.NoError(t, l.Transfer(ctx, "alice", "pool", 120))

		a, err := l.Balance(ctx, "alice")
		require.NoError(t, err)
		p, err := l.Balance(ctx, "pool")
		require.NoError(t, err)
		assert.Equal(t, uint64(380), a)
		assert.Equal(t, uint64(120), p)
	})
}

func TestLedger_InsufficientFundsLeavesBalances(t *testing.T) {
	eachLedger(t, func(t *testing.T, l fundedLedger) {
		ctx := context.Background()
		_, err := l.Credit(ctx, "alice", 10)
		require.NoError(t, err)

		err = l.Transfer(ctx, "alice", "pool", 11)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		a, _ := l.Balance(ctx, "alice")
		p, _ := l.Balance(ctx, "pool")
		assert.Equal(t, uint64(10), a)
		assert.Zero(t, p)
	})
}

func TestLedger_CreditOverflow(t *testing.T) {
	eachLedger(t, func(t *testing.T, l fundedLedger) {
		ctx := context.Background()
		_, err := l.Credit(ctx, "whale", 1<<64-1)
		require.NoError(t, err)
		_, err = l.Credit(ctx, "whale", 1)
		assert.ErrorIs(t, err, domain.ErrArithmetic)
	})
}

func TestLedger_BlankAccountRejected(t *testing.T) {
	eachLedger(t, func(t *testing.T, l fundedLedger) {
		err := l.Transfer(context.Background(), "", "pool", 1)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}
