package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/blinkbet/internal/adapters/storage"
	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/alejandrodnm/blinkbet/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func makeBet(id, owner string, reserved uint64, createdAt time.Time) domain.Bet {
	req := domain.PlaceBetRequest{
		NotionalAmount:    1_000,
		PremiumPercentage: 500,
		StrikePercentage:  10_000,
		CapPercentage:     11_000,
		AssetID:           "bitcoin",
	}
	bet, err := domain.NewBet(id, owner, req, domain.Terms{Premium: 50, MaxPayout: reserved}, 100, createdAt)
	if err != nil {
		panic(err)
	}
	return bet
}

// eachStore runs fn against every BetStore implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s ports.BetStore)) {
	t.Run("sqlite", func(t *testing.T) {
		db, err := storage.NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer db.Close()
		fn(t, db)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, storage.NewMemory())
	})
}

func TestBetStore_PlaceAndGet(t *testing.T) {
	eachStore(t, func(t *testing.T, s ports.BetStore) {
		ctx := context.Background()
		bet := makeBet("b1", "alice", 100, t0)
		bet.NotionalAmount = 1<<64 - 1 // full uint64 range survives

		require.NoError(t, s.CommitPlacement(ctx, bet, 100))

		got, err := s.GetBet(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, bet.ID, got.ID)
		assert.Equal(t, bet.Owner, got.Owner)
		assert.Equal(t, bet.NotionalAmount, got.NotionalAmount)
		assert.Equal(t, bet.ReservedPayout, got.ReservedPayout)
		assert.Equal(t, bet.StrikePrice, got.StrikePrice)
		assert.True(t, bet.Expiry.Equal(got.Expiry))
		assert.True(t, bet.ClaimWindowEnd.Equal(got.ClaimWindowEnd))
		assert.Equal(t, domain.BetStatusOpen, got.Status)
		assert.Nil(t, got.SettledAt)

		locked, err := s.LoadTotalLocked(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), locked)
	})
}

func TestBetStore_GetUnknown(t *testing.T) {
	eachStore(t, func(t *testing.T, s ports.BetStore) {
		_, err := s.GetBet(context.Background(), "nope")
		assert.ErrorIs(t, err, domain.ErrBetNotFound)
	})
}

func TestBetStore_SettleOnce(t *testing.T) {
	eachStore(t, func(t *testing.T, s ports.BetStore) {
		ctx := context.Background()
		bet := makeBet("b1", "alice", 100, t0)
		require.NoError(t, s.CommitPlacement(ctx, bet, 100))

		settled := bet
		at := t0.Add(25 * time.Hour)
		require.NoError(t, settled.MarkClaimed(domain.Settlement{Price: 105, Payout: 50, Released: 50}, at))
		require.NoError(t, s.CommitSettlement(ctx, settled, 0))

		got, err := s.GetBet(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domain.BetStatusClaimed, got.Status)
		assert.Equal(t, uint64(50), got.Payout)
		assert.Equal(t, uint64(105), got.SettlementPrice)
		require.NotNil(t, got.SettledAt)
		assert.True(t, at.Equal(*got.SettledAt))

		// A second finalization is rejected and leaves the counter alone.
		err = s.CommitSettlement(ctx, settled, 999)
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
		locked, err := s.LoadTotalLocked(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), locked)
	})
}

func TestBetStore_SettleUnknown(t *testing.T) {
	eachStore(t, func(t *testing.T, s ports.BetStore) {
		bet := makeBet("ghost", "alice", 100, t0)
		require.NoError(t, bet.MarkForfeited(t0))
		err := s.CommitSettlement(context.Background(), bet, 0)
		assert.ErrorIs(t, err, domain.ErrBetNotFound)
	})
}

func TestBetStore_OwnerRegistryPaging(t *testing.T) {
	eachStore(t, func(t *testing.T, s ports.BetStore) {
		ctx := context.Background()
		for i, id := range []string{"a1", "a2", "a3", "a4"} {
			require.NoError(t, s.CommitPlacement(ctx, makeBet(id, "alice", 10, t0.Add(time.Duration(i)*time.Minute)), uint64(10*(i+1))))
		}
		require.NoError(t, s.CommitPlacement(ctx, makeBet("b1", "bob", 10, t0), 50))

		n, err := s.CountOwnerBets(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		page, err := s.ListOwnerBets(ctx, "alice", 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a2", "a3"}, page)

		all, err := s.ListOwnerBets(ctx, "alice", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, all)

		past, err := s.ListOwnerBets(ctx, "alice", 10, 5)
		require.NoError(t, err)
		assert.Empty(t, past)

		none, err := s.CountOwnerBets(ctx, "carol")
		require.NoError(t, err)
		assert.Zero(t, none)
	})
}

func TestBetStore_OpenAndUnlockable(t *testing.T) {
	eachStore(t, func(t *testing.T, s ports.BetStore) {
		ctx := context.Background()
		old := makeBet("old", "alice", 10, t0)
		older := makeBet("older", "bob", 10, t0.Add(-time.Hour))
		fresh := makeBet("fresh", "alice", 10, t0.Add(47*time.Hour))
		done := makeBet("done", "bob", 10, t0.Add(-2*time.Hour))
		for _, b := range []domain.Bet{old, older, fresh, done} {
			require.NoError(t, s.CommitPlacement(ctx, b, 0))
		}
		require.NoError(t, done.MarkForfeited(t0))
		require.NoError(t, s.CommitSettlement(ctx, done, 0))

		open, err := s.ListOpenBets(ctx)
		require.NoError(t, err)
		assert.Len(t, open, 3)

		now := t0.Add(48*time.Hour + time.Second)
		due, err := s.ListUnlockable(ctx, now, 0)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "older", due[0].ID)
		assert.Equal(t, "old", due[1].ID)

		limited, err := s.ListUnlockable(ctx, now, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}
