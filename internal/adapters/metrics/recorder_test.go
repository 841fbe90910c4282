package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/blinkbet/internal/adapters/metrics"
	"github.com/alejandrodnm/blinkbet/internal/domain"
)

func TestRecorder_Lifecycle(t *testing.T) {
	r := metrics.NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, domain.BetEvent{Type: domain.EventBetPlaced, AssetID: "bitcoin", Premium: 50_000, TotalLocked: 200_000}))
	require.NoError(t, r.Publish(ctx, domain.BetEvent{Type: domain.EventBetPlaced, AssetID: "bitcoin", Premium: 50_000, TotalLocked: 400_000}))
	require.NoError(t, r.Publish(ctx, domain.BetEvent{Type: domain.EventBetClaimed, Payout: 150_000, Released: 50_000, TotalLocked: 200_000}))
	require.NoError(t, r.Publish(ctx, domain.BetEvent{Type: domain.EventBetForfeited, Released: 200_000, TotalLocked: 0}))

	expected := `
# HELP blinkbet_bets_placed_total Bets placed, by asset.
# TYPE blinkbet_bets_placed_total counter
blinkbet_bets_placed_total{asset="bitcoin"} 2
# HELP blinkbet_bets_claimed_total Bets claimed, by outcome (win|loss).
# TYPE blinkbet_bets_claimed_total counter
blinkbet_bets_claimed_total{outcome="win"} 1
# HELP blinkbet_bets_forfeited_total Bets forfeited after the claim window.
# TYPE blinkbet_bets_forfeited_total counter
blinkbet_bets_forfeited_total 1
# HELP blinkbet_pool_total_locked_units Collateral currently reserved for open bets.
# TYPE blinkbet_pool_total_locked_units gauge
blinkbet_pool_total_locked_units 0
# HELP blinkbet_released_units_total Reserved collateral returned to the pool, in token units.
# TYPE blinkbet_released_units_total counter
blinkbet_released_units_total 250000
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected),
		"blinkbet_bets_placed_total",
		"blinkbet_bets_claimed_total",
		"blinkbet_bets_forfeited_total",
		"blinkbet_pool_total_locked_units",
		"blinkbet_released_units_total",
	)
	assert.NoError(t, err)
}

func TestRecorder_Handler(t *testing.T) {
	r := metrics.NewRecorder()
	r.SetTotalLocked(42)
	r.ObserveRequest(http.MethodPost, "/v1/bets", http.StatusCreated, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "blinkbet_pool_total_locked_units 42")
	assert.Contains(t, body, `blinkbet_http_request_duration_seconds_count{method="POST",route="/v1/bets",status="201"} 1`)
}
