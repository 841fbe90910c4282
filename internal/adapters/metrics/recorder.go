// Package metrics exposes bet lifecycle and HTTP metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// Recorder counts committed bet transitions. It implements
// ports.EventPublisher so the engine feeds it like any other sink.
type Recorder struct {
	reg *prometheus.Registry

	placed      *prometheus.CounterVec
	claimed     *prometheus.CounterVec
	forfeited   prometheus.Counter
	premiums    prometheus.Counter
	payouts     prometheus.Counter
	released    prometheus.Counter
	totalLocked prometheus.Gauge
	requests    *prometheus.HistogramVec
}

// NewRecorder registers every collector on a fresh registry, plus the Go
// and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		placed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blinkbet_bets_placed_total",
			Help: "Bets placed, by asset.",
		}, []string{"asset"}),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blinkbet_bets_claimed_total",
			Help: "Bets claimed, by outcome (win|loss).",
		}, []string{"outcome"}),
		forfeited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blinkbet_bets_forfeited_total",
			Help: "Bets forfeited after the claim window.",
		}),
		premiums: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blinkbet_premium_collected_units_total",
			Help: "Premium collected into the pool, in token units.",
		}),
		payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blinkbet_payout_units_total",
			Help: "Payouts sent to owners, in token units.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blinkbet_released_units_total",
			Help: "Reserved collateral returned to the pool, in token units.",
		}),
		totalLocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blinkbet_pool_total_locked_units",
			Help: "Collateral currently reserved for open bets.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "blinkbet_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	r.reg.MustRegister(
		r.placed, r.claimed, r.forfeited,
		r.premiums, r.payouts, r.released,
		r.totalLocked, r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Publish updates the counters for one committed transition.
func (r *Recorder) Publish(_ context.Context, ev domain.BetEvent) error {
	switch ev.Type {
	case domain.EventBetPlaced:
		r.placed.WithLabelValues(ev.AssetID).Inc()
		r.premiums.Add(float64(ev.Premium))
	case domain.EventBetClaimed:
		outcome := "loss"
		if ev.Payout > 0 {
			outcome = "win"
		}
		r.claimed.WithLabelValues(outcome).Inc()
		r.payouts.Add(float64(ev.Payout))
		r.released.Add(float64(ev.Released))
	case domain.EventBetForfeited:
		r.forfeited.Inc()
		r.released.Add(float64(ev.Released))
	}
	r.totalLocked.Set(float64(ev.TotalLocked))
	return nil
}

// SetTotalLocked seeds the gauge at startup.
func (r *Recorder) SetTotalLocked(v uint64) {
	r.totalLocked.Set(float64(v))
}

// ObserveRequest records one HTTP request.
func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Registry returns the registry backing this recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
