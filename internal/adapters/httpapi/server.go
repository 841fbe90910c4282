// Package httpapi exposes the betting engine over a JSON REST API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alejandrodnm/blinkbet/internal/application/engine"
	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// OwnerHeader carries the caller identity. Authentication happens upstream.
const OwnerHeader = "X-Owner-ID"

// BetService is the engine surface the API serves.
type BetService interface {
	PlaceBet(ctx context.Context, owner string, req domain.PlaceBetRequest) (domain.Bet, error)
	ClaimBet(ctx context.Context, caller, betID string) (domain.Settlement, error)
	UnlockExpiredBet(ctx context.Context, betID string) (uint64, error)
	GetBet(ctx context.Context, id string) (domain.Bet, error)
	ListBets(ctx context.Context, owner string, offset, limit int) (engine.BetPage, error)
	PoolStatus(ctx context.Context) (domain.PoolStatus, error)
}

// RequestObserver records request latency. metrics.Recorder satisfies it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// QuoteConfig holds the pricing inputs for /v1/quote.
type QuoteConfig struct {
	Volatility   float64
	TenorYears   float64
	InterestRate float64
}

// API wires the handlers to their dependencies.
type API struct {
	Bets     BetService
	Oracle   ports.PriceOracle
	Quote    QuoteConfig
	Observer RequestObserver // optional
	MaxPage  int             // upper bound for ?limit, 0 = 100
}

// Router returns the HTTP router with every endpoint mounted.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if a.Observer != nil {
		r.Use(a.observe)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bets", a.placeBet)
		r.Get("/bets/{id}", a.getBet)
		r.Post("/bets/{id}/claim", a.claimBet)
		r.Post("/bets/{id}/unlock", a.unlockBet)
		r.Get("/owners/{owner}/bets", a.listBets)
		r.Get("/pool", a.poolStatus)
		r.Get("/quote", a.quote)
	})
	return r
}

func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.Observer.ObserveRequest(r.Method, route, status, time.Since(started))
	})
}

// Serve runs the router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "err", err)
		}
	}()

	slog.Info("http api listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind"`
}

// writeError maps a classified error to its status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status >= 500 {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: domain.CodeOf(err), Kind: kind.String()})
}

func statusFor(k domain.ErrorKind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindLifecycle, domain.KindSolvency:
		return http.StatusConflict
	case domain.KindArithmetic:
		return http.StatusUnprocessableEntity
	case domain.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
