package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

type placeBetRequest struct {
	NotionalAmount    uint64 `json:"notional_amount"`
	PremiumPercentage uint64 `json:"premium_percentage"`
	StrikePercentage  uint64 `json:"strike_percentage"`
	CapPercentage     uint64 `json:"cap_percentage"`
	AssetID           string `json:"asset_id"`
}

type betResponse struct {
	ID                string     `json:"id"`
	Owner             string     `json:"owner"`
	AssetID           string     `json:"asset_id"`
	Status            string     `json:"status"`
	NotionalAmount    uint64     `json:"notional_amount"`
	PremiumPercentage uint64     `json:"premium_percentage"`
	PremiumAmount     uint64     `json:"premium_amount"`
	StrikePercentage  uint64     `json:"strike_percentage"`
	CapPercentage     uint64     `json:"cap_percentage"`
	StartPrice        uint64     `json:"start_price"`
	StrikePrice       uint64     `json:"strike_price"`
	ReservedPayout    uint64     `json:"reserved_payout"`
	CreatedAt         time.Time  `json:"created_at"`
	Expiry            time.Time  `json:"expiry"`
	ClaimWindowEnd    time.Time  `json:"claim_window_end"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
	SettlementPrice   uint64     `json:"settlement_price,omitempty"`
	Payout            uint64     `json:"payout,omitempty"`
	Released          uint64     `json:"released,omitempty"`
}

func toBetResponse(b domain.Bet) betResponse {
	return betResponse{
		ID:                b.ID,
		Owner:             b.Owner,
		AssetID:           b.AssetID,
		Status:            string(b.Status),
		NotionalAmount:    b.NotionalAmount,
		PremiumPercentage: b.PremiumPercentage,
		PremiumAmount:     b.PremiumAmount,
		StrikePercentage:  b.StrikePercentage,
		CapPercentage:     b.CapPercentage,
		StartPrice:        b.StartPrice,
		StrikePrice:       b.StrikePrice,
		ReservedPayout:    b.ReservedPayout,
		CreatedAt:         b.CreatedAt,
		Expiry:            b.Expiry,
		ClaimWindowEnd:    b.ClaimWindowEnd,
		SettledAt:         b.SettledAt,
		SettlementPrice:   b.SettlementPrice,
		Payout:            b.Payout,
		Released:          b.Released,
	}
}

type settlementResponse struct {
	BetID       string `json:"bet_id"`
	Price       uint64 `json:"price"`
	CapPrice    uint64 `json:"cap_price"`
	PayoutPrice uint64 `json:"payout_price"`
	Winning     bool   `json:"winning"`
	Payout      uint64 `json:"payout"`
	Released    uint64 `json:"released"`
}

type betPageResponse struct {
	Owner  string        `json:"owner"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Bets   []betResponse `json:"bets"`
}

type poolResponse struct {
	Account     string `json:"account"`
	Balance     uint64 `json:"balance"`
	TotalLocked uint64 `json:"total_locked"`
	Available   uint64 `json:"available"`
	OpenBets    int    `json:"open_bets"`
}

type quoteResponse struct {
	AssetID      string  `json:"asset_id"`
	Spot         uint64  `json:"spot"`
	StrikeBps    uint64  `json:"strike_bp"`
	CapBps       uint64  `json:"cap_bp"`
	StrikeCall   float64 `json:"strike_call"`
	CapCall      float64 `json:"cap_call"`
	Premium      float64 `json:"premium"`
	PremiumBps   uint64  `json:"premium_bp"`
	Volatility   float64 `json:"volatility"`
	TenorYears   float64 `json:"tenor_years"`
	InterestRate float64 `json:"interest_rate"`
}

func owner(r *http.Request) (string, error) {
	o := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if o == "" {
		return "", domain.ErrInvalidOwner
	}
	return o, nil
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	caller, err := owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body placeBetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body: " + err.Error(), Code: "INVALID_BODY", Kind: domain.KindValidation.String()})
		return
	}

	bet, err := a.Bets.PlaceBet(r.Context(), caller, domain.PlaceBetRequest{
		NotionalAmount:    body.NotionalAmount,
		PremiumPercentage: body.PremiumPercentage,
		StrikePercentage:  body.StrikePercentage,
		CapPercentage:     body.CapPercentage,
		AssetID:           body.AssetID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/bets/"+bet.ID)
	writeJSON(w, http.StatusCreated, toBetResponse(bet))
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := a.Bets.GetBet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(bet))
}

func (a *API) claimBet(w http.ResponseWriter, r *http.Request) {
	caller, err := owner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := a.Bets.ClaimBet(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settlementResponse{
		BetID:       s.BetID,
		Price:       s.Price,
		CapPrice:    s.CapPrice,
		PayoutPrice: s.PayoutPrice,
		Winning:     s.Winning,
		Payout:      s.Payout,
		Released:    s.Released,
	})
}

func (a *API) unlockBet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	released, err := a.Bets.UnlockExpiredBet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bet_id": id, "released": released})
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	maxPage := a.MaxPage
	if maxPage <= 0 {
		maxPage = 100
	}
	limit, err := intParam(q.Get("limit"), maxPage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit = min(max(limit, 1), maxPage)

	page, err := a.Bets.ListBets(r.Context(), chi.URLParam(r, "owner"), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := betPageResponse{Owner: page.Owner, Total: page.Total, Offset: page.Offset, Bets: make([]betResponse, 0, len(page.Bets))}
	for _, b := range page.Bets {
		resp.Bets = append(resp.Bets, toBetResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) poolStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.Bets.PoolStatus(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		Account:     st.Account,
		Balance:     st.Balance,
		TotalLocked: st.TotalLocked,
		Available:   st.Available,
		OpenBets:    st.OpenBets,
	})
}

func (a *API) quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asset := strings.TrimSpace(q.Get("asset"))
	if asset == "" {
		writeError(w, r, domain.ErrInvalidAsset)
		return
	}
	strikeBps, err := uintParam(q.Get("strike_bp"), domain.BasisPoints)
	if err != nil {
		writeError(w, r, err)
		return
	}
	capBps, err := uintParam(q.Get("cap_bp"), 12_000)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if capBps <= strikeBps {
		writeError(w, r, domain.ErrInvalidStrikeCap)
		return
	}

	spot, err := a.Oracle.Price(r.Context(), asset)
	if err == nil && spot == 0 {
		err = domain.ErrOracleUnavailable
	}
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			err = fmt.Errorf("%w: %w", domain.ErrOracleUnavailable, err)
		}
		writeError(w, r, err)
		return
	}

	bp := float64(domain.BasisPoints)
	res := domain.QuoteCallSpread(domain.QuoteParams{
		Spot:         float64(spot),
		StrikeRatio:  float64(strikeBps) / bp,
		CapRatio:     float64(capBps) / bp,
		Volatility:   a.Quote.Volatility,
		TenorYears:   a.Quote.TenorYears,
		InterestRate: a.Quote.InterestRate,
	})
	writeJSON(w, http.StatusOK, quoteResponse{
		AssetID:      asset,
		Spot:         spot,
		StrikeBps:    strikeBps,
		CapBps:       capBps,
		StrikeCall:   res.StrikeCall,
		CapCall:      res.CapCall,
		Premium:      res.Premium,
		PremiumBps:   res.PremiumBps,
		Volatility:   orDefault(a.Quote.Volatility, domain.DefaultQuoteVolatility),
		TenorYears:   orDefault(a.Quote.TenorYears, domain.DefaultQuoteTenorYears),
		InterestRate: a.Quote.InterestRate,
	})
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidQuery
	}
	return n, nil
}

func uintParam(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidQuery
	}
	return n, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
