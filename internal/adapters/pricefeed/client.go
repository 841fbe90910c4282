package pricefeed

// client.go: spot prices from a CoinGecko-compatible /simple/price endpoint.
//
// The response carries a float per asset; it is parsed as a decimal string
// and scaled by 10^Decimals into integer price units, never through float64.
// The feed does not retry: the engine treats any failure as the oracle being
// unavailable and the caller decides whether to try again.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	defaultQuote   = "usd"

	// Public tier allows ~30 calls/min; stay at half.
	defaultRatePerSec = 0.25
	defaultBurst      = 2
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Currency   string        // quote currency, "usd" by default
	Decimals   int32         // price units per 1.0 = 10^Decimals
	MaxAge     time.Duration // 0 disables the staleness check
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	APIKey     string // sent as x-cg-demo-api-key when set
}

// Client implements ports.PriceOracle over HTTP.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

// NewClient creates a Client. Zero fields fall back to public defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Currency == "" {
		cfg.Currency = defaultQuote
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		now:     time.Now,
	}
}

// quote is one asset entry of the /simple/price response. The currency
// field name varies so it is decoded by hand.
type quote map[string]json.Number

// Price returns the current price of assetID in integer units.
func (c *Client) Price(ctx context.Context, assetID string) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("pricefeed.Price: rate limiter: %w: %w", domain.ErrOracleUnavailable, err)
	}

	q := url.Values{}
	q.Set("ids", assetID)
	q.Set("vs_currencies", c.cfg.Currency)
	q.Set("include_last_updated_at", "true")
	endpoint := c.cfg.BaseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("pricefeed.Price: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pricefeed.Price: %s: %w: %w", assetID, domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("pricefeed.Price: %s: status %d: %s: %w",
			assetID, resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrOracleUnavailable)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload map[string]quote
	if err := dec.Decode(&payload); err != nil {
		return 0, fmt.Errorf("pricefeed.Price: decode: %w: %w", domain.ErrOracleUnavailable, err)
	}

	entry, ok := payload[assetID]
	if !ok {
		return 0, fmt.Errorf("pricefeed.Price: %s missing from response: %w", assetID, domain.ErrOracleUnavailable)
	}
	raw, ok := entry[c.cfg.Currency]
	if !ok {
		return 0, fmt.Errorf("pricefeed.Price: %s has no %s price: %w", assetID, c.cfg.Currency, domain.ErrOracleUnavailable)
	}

	if c.cfg.MaxAge > 0 {
		if err := c.checkFresh(assetID, entry); err != nil {
			return 0, err
		}
	}

	price, err := ScalePrice(raw.String(), c.cfg.Decimals)
	if err != nil {
		return 0, fmt.Errorf("pricefeed.Price: %s: %w", assetID, err)
	}
	return price, nil
}

func (c *Client) checkFresh(assetID string, entry quote) error {
	ts, ok := entry["last_updated_at"]
	if !ok {
		return fmt.Errorf("pricefeed.Price: %s has no timestamp: %w", assetID, domain.ErrStalePrice)
	}
	secs, err := ts.Int64()
	if err != nil {
		return fmt.Errorf("pricefeed.Price: %s timestamp %q: %w", assetID, ts, domain.ErrStalePrice)
	}
	age := c.now().Sub(time.Unix(secs, 0))
	if age > c.cfg.MaxAge {
		return fmt.Errorf("pricefeed.Price: %s is %s old: %w", assetID, age.Round(time.Second), domain.ErrStalePrice)
	}
	return nil
}

// ScalePrice converts a decimal price string to integer units of
// 10^-decimals, rounding down.
func ScalePrice(s string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w: %w", s, domain.ErrOracleUnavailable, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative price %q: %w", s, domain.ErrOracleUnavailable)
	}
	units := d.Shift(decimals).Floor().BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("price %q overflows: %w", s, domain.ErrArithmetic)
	}
	return units.Uint64(), nil
}
