package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// Format selects how the report is printed.
type Format string

const (
	FormatTable   Format = "table"
	FormatCompact Format = "compact"
	FormatJSON    Format = "json"
)

// Console implements ports.Notifier for operators.
type Console struct {
	out    io.Writer
	format Format
	now    func() time.Time
}

// NewConsole creates a notifier writing to stdout.
func NewConsole(format Format) *Console {
	return NewConsoleWriter(os.Stdout, format)
}

// NewConsoleWriter creates a notifier writing to w. Used by tests.
func NewConsoleWriter(w io.Writer, format Format) *Console {
	if format == "" {
		format = FormatTable
	}
	return &Console{out: w, format: format, now: time.Now}
}

// Notify prints the pool summary and the given bets.
func (c *Console) Notify(_ context.Context, pool domain.PoolStatus, bets []domain.Bet) error {
	switch c.format {
	case FormatJSON:
		return c.printJSON(pool, bets)
	case FormatCompact:
		c.printCompact(pool, bets)
	default:
		c.printTable(pool, bets)
	}
	return nil
}

// printCompact prints one line for the pool and one per bet.
func (c *Console) printCompact(pool domain.PoolStatus, bets []domain.Bet) {
	fmt.Fprintf(c.out, "[%s] pool %s balance=%d locked=%d available=%d open=%d\n",
		c.now().Format("15:04:05"), pool.Account, pool.Balance, pool.TotalLocked, pool.Available, pool.OpenBets)
	for _, b := range bets {
		fmt.Fprintf(c.out, "  %s %-9s %s owner=%s notional=%d reserved=%d %s\n",
			shortID(b.ID), b.Status, b.AssetID, b.Owner, b.NotionalAmount, b.ReservedPayout, c.timeLeft(b))
	}
}

func (c *Console) printTable(pool domain.PoolStatus, bets []domain.Bet) {
	fmt.Fprintf(c.out, "\n── POOL %s ──\n", pool.Account)
	fmt.Fprintf(c.out, "  Balance:      %d\n", pool.Balance)
	fmt.Fprintf(c.out, "  Total locked: %d\n", pool.TotalLocked)
	fmt.Fprintf(c.out, "  Available:    %d\n", pool.Available)
	fmt.Fprintf(c.out, "  Open bets:    %d\n", pool.OpenBets)
	if pool.Balance > 0 {
		fmt.Fprintf(c.out, "  Utilization:  %.1f%%\n", float64(pool.TotalLocked)/float64(pool.Balance)*100)
	}

	fmt.Fprintf(c.out, "\n── BETS (%d) ──\n", len(bets))
	if len(bets) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Owner", "Asset", "Status", "Notional", "Premium", "Start", "Strike", "Cap%", "Reserved", "Payout", "Expiry", "Window")
	for _, b := range bets {
		table.Append(
			shortID(b.ID),
			b.Owner,
			b.AssetID,
			string(b.Status),
			strconv.FormatUint(b.NotionalAmount, 10),
			strconv.FormatUint(b.PremiumAmount, 10),
			strconv.FormatUint(b.StartPrice, 10),
			strconv.FormatUint(b.StrikePrice, 10),
			fmt.Sprintf("%.2f", float64(b.CapPercentage)/100),
			strconv.FormatUint(b.ReservedPayout, 10),
			strconv.FormatUint(b.Payout, 10),
			b.Expiry.UTC().Format("2006-01-02 15:04"),
			c.timeLeft(b),
		)
	}
	table.Render()
}

type jsonReport struct {
	Pool domain.PoolStatus `json:"pool"`
	Bets []domain.Bet      `json:"bets"`
}

func (c *Console) printJSON(pool domain.PoolStatus, bets []domain.Bet) error {
	if bets == nil {
		bets = []domain.Bet{}
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Pool: pool, Bets: bets}); err != nil {
		return fmt.Errorf("notify.printJSON: %w", err)
	}
	return nil
}

// timeLeft describes where the bet stands in its lifecycle.
func (c *Console) timeLeft(b domain.Bet) string {
	if b.Status.IsTerminal() {
		return "-"
	}
	now := c.now()
	switch {
	case !now.After(b.Expiry):
		return "expires in " + b.Expiry.Sub(now).Truncate(time.Minute).String()
	case !now.After(b.ClaimWindowEnd):
		return "claimable " + b.ClaimWindowEnd.Sub(now).Truncate(time.Minute).String()
	default:
		return "unlockable"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ ports.Notifier = (*Console)(nil)
