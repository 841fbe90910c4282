package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// runFund mints amount units into account. Used to seed the pool and test
// accounts on a fresh database.
func runFund(ctx context.Context, b *backend, account string, amount uint64) error {
	if account == "" || amount == 0 {
		return errors.New("runFund: -account and a positive -amount are required")
	}
	bal, err := b.ledger.Credit(ctx, account, amount)
	if err != nil {
		return fmt.Errorf("runFund: %w", err)
	}
	slog.Info("account funded", "account", account, "amount", amount, "balance", bal)
	return nil
}
