package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
    account    TEXT PRIMARY KEY,
    balance    TEXT    NOT NULL DEFAULT '0',
    updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ledger_transfers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    from_acct   TEXT    NOT NULL,
    to_acct     TEXT    NOT NULL,
    amount      TEXT    NOT NULL,
    executed_at INTEGER NOT NULL
);
`

// mintAccount is the source recorded for Credit in the transfer journal.
const mintAccount = "@mint"

// SQLiteLedger is a token ledger kept in the same database as the bets. It
// implements ports.TokenLedger; each transfer is one transaction.
type SQLiteLedger struct {
	db *sql.DB
}

// Ledger returns a ledger backed by this storage's database.
func (s *SQLiteStorage) Ledger() *SQLiteLedger {
	return &SQLiteLedger{db: s.db}
}

// Balance returns the balance of account. Unknown accounts hold zero.
func (l *SQLiteLedger) Balance(ctx context.Context, account string) (uint64, error) {
	bal, err := readBalance(ctx, l.db, account)
	if err != nil {
		return 0, fmt.Errorf("storage.Balance: %s: %w", account, err)
	}
	return bal, nil
}

// Transfer moves amount from one account to another or fails without side
// effects.
func (l *SQLiteLedger) Transfer(ctx context.Context, from, to string, amt uint64) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return fmt.Errorf("storage.Transfer: %w", domain.ErrUnauthorized)
	}
	if amt == 0 || from == to {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Transfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	fromBal, err := readBalance(ctx, tx, from)
	if err != nil {
		return fmt.Errorf("storage.Transfer: %s: %w", from, err)
	}
	if fromBal < amt {
		return fmt.Errorf("storage.Transfer: %s has %d, needs %d: %w", from, fromBal, amt, domain.ErrInsufficientFunds)
	}
	toBal, err := readBalance(ctx, tx, to)
	if err != nil {
		return fmt.Errorf("storage.Transfer: %s: %w", to, err)
	}
	credited, err := domain.CheckedAdd(toBal, amt)
	if err != nil {
		return fmt.Errorf("storage.Transfer: credit %s: %w", to, err)
	}

	if err := writeBalance(ctx, tx, from, fromBal-amt); err != nil {
		return fmt.Errorf("storage.Transfer: %w", err)
	}
	if err := writeBalance(ctx, tx, to, credited); err != nil {
		return fmt.Errorf("storage.Transfer: %w", err)
	}
	if err := journal(ctx, tx, from, to, amt); err != nil {
		return fmt.Errorf("storage.Transfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.Transfer: commit: %w", err)
	}
	return nil
}

// Credit mints amount into account. Used to fund accounts from the CLI.
func (l *SQLiteLedger) Credit(ctx context.Context, account string, amt uint64) (uint64, error) {
	if strings.TrimSpace(account) == "" {
		return 0, fmt.Errorf("storage.Credit: %w", domain.ErrInvalidOwner)
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.Credit: begin tx: %w", err)
	}
	defer tx.Rollback()

	bal, err := readBalance(ctx, tx, account)
	if err != nil {
		return 0, fmt.Errorf("storage.Credit: %s: %w", account, err)
	}
	next, err := domain.CheckedAdd(bal, amt)
	if err != nil {
		return 0, fmt.Errorf("storage.Credit: %s: %w", account, err)
	}
	if err := writeBalance(ctx, tx, account, next); err != nil {
		return 0, fmt.Errorf("storage.Credit: %w", err)
	}
	if err := journal(ctx, tx, mintAccount, account, amt); err != nil {
		return 0, fmt.Errorf("storage.Credit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.Credit: commit: %w", err)
	}
	return next, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readBalance(ctx context.Context, q querier, account string) (uint64, error) {
	var bal amount
	err := q.QueryRowContext(ctx, `SELECT balance FROM ledger_accounts WHERE account = ?`, account).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(bal), nil
}

func writeBalance(ctx context.Context, tx *sql.Tx, account string, bal uint64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (account, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			balance    = excluded.balance,
			updated_at = excluded.updated_at`,
		account, amount(bal), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("write balance %s: %w", account, err)
	}
	return nil
}

func journal(ctx context.Context, tx *sql.Tx, from, to string, amt uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_transfers (from_acct, to_acct, amount, executed_at) VALUES (?, ?, ?, ?)`,
		from, to, amount(amt), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("journal transfer: %w", err)
	}
	return nil
}

// amount stores a uint64 as decimal text.
type amount uint64

func (a amount) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(a), 10), nil
}

func (a *amount) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.parse(v)
	case []byte:
		return a.parse(string(v))
	case int64:
		if v < 0 {
			return fmt.Errorf("negative amount %d", v)
		}
		*a = amount(v)
		return nil
	case nil:
		*a = 0
		return nil
	default:
		return fmt.Errorf("unsupported amount type %T", src)
	}
}

func (a *amount) parse(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", s, err)
	}
	*a = amount(n)
	return nil
}
