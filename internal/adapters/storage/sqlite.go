package storage

// sqlite.go: durable bet store.
//
// Tables:
//   bets          one row per bet, finalized rows are kept for history
//   bet_registry  (owner, seq) → bet id, the owner's placement order
//   pool_state    single row holding the pool counter
//
// Amounts are stored as decimal TEXT so the full uint64 range survives the
// int64 driver boundary. Times are unix nanoseconds in UTC.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/blinkbet/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bets (
    id               TEXT PRIMARY KEY,
    owner            TEXT    NOT NULL,
    asset_id         TEXT    NOT NULL,
    notional         TEXT    NOT NULL,
    premium_bps      INTEGER NOT NULL,
    premium_amount   TEXT    NOT NULL,
    start_price      TEXT    NOT NULL,
    strike_price     TEXT    NOT NULL,
    strike_bps       INTEGER NOT NULL,
    cap_bps          INTEGER NOT NULL,
    reserved         TEXT    NOT NULL,
    created_at       INTEGER NOT NULL,
    expiry           INTEGER NOT NULL,
    claim_window_end INTEGER NOT NULL,
    status           TEXT    NOT NULL DEFAULT 'OPEN',
    settled_at       INTEGER,
    settlement_price TEXT    NOT NULL DEFAULT '0',
    payout           TEXT    NOT NULL DEFAULT '0',
    released         TEXT    NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_bets_status_window ON bets(status, claim_window_end);

CREATE TABLE IF NOT EXISTS bet_registry (
    owner  TEXT    NOT NULL,
    seq    INTEGER NOT NULL,
    bet_id TEXT    NOT NULL REFERENCES bets(id),
    PRIMARY KEY (owner, seq)
);

CREATE TABLE IF NOT EXISTS pool_state (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    total_locked TEXT NOT NULL DEFAULT '0',
    updated_at   INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO pool_state (id) VALUES (1);
`

const betColumns = `
	id, owner, asset_id, notional, premium_bps, premium_amount, start_price,
	strike_price, strike_bps, cap_bps, reserved, created_at, expiry,
	claim_window_end, status, settled_at, settlement_price, payout, released`

// SQLiteStorage implements ports.BetStore on SQLite (pure Go, no CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database at path and applies the
// bet and ledger schemas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply ledger schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// LoadTotalLocked returns the persisted pool counter.
func (s *SQLiteStorage) LoadTotalLocked(ctx context.Context) (uint64, error) {
	var locked amount
	err := s.db.QueryRowContext(ctx, `SELECT total_locked FROM pool_state WHERE id = 1`).Scan(&locked)
	if err != nil {
		return 0, fmt.Errorf("storage.LoadTotalLocked: %w", err)
	}
	return uint64(locked), nil
}

// CommitPlacement inserts the bet, appends it to the owner's registry and
// stores the counter in one transaction.
func (s *SQLiteStorage) CommitPlacement(ctx context.Context, bet domain.Bet, totalLocked uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.CommitPlacement: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets (`+betColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		bet.ID, bet.Owner, bet.AssetID, amount(bet.NotionalAmount), bet.PremiumPercentage,
		amount(bet.PremiumAmount), amount(bet.StartPrice), amount(bet.StrikePrice),
		bet.StrikePercentage, bet.CapPercentage, amount(bet.ReservedPayout),
		unixNano(bet.CreatedAt), unixNano(bet.Expiry), unixNano(bet.ClaimWindowEnd),
		string(bet.Status), nullUnixNano(bet.SettledAt), amount(bet.SettlementPrice),
		amount(bet.Payout), amount(bet.Released),
	); err != nil {
		return fmt.Errorf("storage.CommitPlacement: insert bet %s: %w", bet.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bet_registry (owner, seq, bet_id)
		SELECT ?, COALESCE(MAX(seq) + 1, 0), ? FROM bet_registry WHERE owner = ?`,
		bet.Owner, bet.ID, bet.Owner,
	); err != nil {
		return fmt.Errorf("storage.CommitPlacement: register bet %s: %w", bet.ID, err)
	}

	if err := setTotalLocked(ctx, tx, totalLocked); err != nil {
		return fmt.Errorf("storage.CommitPlacement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.CommitPlacement: commit: %w", err)
	}
	return nil
}

// CommitSettlement moves an OPEN bet to its terminal state and stores the
// counter in one transaction.
func (s *SQLiteStorage) CommitSettlement(ctx context.Context, bet domain.Bet, totalLocked uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.CommitSettlement: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE bets SET
		  status = ?, settled_at = ?, settlement_price = ?, payout = ?, released = ?
		WHERE id = ? AND status = 'OPEN'`,
		string(bet.Status), nullUnixNano(bet.SettledAt), amount(bet.SettlementPrice),
		amount(bet.Payout), amount(bet.Released), bet.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.CommitSettlement: update bet %s: %w", bet.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.CommitSettlement: rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets WHERE id = ?`, bet.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("storage.CommitSettlement: lookup %s: %w", bet.ID, err)
		}
		if exists == 0 {
			return fmt.Errorf("storage.CommitSettlement: %s: %w", bet.ID, domain.ErrBetNotFound)
		}
		return fmt.Errorf("storage.CommitSettlement: %s: %w", bet.ID, domain.ErrAlreadyFinalized)
	}

	if err := setTotalLocked(ctx, tx, totalLocked); err != nil {
		return fmt.Errorf("storage.CommitSettlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.CommitSettlement: commit: %w", err)
	}
	return nil
}

// GetBet returns the bet with the given id.
func (s *SQLiteStorage) GetBet(ctx context.Context, id string) (domain.Bet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id = ?`, id)
	bet, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, fmt.Errorf("storage.GetBet: %s: %w", id, domain.ErrBetNotFound)
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("storage.GetBet: %s: %w", id, err)
	}
	return bet, nil
}

// ListOwnerBets returns a page of bet ids in placement order.
func (s *SQLiteStorage) ListOwnerBets(ctx context.Context, owner string, offset, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT bet_id FROM bet_registry
		WHERE owner = ?
		ORDER BY seq
		LIMIT ? OFFSET ?`,
		owner, limit, max(offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOwnerBets: query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.ListOwnerBets: scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountOwnerBets returns how many bets the owner ever placed.
func (s *SQLiteStorage) CountOwnerBets(ctx context.Context, owner string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bet_registry WHERE owner = ?`, owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountOwnerBets: %w", err)
	}
	return n, nil
}

// ListOpenBets returns every OPEN bet, oldest first.
func (s *SQLiteStorage) ListOpenBets(ctx context.Context) ([]domain.Bet, error) {
	bets, err := s.queryBets(ctx, `WHERE status = 'OPEN' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("storage.ListOpenBets: %w", err)
	}
	return bets, nil
}

// ListUnlockable returns OPEN bets whose claim window ended before now.
func (s *SQLiteStorage) ListUnlockable(ctx context.Context, now time.Time, limit int) ([]domain.Bet, error) {
	if limit <= 0 {
		limit = -1
	}
	bets, err := s.queryBets(ctx,
		`WHERE status = 'OPEN' AND claim_window_end < ? ORDER BY claim_window_end, id LIMIT ?`,
		unixNano(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.ListUnlockable: %w", err)
	}
	return bets, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- internal helpers ---

func (s *SQLiteStorage) queryBets(ctx context.Context, where string, args ...any) ([]domain.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+betColumns+` FROM bets `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		bets = append(bets, bet)
	}
	return bets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(r rowScanner) (domain.Bet, error) {
	var (
		b                                          domain.Bet
		notional, premium, start, strike, reserved amount
		settlementPrice, payout, released          amount
		createdAt, expiry, windowEnd               int64
		settledAt                                  sql.NullInt64
		status                                     string
	)
	if err := r.Scan(
		&b.ID, &b.Owner, &b.AssetID, &notional, &b.PremiumPercentage, &premium, &start,
		&strike, &b.StrikePercentage, &b.CapPercentage, &reserved, &createdAt, &expiry,
		&windowEnd, &status, &settledAt, &settlementPrice, &payout, &released,
	); err != nil {
		return domain.Bet{}, err
	}
	b.NotionalAmount = uint64(notional)
	b.PremiumAmount = uint64(premium)
	b.StartPrice = uint64(start)
	b.StrikePrice = uint64(strike)
	b.ReservedPayout = uint64(reserved)
	b.CreatedAt = time.Unix(0, createdAt).UTC()
	b.Expiry = time.Unix(0, expiry).UTC()
	b.ClaimWindowEnd = time.Unix(0, windowEnd).UTC()
	b.Status = domain.BetStatus(status)
	if settledAt.Valid {
		t := time.Unix(0, settledAt.Int64).UTC()
		b.SettledAt = &t
	}
	b.SettlementPrice = uint64(settlementPrice)
	b.Payout = uint64(payout)
	b.Released = uint64(released)
	return b, nil
}

func setTotalLocked(ctx context.Context, tx *sql.Tx, totalLocked uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE pool_state SET total_locked = ?, updated_at = ? WHERE id = 1`,
		amount(totalLocked), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	return nil
}

func unixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func nullUnixNano(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().UnixNano()
}
