package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"alerter/internal/domain"
)

// Journal records every per-account dispatch outcome in SQLite, so partial
// executions across accounts can be audited after the fact.
type Journal struct {
	db *sql.DB
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	at        TEXT NOT NULL,
	message   TEXT NOT NULL,
	account   TEXT NOT NULL,
	status    TEXT NOT NULL,
	symbol    TEXT,
	strike    REAL,
	put_call  TEXT,
	expiry    TEXT,
	contracts INTEGER,
	max_fill  REAL,
	order_id  TEXT,
	error     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outcomes_account ON outcomes(account, at);
`

// OpenJournal opens (or creates) the journal database at dbPath.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record inserts one outcome row.
func (j *Journal) Record(ctx context.Context, message string, o domain.Outcome) error {
	var strike sql.NullFloat64
	if o.Intent.Strike != nil {
		strike = sql.NullFloat64{Float64: *o.Intent.Strike, Valid: true}
	}
	var errText sql.NullString
	if o.Err != nil {
		errText = sql.NullString{String: o.Err.Error(), Valid: true}
	}

	at := o.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO outcomes
			(at, message, account, status, symbol, strike, put_call, expiry, contracts, max_fill, order_id, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at.Format(time.RFC3339),
		message,
		o.Account,
		string(o.Status),
		o.Intent.Symbol,
		strike,
		string(o.Intent.PutCall),
		o.Intent.Expiry.Format("2006-01-02"),
		o.Contracts,
		o.MaxFill,
		o.OrderID,
		errText,
	)
	if err != nil {
		return fmt.Errorf("inserting outcome for %s: %w", o.Account, err)
	}
	return nil
}

// JournalEntry is one recorded outcome.
type JournalEntry struct {
	At        time.Time
	Message   string
	Account   string
	Status    string
	Symbol    string
	Contracts int
	OrderID   string
	Error     string
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT at, message, account, status, symbol, contracts, order_id, COALESCE(error, '')
		FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var at string
		if err := rows.Scan(&at, &e.Message, &e.Account, &e.Status, &e.Symbol, &e.Contracts, &e.OrderID, &e.Error); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
