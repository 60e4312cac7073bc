// Package journal keeps a local SQLite copy of execution records for
// diagnostics. It is a side channel for operators inspecting dropped or
// failed deliveries; it never feeds redelivery, so collector ingestion
// stays at-most-once.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petal-labs/toolscope"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS execution_records (
	execution_id TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	recorded_at TEXT NOT NULL
);`

// StoreConfig configures the SQLite-backed journal.
type StoreConfig struct {
	// DSN is the SQLite path or DSN. Required.
	DSN string
}

// Store persists execution records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite-backed journal.
func NewStore(cfg StoreConfig) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("journal: sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("journal: sqlite open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: sqlite set WAL mode: %w", err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: sqlite create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append stores one record. Appending the same execution id again
// overwrites the previous row.
func (s *Store) Append(ctx context.Context, rec toolscope.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return errors.New("journal: store is nil")
	}
	if strings.TrimSpace(rec.ExecutionID) == "" {
		return errors.New("journal: record execution id is required")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO execution_records (execution_id, payload, recorded_at)
VALUES (?, ?, ?)
ON CONFLICT(execution_id) DO UPDATE SET
	payload = excluded.payload,
	recorded_at = excluded.recorded_at`,
		rec.ExecutionID,
		payload,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: insert record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]toolscope.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, errors.New("journal: store is nil")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT payload
FROM execution_records
ORDER BY recorded_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query records: %w", err)
	}
	defer rows.Close()

	var records []toolscope.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("journal: scan record: %w", err)
		}
		var rec toolscope.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("journal: decode record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: record rows: %w", err)
	}
	return records, nil
}

// Prune deletes records recorded before the cutoff and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.db == nil {
		return 0, errors.New("journal: store is nil")
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM execution_records WHERE recorded_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: prune records: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("journal: prune rows affected: %w", err)
	}
	return removed, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
