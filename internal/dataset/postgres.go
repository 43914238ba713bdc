package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pricebot-pl/internal/classify"
	"github.com/pricebot-pl/internal/resolve"
)

// PGStore persists the dataset in PostgreSQL, one row per listing URL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore opens a connection and ensures the schema exists.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)

	store := &PGStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying connection pool.
func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS consolidated_listing (
			link        TEXT PRIMARY KEY,
			raw_address TEXT NOT NULL DEFAULT '',
			addr_key    TEXT NOT NULL DEFAULT '',
			unit_code   TEXT NOT NULL DEFAULT '',
			unit_name   TEXT NOT NULL DEFAULT '',
			court       TEXT NOT NULL DEFAULT '',
			confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
			method      TEXT NOT NULL DEFAULT 'unresolved',
			ownership   TEXT NOT NULL DEFAULT 'unknown',
			first_seen  TIMESTAMPTZ NOT NULL,
			last_seen   TIMESTAMPTZ NOT NULL,
			merge_count INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure consolidated_listing schema: %w", err)
	}
	return nil
}

// Load reads every consolidated record.
func (s *PGStore) Load(ctx context.Context) (*Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT link, raw_address, addr_key, unit_code, unit_name, court,
		       confidence, method, ownership, first_seen, last_seen, merge_count
		FROM consolidated_listing
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query consolidated_listing: %w", err)
	}
	defer rows.Close()

	ds := New()
	for rows.Next() {
		var rec ConsolidatedRecord
		var method, ownership string
		var firstSeen, lastSeen time.Time
		err := rows.Scan(
			&rec.URL, &rec.RawAddress, &rec.AddressKey,
			&rec.Resolution.UnitCode, &rec.Resolution.UnitName, &rec.Resolution.Court,
			&rec.Resolution.Confidence, &method, &ownership,
			&firstSeen, &lastSeen, &rec.MergeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consolidated_listing row: %w", err)
		}
		rec.Resolution.Method = resolve.Method(method)
		rec.Ownership = classify.Class(ownership)
		rec.FirstSeen = firstSeen
		rec.LastSeen = lastSeen
		ds.Swap(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read consolidated_listing rows: %w", err)
	}
	return ds, nil
}

// Save upserts every record in one transaction so a failed save leaves the
// previous state intact.
func (s *PGStore) Save(ctx context.Context, ds *Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO consolidated_listing (
			link, raw_address, addr_key, unit_code, unit_name, court,
			confidence, method, ownership, first_seen, last_seen, merge_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (link) DO UPDATE SET
			raw_address = EXCLUDED.raw_address,
			addr_key    = EXCLUDED.addr_key,
			unit_code   = EXCLUDED.unit_code,
			unit_name   = EXCLUDED.unit_name,
			court       = EXCLUDED.court,
			confidence  = EXCLUDED.confidence,
			method      = EXCLUDED.method,
			ownership   = EXCLUDED.ownership,
			first_seen  = EXCLUDED.first_seen,
			last_seen   = EXCLUDED.last_seen,
			merge_count = EXCLUDED.merge_count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range ds.Snapshot() {
		_, err := stmt.ExecContext(ctx,
			rec.URL, rec.RawAddress, rec.AddressKey,
			rec.Resolution.UnitCode, rec.Resolution.UnitName, rec.Resolution.Court,
			rec.Resolution.Confidence, string(rec.Resolution.Method), string(rec.Ownership),
			rec.FirstSeen, rec.LastSeen, rec.MergeCount,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert record %s: %w", rec.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset save: %w", err)
	}
	return nil
}
