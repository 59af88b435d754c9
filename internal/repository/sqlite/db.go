// Package sqlite implements the repository interfaces on an embedded SQLite
// database. Each row keeps the columns needed for lookups, uniqueness and range
// scans next to a JSON payload holding the full document.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS week_templates (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		is_active INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_owner ON week_templates(kind, owner_id, is_active)`,
	`CREATE TABLE IF NOT EXISTS calendar_entries (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		date TEXT NOT NULL,
		payload BLOB NOT NULL,
		UNIQUE(kind, subject_id, date)
	)`,
	// session_id and item_id use '' for "absent": NULLs never collide in a UNIQUE constraint.
	`CREATE TABLE IF NOT EXISTS tracking_records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		item_id TEXT NOT NULL DEFAULT '',
		tracked_date TEXT NOT NULL,
		payload BLOB NOT NULL,
		UNIQUE(entry_id, session_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracking_range ON tracking_records(kind, subject_id, tracked_date)`,
	`CREATE TABLE IF NOT EXISTS library_items (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS progress_samples (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		measured_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_range ON progress_samples(subject_id, metric, measured_at)`,
}

// Open opens (creating if needed) the database file and applies the schema.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "adherence.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers; read-modify-write transactions rely on it.
	db.SetMaxOpenConns(1)
	if err := EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates every table and index the repositories rely on.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
