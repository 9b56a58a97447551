package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a persistent Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dsn and initialises
// the schema. Use ":memory:" for an in-memory database.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS upshot_hits (
			key   TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the count for key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM upshot_hits WHERE key = ?`, key).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("repository: sqlite get: %w", err)
	}
	return count, nil
}

// Increment atomically upserts key and returns the new count.
func (s *SQLiteStore) Increment(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO upshot_hits (key, count) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET count = count + 1
		RETURNING count`, key,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlite increment: %w", ErrPersist, err)
	}
	return count, nil
}

// Snapshot returns every row.
func (s *SQLiteStore) Snapshot(ctx context.Context) (map[string]int64, error) {
	return scanCounts(ctx, s.db, `SELECT key, count FROM upshot_hits`)
}

// Flush is a no-op; SQLite commits each statement.
func (s *SQLiteStore) Flush(context.Context) error { return nil }

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanCounts(ctx context.Context, db *sql.DB, query string) (map[string]int64, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("repository: snapshot scan: %w", err)
		}
		out[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: snapshot rows: %w", err)
	}
	return out, nil
}
