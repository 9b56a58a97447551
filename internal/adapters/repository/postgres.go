package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres pool settings.
const (
	pgMaxConns        = 10
	pgConnMaxIdleTime = 5 * time.Minute
	pgConnMaxLifetime = 60 * time.Minute
	pgPingTimeout     = 5 * time.Second
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresStore is a Store backed by a Postgres table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn, checks the connection and creates the
// table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open postgres: %w", err)
	}

	db.SetConnMaxIdleTime(pgConnMaxIdleTime)
	db.SetConnMaxLifetime(pgConnMaxLifetime)
	db.SetMaxIdleConns(pgMaxConns)
	db.SetMaxOpenConns(pgMaxConns)

	pingCtx, cancel := context.WithTimeout(ctx, pgPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS upshot_hits (
			key   TEXT PRIMARY KEY,
			count BIGINT NOT NULL DEFAULT 0
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: create table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Get returns the count for key.
func (s *PostgresStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM upshot_hits WHERE key = $1`, key).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("repository: postgres get: %w", err)
	}
	return count, nil
}

// Increment atomically upserts key and returns the new count.
func (s *PostgresStore) Increment(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO upshot_hits (key, count) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET count = upshot_hits.count + 1
		RETURNING count`, key,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: postgres increment: %w", ErrPersist, err)
	}
	return count, nil
}

// Snapshot returns every row.
func (s *PostgresStore) Snapshot(ctx context.Context) (map[string]int64, error) {
	return scanCounts(ctx, s.db, `SELECT key, count FROM upshot_hits`)
}

// Flush is a no-op; each statement commits on its own.
func (s *PostgresStore) Flush(context.Context) error { return nil }

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
