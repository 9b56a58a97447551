// Package repository defines the counter store interface and its backends.
package repository

import (
	"context"
	"sort"

	"github.com/okian/upshot/internal/domain/model"
)

// Store provides read/write access to per-key hit counts.
type Store interface {
	// Get returns the count for key, 0 if the key was never recorded.
	Get(ctx context.Context, key string) (int64, error)

	// Increment adds one to key (starting from 0) and returns the new count.
	// The new count is persisted before Increment returns.
	Increment(ctx context.Context, key string) (int64, error)

	// Snapshot returns the full key -> count mapping.
	Snapshot(ctx context.Context) (map[string]int64, error)

	// Flush persists any buffered state.
	Flush(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Rows converts a snapshot to rows ordered by key.
func Rows(snapshot map[string]int64) []model.HitCount {
	rows := make([]model.HitCount, 0, len(snapshot))
	for k, v := range snapshot {
		rows = append(rows, model.HitCount{Key: k, Count: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}
