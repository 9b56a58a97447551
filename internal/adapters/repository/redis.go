package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// hitsHash is the Redis hash holding every key's count.
const hitsHash = "upshot:hits"

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)

// RedisStore keeps counts as fields of a single Redis hash.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the count for key.
func (r *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := r.client.HGet(ctx, hitsHash, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("repository: redis get: %w", err)
	}
	return n, nil
}

// Increment uses HINCRBY, which is atomic on the server.
func (r *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	n, err := r.client.HIncrBy(ctx, hitsHash, key, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: redis increment: %w", ErrPersist, err)
	}
	return n, nil
}

// Snapshot returns every field of the hash.
func (r *RedisStore) Snapshot(ctx context.Context) (map[string]int64, error) {
	vals, err := r.client.HGetAll(ctx, hitsHash).Result()
	if err != nil {
		return nil, fmt.Errorf("repository: redis snapshot: %w", err)
	}
	out := make(map[string]int64, len(vals))
	for k, v := range vals {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("repository: redis parse count for %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

// Flush is a no-op; persistence is Redis' concern.
func (r *RedisStore) Flush(context.Context) error { return nil }

// Close closes the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
