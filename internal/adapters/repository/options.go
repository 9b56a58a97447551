package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/upshot/pkg/logger"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string

	// file
	Path string

	// sqlite
	SQLiteDSN string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// postgres
	PostgresDSN string

	Logger logger.Logger
}

// Open builds the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile, "":
		return NewFileStore(opts.Path, opts.Logger), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLiteDSN)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("repository: ping redis: %w", err)
		}
		return NewRedisStore(client), nil
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
