// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and UPSHOT_* env vars.
// - External errors must be wrapped with this package's sentinel errors.
package config

import "time"

// Supported counter store backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BaseURL is the fixed remote prefix the image key is appended to.
	BaseURL string `koanf:"base_url"`

	// RetryDelayMS is the wait between the first failed fetch and the retry.
	RetryDelayMS int `koanf:"retry_delay_ms"`

	// FetchTimeoutMS bounds a single remote fetch attempt.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MaxImageBytes caps the size of a fetched image.
	MaxImageBytes int64 `koanf:"max_image_bytes"`

	// StoreBackend is one of file, memory, sqlite, redis, postgres.
	StoreBackend string `koanf:"store_backend"`

	// StorePath is the JSON file used by the file backend.
	StorePath string `koanf:"store_path"`

	SQLiteDSN     string `koanf:"sqlite_dsn"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	// WriterQueueSize bounds the pending increments in front of the store.
	WriterQueueSize int `koanf:"writer_queue_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		BaseURL:         "https://dl.dropboxusercontent.com/u/0/Screenshots/",
		RetryDelayMS:    3000,
		FetchTimeoutMS:  10000,
		MaxImageBytes:   20 << 20,
		StoreBackend:    BackendFile,
		StorePath:       "dashboard/analytics.json",
		SQLiteDSN:       "upshot.db",
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		WriterQueueSize: 1024,
	}
}

// RetryDelay returns RetryDelayMS as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}
