package hitgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/upshot/pkg/logger"
)

// Errors returned by Run.
var (
	ErrCountMismatch = errors.New("hit counts do not match requests sent")
	ErrInvalidConfig = errors.New("invalid load configuration")
)

// validate checks the run can be planned.
func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url must not be empty", ErrInvalidConfig)
	case c.Keys < 1 || c.Keys > MaxKeys:
		return fmt.Errorf("%w: keys must be between 1 and %d", ErrInvalidConfig, MaxKeys)
	case c.Requests < 0:
		return fmt.Errorf("%w: requests must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get().Named("hitgen")
	stats := &Stats{StartTime: time.Now()}

	if err := config.validate(); err != nil {
		return stats, err
	}

	log.Info(ctx, "starting upshot load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("keys", config.Keys),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config.BaseURL); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Snapshot counts
	before, err := fetchCounts(ctx, client, config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("initial snapshot failed: %w", err)
	}

	// Step 3: Generate keys and plan
	keys := GenerateKeys(config.Keys)
	stats.KeysGenerated = len(keys)
	seq, expected := Plan(keys, config.Requests)

	// Step 4: Send requests concurrently
	sendHits(ctx, config, seq, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}

	// Step 5: Snapshot counts again and verify
	after, err := fetchCounts(ctx, client, config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("final snapshot failed: %w", err)
	}
	stats.Mismatches = verifyCounts(before, after, expected)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if len(stats.Mismatches) > 0 {
		for _, m := range stats.Mismatches {
			log.Error(ctx, "count mismatch",
				logger.String("key", m.Key),
				logger.Int64("expected", m.Expected),
				logger.Int64("got", m.Got),
			)
		}
		return stats, fmt.Errorf("%w: %d keys", ErrCountMismatch, len(stats.Mismatches))
	}

	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Any 200 is healthy; the body is the Prometheus exposition.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var servedRate, requestsPerSecond float64

	if stats.RequestsSent > 0 {
		servedRate = float64(stats.Served) / float64(stats.RequestsSent) * percentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsSent) / stats.Duration.Seconds()
	}

	logger.Get().Named("hitgen").Info(ctx, "final statistics",
		logger.Int("keysGenerated", stats.KeysGenerated),
		logger.Int("requestsSent", stats.RequestsSent),
		logger.Int("served", stats.Served),
		logger.Int("notFound", stats.NotFound),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("servedRate", servedRate),
		logger.Float64("requestsPerSecond", requestsPerSecond),
	)
}
