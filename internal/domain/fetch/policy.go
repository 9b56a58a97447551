package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/upshot/pkg/metrics"
)

// Default retry policy: one retry, three seconds apart.
const (
	DefaultAttempts = 2
	DefaultDelay    = 3 * time.Second
)

// Policy is a bounded retry loop around a Fetcher.
type Policy struct {
	// Attempts is the total number of fetches, first try included.
	Attempts int
	// Delay is the wait before each retry.
	Delay time.Duration
	// OnRetry, if set, is called before waiting with the attempt that failed.
	OnRetry func(attempt int, reason error)
}

// DefaultPolicy returns the two-attempt, three-second policy.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay}
}

// Do fetches url, retrying after Delay until a fetch succeeds or Attempts
// are exhausted. It returns the last Result. The wait ends early only when
// ctx is done, in which case the fetch is reported as ErrCancelled.
func (p Policy) Do(ctx context.Context, f Fetcher, url string) Result {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var res Result
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.RecordFetchRetry()
			if err := wait(ctx, p.Delay); err != nil {
				res = Failure(fmt.Errorf("%w: %w", ErrCancelled, err))
				res.attempts = attempt - 1
				return res
			}
		}

		start := time.Now()
		res = f.FetchOnce(ctx, url)
		latency := float64(time.Since(start).Milliseconds())
		res.attempts = attempt

		if res.OK() {
			metrics.RecordFetchAttempt(metrics.OutcomeSuccess, latency)
			return res
		}
		metrics.RecordFetchAttempt(metrics.OutcomeFailure, latency)

		if attempt < attempts && p.OnRetry != nil {
			p.OnRetry(attempt, res.Err())
		}
	}
	return res
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
