package hitgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/upshot/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request bound to ctx.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// fetchCounts reads the raw counter store mapping from the proxy.
func fetchCounts(ctx context.Context, client *HTTPClient, baseURL string) (map[string]int64, error) {
	resp, err := client.Get(ctx, baseURL+"/dashboard/analytics.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read counts: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("counts request failed with status: %d", resp.StatusCode)
	}

	counts := map[string]int64{}
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		return nil, fmt.Errorf("failed to decode counts: %w", err)
	}
	return counts, nil
}

// sendHits requests every key in seq using a worker pool and tallies outcomes.
func sendHits(ctx context.Context, config *Config, seq []string, stats *Stats) {
	log := logger.Get().Named("hitgen")
	log.Info(ctx, "sending requests",
		logger.Int("requests", len(seq)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)

	var served, notFound, rejected, failed, sent int64
	var lastReport atomic.Int64

	keyChan := make(chan string, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range keyChan {
				outcome := sendHit(ctx, client, config.BaseURL+"/"+key)
				atomic.AddInt64(&sent, 1)
				switch outcome {
				case outcomeServed:
					atomic.AddInt64(&served, 1)
				case outcomeNotFound:
					atomic.AddInt64(&notFound, 1)
				case outcomeRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				if config.Verbose {
					log.Debug(ctx, "request done", logger.String("key", key), logger.String("outcome", outcome))
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int64("sent", atomic.LoadInt64(&sent)),
						logger.Int("total", len(seq)),
						logger.Int64("served", atomic.LoadInt64(&served)),
						logger.Int64("notFound", atomic.LoadInt64(&notFound)),
					)
				}
			}
		}()
	}

	go func() {
		defer close(keyChan)
		for _, key := range seq {
			select {
			case <-ctx.Done():
				return
			case keyChan <- key:
			}
		}
	}()

	wg.Wait()

	stats.RequestsSent = int(atomic.LoadInt64(&sent))
	stats.Served = int(atomic.LoadInt64(&served))
	stats.NotFound = int(atomic.LoadInt64(&notFound))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	stats.Failed = int(atomic.LoadInt64(&failed))
}

// sendHit requests one image and classifies the response.
func sendHit(ctx context.Context, client *HTTPClient, url string) string {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return outcomeFailed
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return outcomeServed
	case http.StatusNotFound:
		return outcomeNotFound
	case http.StatusBadRequest:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}
