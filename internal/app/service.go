// Package service wires the counter store, the single writer and the remote
// fetcher into the operations the HTTP API needs.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/upshot/internal/adapters/mq/queue"
	"github.com/okian/upshot/internal/adapters/mq/worker"
	"github.com/okian/upshot/internal/adapters/repository"
	"github.com/okian/upshot/internal/domain/fetch"
	"github.com/okian/upshot/internal/domain/imagekey"
	"github.com/okian/upshot/internal/domain/model"
	"github.com/okian/upshot/pkg/logger"
	"github.com/okian/upshot/pkg/metrics"
)

const (
	defaultQueueSize       = 1024
	defaultShutdownTimeout = 10 * time.Second
)

// Service implements the API dependencies for the screenshot proxy.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	fetcher fetch.Fetcher
	policy  fetch.Policy
	queue   *queue.InMemoryQueue
	writer  *worker.Writer

	// Configuration
	baseURL     string
	backendName string
	queueSize   int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the counter store. The service closes it on Stop.
func WithStore(store repository.Store, backend string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.backendName = backend
		}
	}
}

// WithFetcher sets the remote fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithRetryPolicy sets the fetch retry policy.
func WithRetryPolicy(p fetch.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithBaseURL sets the remote prefix keys are appended to.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// WithQueueSize sets the capacity of the hit queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		policy:    fetch.DefaultPolicy(),
		queueSize: defaultQueueSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.backendName = repository.BackendMemory
	}
	if s.fetcher == nil {
		s.fetcher = fetch.NewHTTPFetcher()
	}

	return s
}

// Start creates the hit queue and starts the writer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue, s.store, worker.WithLogger(s.logger.Named("writer")))
	go s.writer.Run(ctx)

	s.started = true
	s.logger.Info(ctx, "screenshot service started",
		logger.String("backend", s.backendName),
		logger.String("baseURL", s.baseURL),
		logger.Int("queueSize", s.queueSize),
		logger.Int("attempts", s.policy.Attempts),
		logger.Duration("retryDelay", s.policy.Delay),
	)

	return nil
}

// Stop closes the queue, waits for the writer to drain it and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping screenshot service...")

	_ = s.queue.Close()
	if err := s.writer.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "writer shutdown failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "screenshot service stopped")
}

// Record adds one hit for key and returns the new count. Callers treat the
// error as loggable only; a failed count never blocks the fetch.
//
// The hit is queued even when ctx is already done, so a client that hangs up
// is still counted. ctx only bounds how long Record waits for the reply.
func (s *Service) Record(ctx context.Context, key imagekey.Key) (int64, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()

	if !started {
		return 0, ErrNotStarted
	}

	job := queue.NewJob(key.String())
	if !q.Enqueue(context.WithoutCancel(ctx), job) {
		return 0, fmt.Errorf("record %s: %w", key, queue.ErrClosed)
	}

	select {
	case r := <-job.Reply:
		return r.Count, r.Err
	case <-ctx.Done():
		return 0, fmt.Errorf("record %s: %w", key, ctx.Err())
	}
}

// Fetch retrieves key from the remote under the retry policy. The retry runs
// to completion even if the client goes away; each attempt is bounded by the
// fetcher's own timeout.
func (s *Service) Fetch(ctx context.Context, key imagekey.Key) fetch.Result {
	url := key.RemoteURL(s.baseURL)

	policy := s.policy
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, reason error) {
			s.log().Warn(ctx, "fetch failed, retrying",
				logger.String("key", key.String()),
				logger.Int("attempt", attempt),
				logger.Duration("delay", policy.Delay),
				logger.Error(reason),
			)
		}
	}

	res := policy.Do(context.WithoutCancel(ctx), s.fetcher, url)
	if !res.OK() {
		s.log().Info(ctx, "image not found",
			logger.String("key", key.String()),
			logger.Int("attempts", res.Attempts()),
			logger.Error(res.Err()),
		)
	}
	return res
}

// Snapshot returns the full counter store mapping.
func (s *Service) Snapshot(ctx context.Context) (map[string]int64, error) {
	start := time.Now()
	snap, err := s.store.Snapshot(ctx)
	metrics.RecordStoreLatency("snapshot", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordErrorByComponent("store", "snapshot_failed")
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// Counts returns every counter row ordered by key.
func (s *Service) Counts(ctx context.Context) ([]model.HitCount, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rows := repository.Rows(snap)
	metrics.UpdateStoreTotals(len(rows), model.TotalHits(rows))
	return rows, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":   s.started,
		"backend":   s.backendName,
		"baseURL":   s.baseURL,
		"queueSize": s.queueSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateWriterQueueSize(queueLen)

		if rows, err := s.Counts(ctx); err == nil {
			stats["totalKeys"] = len(rows)
			stats["totalHits"] = model.TotalHits(rows)
		}
	}

	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}
