// Package worker runs the single writer that applies queued increments to the counter store.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/upshot/internal/adapters/mq/queue"
	"github.com/okian/upshot/pkg/logger"
	"github.com/okian/upshot/pkg/metrics"
)

// Incrementer is the slice of the counter store the writer needs.
type Incrementer interface {
	Increment(ctx context.Context, key string) (int64, error)
	Flush(ctx context.Context) error
}

// Queue defines how the writer receives jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Writer applies jobs one at a time, in arrival order.
type Writer struct {
	queue Queue
	store Incrementer
	name  string

	done chan struct{}

	logger logger.Logger
}

// NewWriter creates a writer with configuration options.
func NewWriter(q Queue, store Incrementer, opts ...Option) *Writer {
	w := &Writer{
		queue: q,
		store: store,
		name:  "writer",
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run drains the queue until it is closed. Store calls are not cancelled
// with ctx so that every accepted job gets a reply.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	storeCtx := context.WithoutCancel(ctx)
	for job := range w.queue.Dequeue(ctx) {
		job.Reply <- w.apply(storeCtx, job.Key)
	}
}

func (w *Writer) apply(ctx context.Context, key string) queue.Reply {
	start := time.Now()
	count, err := w.store.Increment(ctx, key)
	latency := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordStoreLatency("increment", latency)

	if err != nil {
		metrics.RecordHitFailure()
		metrics.RecordErrorByComponent("store", "increment_failed")
		metrics.RecordErrorByType("store_error", "high")
		w.logger.Error(ctx, "increment failed",
			logger.String("key", key),
			logger.Error(err),
		)
		return queue.Reply{Err: fmt.Errorf("increment %s: %w", key, err)}
	}

	metrics.RecordHit()
	w.logger.Debug(ctx, "hit recorded", logger.String("key", key), logger.Int64("count", count))
	return queue.Reply{Count: count}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

// Shutdown waits for Run to drain the (already closed) queue, then flushes
// the store.
func (w *Writer) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
	case <-ctx.Done():
		w.logger.Warn(ctx, "writer shutdown timed out")
		return fmt.Errorf("writer shutdown timed out: %w", ctx.Err())
	}

	if err := w.store.Flush(ctx); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}
