// Package fetch retrieves remote screenshots and applies the retry policy.
package fetch

import (
	"context"

	"github.com/okian/upshot/internal/domain/model"
)

// Fetcher performs a single remote read.
type Fetcher interface {
	FetchOnce(ctx context.Context, url string) Result
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) Result

// FetchOnce calls f.
func (f FetcherFunc) FetchOnce(ctx context.Context, url string) Result { return f(ctx, url) }

// Result is either a fetched image or the reason the fetch failed.
type Result struct {
	image    model.Image
	err      error
	attempts int
}

// Success wraps a fetched image.
func Success(img model.Image) Result {
	return Result{image: img}
}

// Failure wraps the reason a fetch failed. A nil reason is reported as ErrUnreachable.
func Failure(reason error) Result {
	if reason == nil {
		reason = ErrUnreachable
	}
	return Result{err: reason}
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.err == nil }

// Image returns the fetched image; zero when !OK().
func (r Result) Image() model.Image { return r.image }

// Err returns the failure reason, nil on success.
func (r Result) Err() error { return r.err }

// Attempts is the number of fetches Policy.Do made to produce r.
func (r Result) Attempts() int { return r.attempts }
