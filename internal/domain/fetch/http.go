package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/okian/upshot/internal/domain/model"
)

// Default HTTP fetcher settings.
const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBytes     = 20 << 20
	octetStream         = "application/octet-stream"
)

// HTTPFetcher fetches images with plain GET requests.
type HTTPFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// Option applies a configuration option to the HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPFetcher creates a fetcher with configuration options.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{},
		timeout:  defaultFetchTimeout,
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchOnce GETs url and returns the body with its image media type.
// Non-2xx statuses, oversized bodies and non-image content all fail.
func (f *HTTPFetcher) FetchOnce(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrUnreachable, err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrUnreachable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failure(fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrRead, err))
	}
	if int64(len(body)) > f.maxBytes {
		return Failure(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes))
	}

	contentType, err := imageType(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return Failure(err)
	}

	return Success(model.Image{
		ContentType: contentType,
		Body:        body,
	})
}

// imageType resolves the media type from the declared header, sniffing the
// body when the remote does not declare anything useful.
func imageType(declared string, body []byte) (string, error) {
	mediaType := ""
	if declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	if mediaType == "" || mediaType == octetStream {
		mt, _, err := mime.ParseMediaType(http.DetectContentType(body))
		if err != nil {
			return "", errors.Join(ErrNotImage, err)
		}
		mediaType = mt
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mediaType)
	}
	return mediaType, nil
}
