package acquire

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/ragline/normalize"
	"github.com/tmc/langchaingo/httputil"
)

// DefaultFetchTimeout bounds a single direct page fetch.
const DefaultFetchTimeout = 15 * time.Second

// maxPageBytes caps how much of a page is read.
const maxPageBytes = 5 << 20

// HTTPFetcher fetches pages over HTTP and converts HTML to cleaned text.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	limiter *RateLimiter
	logger  *slog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithFetchClient sets the HTTP client.
func WithFetchClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithFetchTimeout sets the per-page timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithFetchRateLimit paces fetches.
func WithFetchRateLimit(perSecond float64, burst int) FetcherOption {
	return func(f *HTTPFetcher) {
		f.limiter = NewRateLimiter(perSecond, burst)
	}
}

// WithFetchLogger sets the logger.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates a fetcher using langchaingo's default HTTP client.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  httputil.DefaultClient,
		timeout: DefaultFetchTimeout,
		limiter: NewRateLimiter(2, 2),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "direct-fetcher")
	return f
}

// Fetch downloads url and returns its cleaned text.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	f.limiter.ObserveResponse(resp, 30*time.Second)
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: GET %s", ErrRateLimited, url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: GET %s: %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}

	text, err := normalize.HTMLToText(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	f.logger.Debug("fetched page", "url", url, "length", len(text))
	return text, nil
}
