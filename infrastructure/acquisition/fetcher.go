// Package acquisition fetches complaint documents and flattens them to
// plain text for the dataset builder.
package acquisition

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/litcast/internal/ports"
)

var _ ports.DocumentFetcher = (*HTTPFetcher)(nil)

// Fetcher defaults.
const (
	DefaultFetchTimeout = 60 * time.Second
	DefaultMaxBytes     = 50 << 20
	// DefaultUserAgent identifies the client; sec.gov rejects anonymous agents.
	DefaultUserAgent = "litcast-benchmark/1.0 (research; contact@example.com)"
)

// HTTPFetcher downloads documents over HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string

	// inflight collapses concurrent fetches of one URL.
	inflight singleflight.Group
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) { f.maxBytes = n }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// NewHTTPFetcher returns a fetcher with a DefaultFetchTimeout client.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Timeout: DefaultFetchTimeout},
		maxBytes:  DefaultMaxBytes,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url. Non-2xx responses and oversized bodies are returned as
// *ports.DocumentError. Concurrent calls for the same url share one request.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (ports.Document, error) {
	v, err, shared := f.inflight.Do(url, func() (any, error) {
		return f.fetch(ctx, url)
	})
	if shared {
		clog.FromContext(ctx).With("url", url).Debug("shared in-flight fetch")
	}
	if err != nil {
		return ports.Document{}, err
	}
	return v.(ports.Document), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (ports.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.Document{}, ports.NewDocumentError(url, 0, fmt.Errorf("%w: %v", ports.ErrFetchFailed, err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return ports.Document{}, ports.NewDocumentError(url, 0, fmt.Errorf("%w: %w", ports.ErrFetchFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ports.Document{}, ports.NewDocumentError(url, resp.StatusCode, ports.ErrFetchFailed)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return ports.Document{}, ports.NewDocumentError(url, resp.StatusCode, fmt.Errorf("%w: %w", ports.ErrFetchFailed, err))
	}
	if int64(len(body)) > f.maxBytes {
		return ports.Document{}, ports.NewDocumentError(url, resp.StatusCode, ports.ErrDocumentTooLarge)
	}

	clog.FromContext(ctx).With("url", url, "bytes", len(body), "elapsed", time.Since(start)).Debug("fetched document")

	return ports.Document{
		URL:         url,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
