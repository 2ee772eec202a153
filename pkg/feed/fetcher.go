package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/papercomputeco/aide/pkg/memory"
)

const (
	// DefaultUserAgent identifies aide to feed servers.
	DefaultUserAgent = "aide-memoire/0.1"

	// DefaultTimeout bounds a single feed request.
	DefaultTimeout = 30 * time.Second

	// maxFeedBytes caps how much of a response body is read.
	maxFeedBytes = 32 << 20
)

// Config configures an HTTPFetcher.
type Config struct {
	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent with every request. Defaults to DefaultUserAgent.
	UserAgent string

	// RateLimit caps requests per second across all callers. Zero disables
	// limiting.
	RateLimit float64

	// Client overrides the HTTP client.
	Client *http.Client
}

// HTTPFetcher implements Fetcher over HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewHTTPFetcher creates a fetcher from c.
func NewHTTPFetcher(c Config) *HTTPFetcher {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}

	f := &HTTPFetcher{
		client:    client,
		userAgent: c.UserAgent,
	}
	if c.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(c.RateLimit), 1)
	}
	return f
}

// Fetch retrieves and parses the feed at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			// Wait also fails early when the deadline is too close to admit the request.
			return nil, fmt.Errorf("%w: waiting for rate limiter: %w", memory.ErrCanceled, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, memory.Canceled(ctxErr)
		}
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, memory.Canceled(ctxErr)
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	return Parse(url, body)
}
