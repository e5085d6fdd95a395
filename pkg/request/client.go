package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"pdfspeak/pkg/cache"
	"pdfspeak/pkg/tracker"
	"pdfspeak/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("pdfspeak/%s (+https://github.com/pdfspeak/pdfspeak)", version.Version)

// StatusError is returned for HTTP responses with a status of 400 or above.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Options tunes a Client. Retries is the number of extra attempts after the
// first one; zero means fail on the first error.
type Options struct {
	Timeout   time.Duration
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Client performs synchronous HTTP requests with optional caching, backoff,
// and tracking.
type Client struct {
	httpClient *http.Client
	cache      cache.Cacher
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	retries    int
}

// New creates a new Client. c may be nil to disable caching.
func New(c cache.Cacher, t *tracker.Tracker, opts Options) *Client {
	if c == nil {
		c = cache.Nop{}
	}
	if t == nil {
		t = tracker.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      c,
		tracker:    t,
		backoff:    NewProviderBackoff(opts.BaseDelay, opts.MaxDelay),
		retries:    opts.Retries,
	}
}

// PostWithCache performs a POST request. Successful responses are stored
// under cacheKey and later calls with the same key skip the network; an
// empty key disables caching for the call.
func (c *Client) PostWithCache(ctx context.Context, u string, body []byte, headers map[string]string, cacheKey string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := parsedURL.Host

	if cacheKey != "" {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			slog.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		slog.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	respBody, err := c.executeWithBackoff(ctx, http.MethodPost, u, body, headers, provider)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		return nil, err
	}
	c.tracker.TrackAPISuccess(provider)

	if cacheKey != "" {
		if err := c.cache.SetCache(ctx, cacheKey, respBody); err != nil {
			slog.Error("Failed to cache response", "url", u, "error", err)
		}
	}
	return respBody, nil
}

// executeWithBackoff sends the request, retrying network errors, 429 and 5xx
// up to the configured retry count.
func (c *Client) executeWithBackoff(ctx context.Context, method, u string, body []byte, headers map[string]string, provider string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.backoff.Wait(ctx, provider); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		setHeaders(req, headers)

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		respBody, retry, err := c.roundTrip(req)
		if err == nil {
			c.backoff.RecordSuccess(provider)
			return respBody, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retry {
			return nil, err
		}

		lastErr = err
		c.backoff.RecordFailure(provider)
		if attempt < c.retries {
			slog.Warn("Request failed, retrying", "host", provider, "attempt", attempt+1, "error", err)
		}
	}
	return nil, lastErr
}

func (c *Client) roundTrip(req *http.Request) (body []byte, retry bool, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read error: %w", err)
	}

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, statusErr
	}
	return body, false, nil
}

func setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
