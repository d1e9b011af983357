// Package fetch is the HTTP client every acquisition strategy uses to talk to
// hosting platforms and to download media.
//
// Requests carry browser-like headers, responses are size-capped, and
// transient failures (network errors, 429, 5xx) get one bounded retry. An
// optional token-bucket limiter keeps quota-bound APIs within their budget.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/resilience"
)

// DefaultUserAgent mimics a desktop browser. Several platforms serve reduced
// or empty pages to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultMaxBytes caps a single response body at 512 MiB.
const DefaultMaxBytes int64 = 512 << 20

// ErrTooLarge is returned when a response body exceeds the client's cap.
var ErrTooLarge = errors.New("fetch: response body exceeds size limit")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	// Body holds the first bytes of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s: unexpected status %d", e.URL, e.StatusCode)
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

var _ resilience.TransientError = (*StatusError)(nil)

// IsStatus reports whether err carries a [StatusError] with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Response is a fully read HTTP response.
type Response struct {
	Body        []byte
	ContentType string
	// URL is the final URL after redirects.
	URL string
}

// Client is safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	metrics   *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent overrides [DefaultUserAgent].
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBytes overrides [DefaultMaxBytes].
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithRateLimit throttles outgoing requests to rps per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry overrides [resilience.StrategyRetry].
func WithRetry(rc resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithMetrics records request durations on m instead of the default metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{},
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBytes,
		retry:     resilience.StrategyRetry,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Get fetches rawURL. header may be nil.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	return c.do(ctx, rawURL, header)
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	h := cloneHeader(header)
	if h.Get("Accept") == "" {
		h.Set("Accept", "application/json")
	}
	resp, err := c.do(ctx, rawURL, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("fetch: decode %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL string, header http.Header) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("fetch: invalid URL %q", rawURL)
	}

	ctx, span := observe.StartSpan(ctx, "fetch GET "+u.Host)
	resp, err := resilience.Retry(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, u, header)
	})
	observe.EndSpan(span, err)
	return resp, err
}

func (c *Client) attempt(ctx context.Context, u *url.URL, header http.Header) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	c.setHeaders(req, header)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordFetch(ctx, u.Host, "error", time.Since(start))
		return nil, fmt.Errorf("fetch: GET %s: %w", u.Redacted(), err)
	}
	defer resp.Body.Close()
	c.metrics.RecordFetch(ctx, u.Host, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read %s: %w", u.Redacted(), err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.maxBytes)
	}
	return &Response{
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL.String(),
	}, nil
}

func (c *Client) setHeaders(req *http.Request, header http.Header) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
