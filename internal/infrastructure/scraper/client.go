package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/worthit/backend/internal/domain"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a search page is read
const maxBodyBytes = 5 << 20

// defaultUserAgents rotates across requests
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

// Client handles HTTP access to retailer search pages. Requests are paced
// per host.
type Client struct {
	httpClient *http.Client
	rps        rate.Limit
	burst      int
	userAgents []string
	next       atomic.Uint32
	debug      bool
	logger     *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a client with a request timeout and a per-host rate
func NewClient(timeout time.Duration, requestsPerSecond float64, burst int, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	if burst <= 0 {
		burst = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		rps:        rate.Limit(requestsPerSecond),
		burst:      burst,
		userAgents: defaultUserAgents,
		logger:     logger.With("component", "http-client"),
		limiters:   make(map[string]*rate.Limiter),
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// UserAgent returns the next user agent of the rotation
func (c *Client) UserAgent() string {
	n := c.next.Add(1)
	return c.userAgents[int(n-1)%len(c.userAgents)]
}

// Get fetches rawURL and returns at most maxBodyBytes of its body
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	if err := c.wait(ctx, u.Host); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.debugLog("non-200 response", "url", rawURL, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailed, resp.StatusCode)
	}

	body, err := readLimitedBody(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.debugLog("fetched page", "url", rawURL, "bytes", len(body))
	return body, nil
}

// doRequest executes an HTTP GET request with browser-like headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent())
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	return resp, nil
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done
func (c *Client) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse url: %w", err)
	}
	return c.wait(ctx, u.Host)
}

func (c *Client) wait(ctx context.Context, host string) error {
	if err := c.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.rps, c.burst)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.debug {
		c.logger.Debug(msg, args...)
	}
}

func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
