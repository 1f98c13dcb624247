package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"affilink/pkg/models"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Client is the shared page fetcher for the HTML extractors. Transient
// failures (network errors, timeouts, 429, 5xx) are retried with
// exponential backoff; 4xx responses are permanent and fail immediately.
type Client struct {
	http      *http.Client
	userAgent string
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

type Options struct {
	Timeout   time.Duration // per attempt
	UserAgent string
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		attempts:  opts.Attempts,
		baseDelay: opts.BaseDelay,
		maxDelay:  opts.MaxDelay,
	}
}

func (c *Client) UserAgent() string { return c.userAgent }
func (c *Client) Attempts() int     { return c.attempts }

// Get fetches url and returns the response body. It retries transient
// failures up to the configured attempt count, doubling the delay each
// time, and aborts promptly when ctx is cancelled.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		body, err := c.doGET(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Permanent failures are not worth another attempt.
		if permanent, ok := err.(*statusError); ok && permanent.permanent() {
			return nil, fmt.Errorf("%w: status %d for %s", models.ErrPageNotAccessible, permanent.status, url)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", models.ErrFetchExhausted, c.attempts, lastErr)
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d", e.status)
}

// permanent reports whether the status should never be retried. 429 is
// rate limiting and treated as transient like 5xx.
func (e *statusError) permanent() bool {
	return e.status >= 400 && e.status < 500 && e.status != http.StatusTooManyRequests
}

func (c *Client) doGET(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
