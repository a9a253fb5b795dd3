package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	BackoffMultiple float64
	Jitter          float64
	MaxConnsPerHost int
}

// DefaultConfig returns sensible defaults for the HTTP client.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		BackoffMultiple: 2.0,
		Jitter:          0.2,
		MaxConnsPerHost: 100,
	}
}

// Client wraps http.Client with bounded retry logic and connection pooling.
// Only transient failures are retried: network errors and 5xx responses
// (except 501). 4xx responses are returned to the caller on the first attempt.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client with retry and connection pooling.
func New(cfg Config) *Client {
	if cfg.BackoffMultiple < 1 {
		cfg.BackoffMultiple = 2.0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 100 * time.Millisecond
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = cfg.RetryWaitMin
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// backoffWait returns the wait before retry attempt n (1-indexed), growing
// geometrically from RetryWaitMin, capped at RetryWaitMax, with optional
// random jitter to avoid thundering herds.
func (c *Client) backoffWait(attempt int) time.Duration {
	wait := float64(c.config.RetryWaitMin)
	for i := 1; i < attempt; i++ {
		wait *= c.config.BackoffMultiple
	}
	if max := float64(c.config.RetryWaitMax); wait > max {
		wait = max
	}
	if c.config.Jitter > 0 {
		wait += wait * c.config.Jitter * (2*rand.Float64() - 1) // #nosec G404 -- non-cryptographic jitter
	}
	return time.Duration(wait)
}

// Do executes an HTTP request, retrying transient failures up to MaxRetries
// times. The total number of attempts is therefore MaxRetries+1. If all
// attempts fail the last error is returned wrapped with the attempt count.
// Requests with a body are retried only when the body can be replayed via
// http.Request.GetBody.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoffWait(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt < c.config.MaxRetries && isRetryableError(ctx, err) && rewindBody(req) {
				continue
			}
			return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
		}

		// Retry on 5xx errors (except 501 Not Implemented).
		if resp.StatusCode >= 500 && resp.StatusCode != 501 && attempt < c.config.MaxRetries && rewindBody(req) {
			drainAndClose(resp)
			continue
		}

		return resp, nil
	}

	return resp, err
}

// Get performs an HTTP GET request with retry.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// Post performs an HTTP POST request with retry.
func (c *Client) Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// drainAndClose discards the remaining body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}

// isRetryableError determines if an error is retryable against the caller's
// context. Network errors are, including the client's own per-attempt
// timeout: http.Client surfaces that timeout as a deadline error, so a
// deadline error while ctx is still live means the attempt timed out, not
// the caller. Once ctx is done nothing is retried.
func isRetryableError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// rewindBody restores a fresh copy of the request body before a retry.
// Requests without a body, or with a replayable one, report true. A consumed
// body that cannot be rebuilt makes the request non-retryable.
func rewindBody(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	if req.GetBody == nil {
		return false
	}
	body, err := req.GetBody()
	if err != nil {
		return false
	}
	req.Body = body
	return true
}
