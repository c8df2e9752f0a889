package glasir

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/corpix/uarand"

	"github.com/glasirfo/glasir-api-go/internal/errors"
	"github.com/glasirfo/glasir-api-go/internal/logger"
	"github.com/glasirfo/glasir-api-go/internal/metrics"
)

// Reporter receives per-call success/failure feedback. The adaptive
// limiters implement it; calls without a limiter pass nil.
type Reporter interface {
	ReportSuccess()
	ReportFailure()
}

// retryableStatuses are upstream responses worth retrying: throttling and
// the transient 5xx codes the site emits under load.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusServiceUnavailable:  true,
}

// ClientConfig tunes the upstream transport.
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	BackoffFactor float64 // base backoff in seconds, doubled per attempt
}

// Client is the upstream HTTP transport. A single Client with a pooled
// connection transport is shared by all requests in the process.
//
// Redirects are never followed: the site answers a dead session with a
// redirect to the login page, and that has to stay visible to the caller.
// Cookies travel as a per-call header rather than a jar because every
// inbound request brings its own session.
type Client struct {
	http          *http.Client
	baseURL       string
	userAgent     string
	maxRetries    int
	backoffFactor float64
	log           *logger.Logger
	metrics       *metrics.Metrics
}

// NewClient creates the upstream transport.
func NewClient(cfg ClientConfig, log *logger.Logger, m *metrics.Metrics) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:     uarand.GetRandom(),
		maxRetries:    cfg.MaxRetries,
		backoffFactor: cfg.BackoffFactor,
		log:           log.WithModule("glasir_client"),
		metrics:       m,
	}
}

// WithRetryPolicy returns a copy of the client with overridden timeout and
// retry settings. Zero timeout, zero maxRetries, and negative backoffFactor
// keep the receiver's values. The connection pool is shared with the
// receiver, so the copy is cheap and safe to build per request.
func (c *Client) WithRetryPolicy(timeout time.Duration, maxRetries int, backoffFactor float64) *Client {
	clone := *c
	httpClone := *c.http
	if timeout > 0 {
		httpClone.Timeout = timeout
	}
	clone.http = &httpClone
	if maxRetries > 0 {
		clone.maxRetries = maxRetries
	}
	if backoffFactor >= 0 {
		clone.backoffFactor = backoffFactor
	}
	return &clone
}

// Get fetches a page with the given cookie header. Used for the bootstrap
// base page, so no limiter is involved.
func (c *Client) Get(ctx context.Context, endpoint, path, cookies string) (string, error) {
	return c.do(ctx, endpoint, http.MethodGet, path, nil, cookies, nil)
}

// PostForm posts a form through the retry loop, feeding the reporter on
// every classified outcome.
func (c *Client) PostForm(ctx context.Context, endpoint, path string, form url.Values, cookies string, rep Reporter) (string, error) {
	return c.do(ctx, endpoint, http.MethodPost, path, form, cookies, rep)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, form url.Values, cookies string, rep Reporter) (string, error) {
	target := c.baseURL + path
	log := c.log.WithField("endpoint", endpoint)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		start := time.Now()
		body, status, err := c.once(ctx, method, target, form, cookies)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			// Cancellation is not a failure: no limiter report, no retry.
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			reason := "connect"
			if isTimeout(err) {
				reason = "timeout"
			}
			c.metrics.RecordUpstreamRequest(endpoint, reason, elapsed)
			c.reportFailure(rep)
			lastErr = err
			if attempt < c.maxRetries {
				c.metrics.RecordUpstreamRetry(endpoint, reason)
				log.WithError(err).Warn("upstream request failed, retrying",
					"attempt", attempt, "reason", reason)
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			c.metrics.RecordUpstreamRequest(endpoint, "success", elapsed)
			c.reportSuccess(rep)
			return body, nil

		case status >= 300 && status < 400:
			// Redirect means the session cookies no longer authenticate.
			c.metrics.RecordUpstreamRequest(endpoint, "error", elapsed)
			return "", fmt.Errorf("upstream redirected (status %d): %w", status, errors.ErrAuth)

		case retryableStatuses[status]:
			c.metrics.RecordUpstreamRequest(endpoint, "retryable", elapsed)
			c.reportFailure(rep)
			lastErr = errors.NewStatusError(target, status, nil)
			if attempt < c.maxRetries {
				c.metrics.RecordUpstreamRetry(endpoint, "status")
				log.Warn("upstream returned retryable status",
					"attempt", attempt, "status", status)
			}
			continue

		default:
			c.metrics.RecordUpstreamRequest(endpoint, "error", elapsed)
			return "", errors.NewStatusError(target, status, nil)
		}
	}

	return "", fmt.Errorf("upstream unavailable after %d attempts (%v): %w",
		c.maxRetries, lastErr, errors.ErrNetwork)
}

// once performs a single HTTP exchange.
func (c *Client) once(ctx context.Context, method, target string, form url.Values, cookies string) (string, int, error) {
	var bodyReader io.Reader
	if form != nil {
		bodyReader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", cookies)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	return string(raw), resp.StatusCode, nil
}

// sleepBackoff waits factor * 2^(attempt-2) seconds before the given
// attempt, so retries back off as b, 2b, 4b, ...
func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(c.backoffFactor * float64(int(1)<<(attempt-2)) * float64(time.Second))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (c *Client) reportSuccess(rep Reporter) {
	if rep != nil {
		rep.ReportSuccess()
	}
}

func (c *Client) reportFailure(rep Reporter) {
	if rep != nil {
		rep.ReportFailure()
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
