// Package site is the HTTP client for a Pjuu server: page loads, form
// submissions made the way the browser scripts made them, and the alert
// check endpoint.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pjuu/client/internal/csrf"
	"github.com/pjuu/client/internal/logging"
	"github.com/pjuu/client/internal/metrics"
	"github.com/pjuu/client/internal/page"
	"github.com/pjuu/client/internal/retry"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultAlertsPath    = "/alerts/new"
	DefaultSessionCookie = "session"

	maxBodyBytes = 4 << 20
)

var errServerFailure = errors.New("server failure")

// Config configures a Client
type Config struct {
	BaseURL       string
	SessionCookie string
	SessionValue  string
	Timeout       time.Duration
	RateLimit     float64 // requests per second; <= 0 disables limiting
	RateBurst     int
	AlertsPath    string
	Retry         *retry.RetryConfig // nil uses retry.PageFetchRetryConfig; a nil Retryable classifies by status
	Transport     http.RoundTripper  // nil uses http.DefaultTransport
}

// Response is a successful reply to a submitted form.
type Response struct {
	Status  int
	Message string
}

// Client talks to one Pjuu site.
type Client struct {
	base       *url.URL
	http       *http.Client
	csrf       *csrf.Store
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	alertsPath string
	retry      retry.RetryConfig
}

type rawResponse struct {
	status int
	body   []byte
	url    *url.URL
}

// New creates a client for cfg.BaseURL
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.SessionValue != "" {
		name := cfg.SessionCookie
		if name == "" {
			name = DefaultSessionCookie
		}
		jar.SetCookies(base, []*http.Cookie{{Name: name, Value: cfg.SessionValue, Path: "/"}})
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	alertsPath := cfg.AlertsPath
	if alertsPath == "" {
		alertsPath = DefaultAlertsPath
	}

	retryConfig := retry.PageFetchRetryConfig()
	if cfg.Retry != nil {
		retryConfig = *cfg.Retry
	}
	if retryConfig.Retryable == nil {
		retryConfig.Retryable = retryable
	}

	store := &csrf.Store{}

	return &Client{
		base: base,
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: csrf.NewTransport(cfg.Transport, base, store),
		},
		csrf:    store,
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "pjuu-site",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Ctx(context.Background()).Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
			},
		}),
		alertsPath: alertsPath,
		retry:      retryConfig,
	}, nil
}

// CSRFToken returns the token of the most recently fetched page.
func (c *Client) CSRFToken() string {
	return c.csrf.Token()
}

// FetchPage loads and parses the page at path. Transient failures are
// retried with backoff. The page's CSRF token is used for later submissions.
func (c *Client) FetchPage(ctx context.Context, path string) (*page.Document, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var doc *page.Document
	result := retry.RetryWithBackoff(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "text/html")

		raw, err := c.do(ctx, req)
		if err != nil {
			return err
		}
		if raw.status != http.StatusOK {
			p, _ := decodePayload(raw.body)
			return &StatusError{Status: raw.status, Message: p.Message}
		}

		d, err := page.Parse(bytes.NewReader(raw.body), raw.url)
		if err != nil {
			return err
		}
		doc = d
		return nil
	}, logging.Ctx(ctx))

	if !result.Success {
		return nil, fmt.Errorf("failed to fetch %s: %w", path, result.LastError)
	}

	c.csrf.Set(doc.CSRFToken)
	return doc, nil
}

// Submit sends form the way an AJAX handler would and returns the
// server's message. Non-2xx replies are returned as *StatusError.
func (c *Client) Submit(ctx context.Context, form page.Form, values url.Values) (*Response, error) {
	method := strings.ToUpper(form.Method)
	if method == "" {
		method = http.MethodGet
	}

	target := form.Action
	var body io.Reader
	if method == http.MethodGet || method == http.MethodHead {
		if len(values) > 0 {
			u, err := url.Parse(target)
			if err != nil {
				return nil, fmt.Errorf("invalid form action: %w", err)
			}
			q := u.Query()
			for k, vs := range values {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
			target = u.String()
		}
	} else {
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	raw, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	p, err := decodePayload(raw.body)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Int("status", raw.status).Msg("Response carried no usable payload")
	}

	if raw.status < 200 || raw.status >= 300 {
		return nil, &StatusError{Status: raw.status, Message: p.Message}
	}
	return &Response{Status: raw.status, Message: p.Message}, nil
}

// NewAlerts asks the server how many unseen alerts the session has.
// The legacy boolean reply ({"result": true}) counts as one alert.
func (c *Client) NewAlerts(ctx context.Context) (int, error) {
	target, err := c.resolve(c.alertsPath)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	raw, err := c.do(ctx, req)
	if err != nil {
		return 0, err
	}

	p, decodeErr := decodePayload(raw.body)
	if raw.status != http.StatusOK {
		return 0, &StatusError{Status: raw.status, Message: p.Message}
	}
	if decodeErr != nil {
		return 0, decodeErr
	}

	switch {
	case p.NewAlerts != nil:
		return *p.NewAlerts, nil
	case p.Result != nil && *p.Result:
		return 1, nil
	case p.Result != nil:
		return 0, nil
	}
	return 0, fmt.Errorf("alert check reply carried no count")
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref).String(), nil
}

// do sends req through the rate limiter and circuit breaker. 5xx replies
// count as breaker failures but are still returned to the caller.
func (c *Client) do(ctx context.Context, req *http.Request) (*rawResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	id := logging.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", id)

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		raw := &rawResponse{status: resp.StatusCode, body: body, url: resp.Request.URL}
		if resp.StatusCode >= 500 {
			return raw, errServerFailure
		}
		return raw, nil
	})
	metrics.HTTPRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	raw, _ := result.(*rawResponse)
	if raw == nil {
		if err == nil {
			err = errors.New("no response")
		}
		metrics.HTTPRequestsTotal.WithLabelValues(req.Method, "error").Inc()
		logging.Ctx(ctx).Debug().Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Msg("Request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	metrics.HTTPRequestsTotal.WithLabelValues(req.Method, strconv.Itoa(raw.status)).Inc()
	logging.Ctx(ctx).Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", raw.status).
		Dur("duration", time.Since(start)).
		Msg("Request completed")
	return raw, nil
}
