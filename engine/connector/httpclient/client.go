// Package httpclient is the shared REST helper behind the board and tracker connectors.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/compozy/storymapper/engine/core"
	"github.com/compozy/storymapper/pkg/logger"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultRetryCount   = 3
	DefaultRetryWait    = 100 * time.Millisecond
	DefaultRetryMaxWait = 2 * time.Second
)

// Config holds transport settings shared by every connector.
type Config struct {
	// Name tags log lines, e.g. "miro" or "jira".
	Name         string
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Option customizes the underlying resty client.
type Option func(*resty.Client)

// WithBearerToken sends "Authorization: Bearer <token>".
func WithBearerToken(token string) Option {
	return func(c *resty.Client) {
		c.SetAuthToken(token)
	}
}

// WithBasicAuth sends HTTP basic credentials.
func WithBasicAuth(user, password string) Option {
	return func(c *resty.Client) {
		c.SetBasicAuth(user, password)
	}
}

// WithHeader sets a default header on every request.
func WithHeader(key, value string) Option {
	return func(c *resty.Client) {
		c.SetHeader(key, value)
	}
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	name string
	rc   *resty.Client
}

// New validates the base URL and builds the client.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := validateBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(max(cfg.RetryCount, 0)).
		SetRetryWaitTime(orDefault(cfg.RetryWait, DefaultRetryWait)).
		SetRetryMaxWaitTime(orDefault(cfg.RetryMaxWait, DefaultRetryMaxWait))
	rc.AddRetryCondition(retryCondition)
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{name: cfg.Name, rc: rc}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func validateBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("base URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("base URL must have a host, got: %s", core.RedactString(raw))
	}
	return raw, nil
}

// retryCondition retries network errors, timeouts, rate limits and server errors
// on idempotent methods only. A failed POST may already have created the
// resource, so it is never resent.
func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || !idempotent(r.Request.Method) {
		return false
	}
	if err != nil {
		return true
	}
	code := r.StatusCode()
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

func idempotent(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// RequestOptions describes one call.
type RequestOptions struct {
	Query   map[string]string
	Body    any
	Headers map[string]string
}

// Do sends the request and returns the response body. Statuses of 400 and above
// become a *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions) ([]byte, error) {
	req := c.rc.R().SetContext(ctx)
	if opts != nil {
		if len(opts.Query) > 0 {
			req.SetQueryParams(opts.Query)
		}
		if len(opts.Headers) > 0 {
			req.SetHeaders(opts.Headers)
		}
		if opts.Body != nil {
			req.SetBody(opts.Body)
		}
	}
	log := logger.FromContext(ctx)
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		log.Debug("http request failed", "client", c.name, "method", method, "path", path, "error", core.RedactError(err))
		return nil, fmt.Errorf("%s: %s %s: %w", c.name, method, path, err)
	}
	log.Debug(
		"http request",
		"client", c.name,
		"method", method,
		"url", core.RedactString(resp.Request.URL),
		"status", resp.StatusCode(),
		"duration", time.Since(start),
	)
	if resp.IsError() {
		if code := resp.StatusCode(); code == http.StatusUnauthorized || code == http.StatusForbidden {
			log.Warn(
				"credentials rejected",
				"client", c.name,
				"status", code,
				"headers", core.RedactHeaders(flattenHeaders(resp.Request.Header)),
			)
		}
		return nil, newStatusError(method, resp.Request.URL, resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// Get issues a GET with query parameters.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, &RequestOptions{Query: query})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, &RequestOptions{Body: body})
}

// Ping reports whether path answers with a success status.
func (c *Client) Ping(ctx context.Context, path string) error {
	_, err := c.Get(ctx, path, nil)
	return err
}
