// Package stripe is a Stripe-compatible REST client implementing
// domain.PaymentProcessor.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// DefaultBaseURL is the processor's public API endpoint.
const DefaultBaseURL = "https://api.stripe.com"

const (
	defaultTimeout         = 15 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 250 * time.Millisecond
)

// Client talks to the processor API with form-encoded requests and a bearer
// secret key. Transient failures (network errors, 429 and 5xx) are retried
// with exponential backoff; other 4xx responses fail immediately.
type Client struct {
	baseURL         string
	apiKey          string
	http            *http.Client
	logger          *slog.Logger
	maxRetries      uint64
	initialInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger used for retry notices.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = maxRetries
		cl.initialInterval = initial
	}
}

// New creates a client for the API at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		http:            &http.Client{Timeout: defaultTimeout},
		logger:          slog.Default(),
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is an error response returned by the processor.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// call performs one API operation with retries. POSTs carry an idempotency
// key that stays the same across retries so the processor never applies a
// request twice.
func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	var idempotencyKey string
	if method == http.MethodPost {
		idempotencyKey = uuid.NewString()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	attempt := func() error {
		err := c.do(ctx, method, path, form, idempotencyKey, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "processor call failed, retrying",
			"method", method,
			"path", path,
			"wait", wait,
			"error", err,
		)
	}

	return backoff.RetryNotify(attempt, policy, notify)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	var body io.Reader
	if method != http.MethodGet && len(form) > 0 {
		body = strings.NewReader(form.Encode())
	}

	target := c.baseURL + path
	if method == http.MethodGet && len(form) > 0 {
		target += "?" + form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		_ = json.Unmarshal(raw, &envelope)
		apiErr := envelope.Error
		apiErr.StatusCode = resp.StatusCode
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func setMetadata(form url.Values, metadata map[string]string) {
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
}
