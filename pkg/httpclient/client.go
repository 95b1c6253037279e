// Package httpclient wraps outbound HTTP calls with a bounded
// exponential-backoff retry. Transport failures and 401 responses are
// retried; a freshly minted token can be rejected for a few seconds.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxElapsedTime  = 15 * time.Second
	DefaultInitialInterval = 500 * time.Millisecond
)

// Retryable is the verdict of a RetryPolicy for one attempt.
type Retryable int

const (
	Success Retryable = iota
	Transient
	Terminal
)

// RetryPolicy classifies the outcome of a single attempt.
type RetryPolicy func(resp *http.Response, err error) Retryable

// DefaultRetryPolicy retries transport failures and 401 responses. Every
// other non-2xx status is returned to the caller untouched.
func DefaultRetryPolicy(resp *http.Response, err error) Retryable {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Terminal
		}
		return Transient
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Transient
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Success
	default:
		return Terminal
	}
}

// NetworkError is returned when the retry budget ran out on transport
// failures, or the first transport failure was not retryable.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type Client struct {
	httpClient      *http.Client
	logger          *zerolog.Logger
	policy          RetryPolicy
	maxElapsedTime  time.Duration
	initialInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithMaxElapsedTime sets the total wall-clock retry budget.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(c *Client) { c.maxElapsedTime = d }
}

func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) { c.initialInterval = d }
}

func New(logger *zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{},
		logger:          logger,
		policy:          DefaultRetryPolicy,
		maxElapsedTime:  DefaultMaxElapsedTime,
		initialInterval: DefaultInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errRetryStatus marks a response the policy wants retried.
type errRetryStatus struct {
	status int
}

func (e *errRetryStatus) Error() string {
	return fmt.Sprintf("transient http status %d", e.status)
}

// Do sends req, retrying transient outcomes until the budget is spent.
// If the budget runs out on a transient status, the last response is
// returned so the caller can classify it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.initialInterval),
		backoff.WithMaxElapsedTime(c.maxElapsedTime),
	)

	var last *http.Response
	attempts := 0
	operation := func() (*http.Response, error) {
		attempt, err := c.prepare(req, attempts)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		attempts++

		resp, err := c.httpClient.Do(attempt)
		switch c.policy(resp, err) {
		case Success:
			return resp, nil
		case Transient:
			if err != nil {
				return nil, err
			}
			if last != nil {
				discard(last)
			}
			last = resp
			return nil, &errRetryStatus{status: resp.StatusCode}
		default:
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			return resp, nil
		}
	}
	notify := func(err error, next time.Duration) {
		c.logger.Debug().
			Err(err).
			Str("url", req.URL.Redacted()).
			Int("attempt", attempts).
			Dur("retryIn", next).
			Msg("retrying request")
	}

	resp, err := backoff.RetryNotifyWithData(operation, backoff.WithContext(b, ctx), notify)
	if err == nil {
		if last != nil && last != resp {
			discard(last)
		}
		return resp, nil
	}

	var statusErr *errRetryStatus
	if errors.As(err, &statusErr) && last != nil {
		c.logger.Debug().
			Int("status", last.StatusCode).
			Int("attempts", attempts).
			Msg("retry budget exhausted, returning last response")
		return last, nil
	}
	if last != nil {
		discard(last)
	}
	return nil, &NetworkError{Attempts: attempts, Err: err}
}

// prepare clones req for one attempt, rewinding the body on retries.
func (c *Client) prepare(req *http.Request, attempt int) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewinding request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
