package notify

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultBaseDelay    = 50 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

// RetryOption configures delivery retries
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the total number of delivery attempts
func WithMaxAttempts(attempts int) RetryOption {
	return func(c *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the first backoff delay. Later delays double.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(c *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}
		c.baseDelay = delay
		return nil
	}
}

// WithJitterFactor adds up to factor*delay of random jitter
func WithJitterFactor(factor float64) RetryOption {
	return func(c *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}
		c.jitterFactor = factor
		return nil
	}
}

func newRetryConfig(options ...RetryOption) (*retryConfig, error) {
	c := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// retry runs fn until it succeeds, the attempts are used up or ctx ends.
// Context errors are never retried.
func retry(ctx context.Context, c *retryConfig, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * c.jitterFactor //nolint:gosec // jitter only

			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}

	return lastErr
}
