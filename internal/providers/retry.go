package providers

import (
	"context"
	"errors"
	"time"
)

// RetryConfig bounds the retry loop for transient API failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 2, BaseDelay: 500 * time.Millisecond}
}

// retryableError marks a failure worth retrying (429 or 5xx).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// RetryDo runs fn with bounded exponential backoff. Only errors wrapped as
// retryable are retried; everything else returns immediately.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err

		var re *retryableError
		if !errors.As(err, &re) {
			return zero, err
		}
	}
	return zero, lastErr
}
