package orchestrator

import (
	"context"
	"time"

	"github.com/hercule-app/hercule/internal/core"
)

// RetryPolicy retries a call with linearly growing delays. Timeouts and
// non-retryable errors end the loop immediately.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns the analysis retry defaults.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// Execute runs fn up to 1+MaxRetries times. The delay before retry N is
// BaseDelay * N. The last error is returned unwrapped so its message
// surfaces verbatim to the caller.
func (p *RetryPolicy) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 1; attempt <= 1+p.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return core.ErrTimeout("timed out").WithCause(ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		// A timeout means the deadline is already spent. Retrying would
		// only stack further waiting on top of it.
		if core.IsCategory(err, core.ErrCatTimeout) {
			return err
		}
		if attempt == 1+p.MaxRetries {
			break
		}

		delay := p.BaseDelay * time.Duration(attempt)
		select {
		case <-ctx.Done():
			return core.ErrTimeout("timed out").WithCause(ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}
