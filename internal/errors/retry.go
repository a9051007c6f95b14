package errors

import (
	"context"
	"errors"
	"time"
)

// Backoff is an exponential retry schedule.
type Backoff struct {
	// Retries is the number of calls after the first one.
	Retries int
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff waits 200ms, 400ms and 800ms between four attempts.
var DefaultBackoff = Backoff{Retries: 3, Initial: 200 * time.Millisecond, Max: 5 * time.Second}

// Delay is the pause before retry number n, counted from 1.
func (b Backoff) Delay(n int) time.Duration {
	d := b.Initial
	for i := 1; i < n; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// Retry calls fn until it succeeds, returns an error retryable rejects, the
// retries run out or ctx is done.
func (b Backoff) Retry(ctx context.Context, fn func() error, retryable func(error) bool) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if retryable == nil {
		retryable = IsRetryable
	}

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil || !retryable(err) || n >= b.Retries {
			return err
		}

		timer := time.NewTimer(b.Delay(n + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WithRetry retries fn on the default schedule while it returns a retryable *AppError.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Retry(ctx, fn, IsRetryable)
}

// WithRetryIf is WithRetry with a caller-supplied retry predicate.
func WithRetryIf(ctx context.Context, fn func() error, retryable func(error) bool) error {
	return DefaultBackoff.Retry(ctx, fn, retryable)
}

func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}
