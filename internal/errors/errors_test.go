package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreakerWithSettings(BreakerSettings{MinRequests: 4, OpenTimeout: time.Minute, HalfOpenMaxRequests: 1})
	cb.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	}
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CallCountingIgnoresUncountedErrors(t *testing.T) {
	cb := NewCircuitBreakerWithSettings(BreakerSettings{MinRequests: 2})
	notCounted := func(error) bool { return false }

	for i := 0; i < 10; i++ {
		err := cb.CallCounting(func() error { return errBoom }, notCounted)
		assert.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestWithRetryIf(t *testing.T) {
	t.Run("retries until success", func(t *testing.T) {
		attempts := 0
		err := WithRetryIf(context.Background(), func() error {
			attempts++
			if attempts < 2 {
				return errBoom
			}
			return nil
		}, func(error) bool { return true })

		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("stops on non retryable", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), func() error {
			attempts++
			return NewValidationError("bad")
		})

		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := WithRetry(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(testLogger(), false)

	msg, retryable := h.Handle(context.Background(), NewRateLimitError(5))
	assert.Equal(t, "Too many requests. Try again in 5 seconds.", msg)
	assert.False(t, retryable)

	msg, retryable = h.Handle(context.Background(), NewRecordsError("add tags", errBoom))
	assert.NotEmpty(t, msg)
	assert.True(t, retryable)

	msg, retryable = h.Handle(context.Background(), errBoom)
	assert.Equal(t, DefaultUserMessage, msg)
	assert.False(t, retryable)

	msg, retryable = h.Handle(context.Background(), fmt.Errorf("list stickers: %w", context.DeadlineExceeded))
	assert.Equal(t, "That took too long. Please try again.", msg)
	assert.True(t, retryable)

	msg, _ = h.Handle(context.Background(), nil)
	assert.Empty(t, msg)
}

func TestAppError_Unwrap(t *testing.T) {
	err := NewStateError("locked", errBoom)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, CodeState, err.Code)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Retries: 5, Initial: 100 * time.Millisecond, Max: time.Second}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{n: 1, want: 100 * time.Millisecond},
		{n: 2, want: 200 * time.Millisecond},
		{n: 4, want: 800 * time.Millisecond},
		{n: 5, want: time.Second},
		{n: 10, want: time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.n), "retry %d", tt.n)
	}
}

func TestBackoff_RetryGivesUp(t *testing.T) {
	attempts := 0
	err := Backoff{Retries: 2, Initial: time.Millisecond}.Retry(context.Background(), func() error {
		attempts++
		return errBoom
	}, func(error) bool { return true })

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, attempts)
}
