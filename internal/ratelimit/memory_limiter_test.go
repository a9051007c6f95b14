package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Check(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "user:1", 3, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)

	_, err = limiter.Check(ctx, "user:2", 3, time.Minute)
	assert.NoError(t, err, "keys are independent")
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:1", 3, time.Minute)
	require.NoError(t, err)

	assert.Zero(t, limiter.Cleanup(time.Hour))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, limiter.Cleanup(10*time.Millisecond))
	assert.Zero(t, limiter.Cleanup(0))
}

func TestMemoryLimiter_RunJanitorStops(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		limiter.RunJanitor(ctx, 5*time.Millisecond, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
