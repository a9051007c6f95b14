// Package ratelimit counts updates per user in a sliding window.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Result is the verdict on one request.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the oldest request in the window stops counting.
	ResetAt time.Time
}

// RetryAfter is how long a rejected caller should wait, never negative.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r == nil || r.ResetAt.Before(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter records one request for key and reports whether it fits into
// limit requests per window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded is returned together with the Result of a rejected request.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// UserKey is the limiter key of a chat user.
func UserKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
