package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/idempotency"
	"github.com/Proton-105/tagmystickies-bot/internal/ratelimit"
	"github.com/Proton-105/tagmystickies-bot/pkg/config"
)

const (
	testUser  int64 = 1001
	testAdmin int64 = 1
)

// replyContext records what the middleware shows the user instead of
// calling the Bot API.
type replyContext struct {
	telebot.Context
	sent []string
}

func (c *replyContext) Send(what interface{}, _ ...interface{}) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	return nil
}

func (c *replyContext) Respond(resp ...*telebot.CallbackResponse) error {
	for _, r := range resp {
		c.sent = append(c.sent, r.Text)
	}
	return nil
}

func newContext(t *testing.T, updateID int, userID int64, text string) *replyContext {
	t.Helper()

	bot, err := telebot.NewBot(telebot.Settings{Offline: true})
	require.NoError(t, err)

	return &replyContext{Context: bot.NewContext(telebot.Update{
		ID: updateID,
		Message: &telebot.Message{
			ID:     updateID,
			Sender: &telebot.User{ID: userID},
			Chat:   &telebot.Chat{ID: userID},
			Text:   text,
		},
	})}
}

func counting(calls *int, err error) func(telebot.Context) error {
	return func(telebot.Context) error {
		*calls++
		return err
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute}

	t.Run("blocks over limit", func(t *testing.T) {
		mw := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(testLogger()), ratelimit.NewRules(cfg, []int64{testAdmin}), "slow down", testLogger())
		calls := 0
		h := mw.Handle(counting(&calls, nil))

		c := newContext(t, 1, testUser, "cat")
		for i := 0; i < 3; i++ {
			require.NoError(t, h(c))
		}

		assert.Equal(t, 2, calls)
		assert.Equal(t, []string{"slow down"}, c.sent)
	})

	t.Run("admin is never limited", func(t *testing.T) {
		mw := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(testLogger()), ratelimit.NewRules(cfg, []int64{testAdmin}), "slow down", testLogger())
		calls := 0
		h := mw.Handle(counting(&calls, nil))

		c := newContext(t, 1, testAdmin, "cat")
		for i := 0; i < 5; i++ {
			require.NoError(t, h(c))
		}

		assert.Equal(t, 5, calls)
		assert.Empty(t, c.sent)
	})

	t.Run("disabled", func(t *testing.T) {
		off := config.RateLimitConfig{Requests: 1, Window: time.Minute}
		mw := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(testLogger()), ratelimit.NewRules(off, nil), "slow down", testLogger())
		calls := 0
		h := mw.Handle(counting(&calls, nil))

		c := newContext(t, 1, testUser, "cat")
		for i := 0; i < 3; i++ {
			require.NoError(t, h(c))
		}
		assert.Equal(t, 3, calls)
	})

	t.Run("limiter failure lets update through", func(t *testing.T) {
		mw := NewRateLimitMiddleware(brokenLimiter{}, ratelimit.NewRules(cfg, nil), "slow down", testLogger())
		calls := 0

		require.NoError(t, mw.Handle(counting(&calls, nil))(newContext(t, 1, testUser, "cat")))
		assert.Equal(t, 1, calls)
	})
}

type brokenLimiter struct{}

func (brokenLimiter) Check(context.Context, string, int, time.Duration) (*ratelimit.Result, error) {
	return nil, errors.New("redis down")
}

func newGuard(t *testing.T) *idempotency.Guard {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return idempotency.NewGuard(idempotency.NewRedisStore(client, testLogger()), time.Hour, testLogger())
}

func TestIdempotency(t *testing.T) {
	t.Run("duplicate is dropped", func(t *testing.T) {
		calls := 0
		h := Idempotency(newGuard(t), 77, testLogger())(counting(&calls, nil))

		require.NoError(t, h(newContext(t, 5, testUser, "cat")))
		require.NoError(t, h(newContext(t, 5, testUser, "cat")))
		require.NoError(t, h(newContext(t, 6, testUser, "cat")))

		assert.Equal(t, 2, calls)
	})

	t.Run("failed update is retried", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		h := Idempotency(newGuard(t), 77, testLogger())(counting(&calls, boom))

		assert.ErrorIs(t, h(newContext(t, 5, testUser, "cat")), boom)
		assert.ErrorIs(t, h(newContext(t, 5, testUser, "cat")), boom)
		assert.Equal(t, 2, calls)
	})

	t.Run("no guard", func(t *testing.T) {
		calls := 0
		h := Idempotency(nil, 77, testLogger())(counting(&calls, nil))

		require.NoError(t, h(newContext(t, 5, testUser, "cat")))
		require.NoError(t, h(newContext(t, 5, testUser, "cat")))
		assert.Equal(t, 2, calls)
	})
}

func TestUpdateLabel(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/start", "command:start"},
		{"/massreplace", "command:massreplace"},
		{"/whatever", "command:other"},
		{"cat, dog", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, updateLabel(newContext(t, 1, testUser, tt.text)))
		})
	}
}

func TestHTTPLogging_KeepsStatus(t *testing.T) {
	h := HTTPLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
