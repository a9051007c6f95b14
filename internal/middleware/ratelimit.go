package middleware

import (
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	"github.com/Proton-105/tagmystickies-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	notice  string
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
// notice is shown to a user who is over the limit.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, notice string, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		notice:  notice,
		log:     log,
	}
}

// Handle is the handlers.Middleware enforcing the per-user limit. A
// limiter failure lets the update through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil || !m.rules.Enabled() {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil || m.rules.IsWhitelisted(sender.ID) {
			return next(c)
		}

		limit, window := m.rules.PerUser()
		result, err := m.limiter.Check(handlers.RequestContext(c), ratelimit.UserKey(sender.ID), limit, window)
		switch {
		case errors.Is(err, ratelimit.ErrLimitExceeded) || (err == nil && !result.Allowed):
			m.log.Warn("rate limit exceeded",
				slog.Int64("user_id", sender.ID),
				slog.Duration("retry_after", result.RetryAfter(time.Now())),
			)
			return handlers.Reply(c, m.notice)
		case err != nil:
			m.log.Warn("rate limiter error", slog.Int64("user_id", sender.ID), slog.Any("error", err))
		}

		return next(c)
	}
}
