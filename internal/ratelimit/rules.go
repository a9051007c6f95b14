package ratelimit

import (
	"time"

	"github.com/Proton-105/tagmystickies-bot/pkg/config"
)

// Rules holds the configured per-user limit and the users exempt from it.
type Rules struct {
	config    config.RateLimitConfig
	whitelist map[int64]struct{}
}

// NewRules constructs rate limiting rules. whitelist users are never limited.
func NewRules(cfg config.RateLimitConfig, whitelist []int64) *Rules {
	exempt := make(map[int64]struct{}, len(whitelist))
	for _, id := range whitelist {
		exempt[id] = struct{}{}
	}

	return &Rules{config: cfg, whitelist: exempt}
}

// Enabled reports whether limits apply at all.
func (r *Rules) Enabled() bool {
	return r.config.Enabled && r.config.Requests > 0 && r.config.Window > 0
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	_, ok := r.whitelist[userID]
	return ok
}

// PerUser returns how many updates one user may send per window.
func (r *Rules) PerUser() (int, time.Duration) {
	return r.config.Requests, r.config.Window
}
