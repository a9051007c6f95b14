// Package idempotency makes sure a chat update is handled once even when
// the platform delivers it again.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrDuplicate is returned by Guard.Run for an update that was already
// handled or is being handled right now.
var ErrDuplicate = errors.New("update already handled")

// Guard runs an operation at most once per key within the TTL.
type Guard struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewGuard creates a Guard that remembers keys for ttl.
func NewGuard(store Store, ttl time.Duration, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}

	return &Guard{store: store, ttl: ttl, log: log}
}

// Run claims key and runs fn. A failed fn releases the claim so a redelivery
// is handled again. When the store is unreachable fn runs unguarded.
func (g *Guard) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	if g == nil || g.store == nil || key == "" {
		return fn(ctx)
	}

	claimed, err := g.store.Claim(ctx, key, g.ttl)
	if err != nil {
		g.log.Warn("idempotency store unavailable, handling update unguarded", slog.String("key", key), slog.Any("error", err))
		return fn(ctx)
	}
	if !claimed {
		return ErrDuplicate
	}

	if err := fn(ctx); err != nil {
		if relErr := g.store.Release(context.WithoutCancel(ctx), key); relErr != nil {
			g.log.Warn("failed to release idempotency claim", slog.String("key", key), slog.Any("error", relErr))
		}
		return err
	}

	return nil
}
