package state

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
)

const sweepBatchSize = 100

// ErrNoFlowToExpire is returned by an Expirer when a tracked user has no flow
// left to end. The cleaner stops tracking that user.
var ErrNoFlowToExpire = errors.New("no flow to expire")

// Expirer ends an abandoned flow. It runs while the user's lock is held.
type Expirer interface {
	ExpireFlow(ctx context.Context, userID int64) error
}

// Cleaner ends flows whose last activity is older than the configured TTL.
type Cleaner struct {
	tracker  *Tracker
	machine  *Machine
	expirer  Expirer
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

// NewCleaner constructs a Cleaner instance. A zero ttl disables expiry.
func NewCleaner(tracker *Tracker, machine *Machine, expirer Expirer, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		tracker:  tracker,
		machine:  machine,
		expirer:  expirer,
		log:      log,
		ttl:      ttl,
		interval: interval,
	}
}

// Enabled reports whether flows expire at all.
func (c *Cleaner) Enabled() bool {
	return c != nil && c.ttl > 0 && c.tracker != nil && c.expirer != nil
}

// Run starts the sweep loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if !c.Enabled() || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.log.Error("state sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep expires every stale flow once and returns how many were ended.
// Users whose expiry fails for now are paged past so they cannot starve
// the rest of the index.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	cutoff := c.tracker.now().Add(-c.ttl)
	expired := 0
	var skipped int64

	for {
		ids, err := c.tracker.Expired(ctx, cutoff, skipped, sweepBatchSize)
		if err != nil {
			return expired, err
		}

		for _, userID := range ids {
			if ctx.Err() != nil {
				break
			}
			switch c.expireOne(ctx, userID, cutoff) {
			case outcomeExpired:
				expired++
			case outcomeKept:
				skipped++
			}
		}

		if ctx.Err() != nil || len(ids) < sweepBatchSize {
			break
		}
	}

	if expired > 0 {
		metrics.RecordFlowsExpired(expired)
		c.log.Info("expired idle flows", slog.Int("count", expired))
	}

	return expired, ctx.Err()
}

type outcome int

const (
	// outcomeKept leaves the user in the stale range until a later sweep.
	outcomeKept outcome = iota
	// outcomeGone means the user left the stale range without an expiry.
	outcomeGone
	outcomeExpired
)

func (c *Cleaner) expireOne(ctx context.Context, userID int64, cutoff time.Time) outcome {
	unlock, err := c.machine.Lock(ctx, userID)
	if err != nil {
		c.log.Debug("state cleaner skipped locked user", slog.Int64("user_id", userID), slog.Any("error", err))
		return outcomeKept
	}
	defer unlock()

	// The user may have acted between listing and locking.
	seen, ok, err := c.tracker.LastSeen(ctx, userID)
	if err != nil {
		c.log.Error("state cleaner failed to read activity", slog.Int64("user_id", userID), slog.Any("error", err))
		return outcomeKept
	}
	if !ok || seen.After(cutoff) {
		return outcomeGone
	}

	err = c.expirer.ExpireFlow(ctx, userID)
	switch {
	case errors.Is(err, ErrNoFlowToExpire):
		c.log.Info("state cleaner dropped user without a flow", slog.Int64("user_id", userID), slog.Any("reason", err))
		if err := c.tracker.Forget(ctx, userID); err != nil {
			c.log.Error("state cleaner failed to forget user", slog.Int64("user_id", userID), slog.Any("error", err))
			return outcomeKept
		}
		return outcomeGone
	case err != nil:
		c.log.Error("state cleaner failed to expire flow", slog.Int64("user_id", userID), slog.Any("error", err))
		return outcomeKept
	}

	c.log.Info("flow expired", slog.Int64("user_id", userID))
	return outcomeExpired
}
