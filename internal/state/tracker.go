package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	activeFlowsKey = "state:active"
	activeCodesKey = "state:active:codes"
)

// ActivityTracker is notified after every persisted state change.
type ActivityTracker interface {
	Touch(ctx context.Context, userID int64, code StateCode) error
	Forget(ctx context.Context, userID int64) error
}

// Tracker indexes users that are inside a flow by their last activity.
type Tracker struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker on top of client.
func NewTracker(client *redis.Client, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}

	return &Tracker{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Touch records activity for userID at code. Idle users are forgotten.
func (t *Tracker) Touch(ctx context.Context, userID int64, code StateCode) error {
	if code == StateIdle {
		return t.Forget(ctx, userID)
	}

	member := strconv.FormatInt(userID, 10)
	pipe := t.client.TxPipeline()
	pipe.ZAdd(ctx, activeFlowsKey, redis.Z{Score: float64(t.now().Unix()), Member: member})
	pipe.HSet(ctx, activeCodesKey, member, int(code))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track user %d: %w", userID, err)
	}
	return nil
}

// Forget removes userID from the index.
func (t *Tracker) Forget(ctx context.Context, userID int64) error {
	member := strconv.FormatInt(userID, 10)
	pipe := t.client.TxPipeline()
	pipe.ZRem(ctx, activeFlowsKey, member)
	pipe.HDel(ctx, activeCodesKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("forget user %d: %w", userID, err)
	}
	return nil
}

// LastSeen returns the last recorded activity of userID. ok is false when the
// user is not inside a flow.
func (t *Tracker) LastSeen(ctx context.Context, userID int64) (seen time.Time, ok bool, err error) {
	score, err := t.client.ZScore(ctx, activeFlowsKey, strconv.FormatInt(userID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(int64(score), 0), true, nil
}

// Expired lists at most limit users whose last activity is not after cutoff,
// oldest first, skipping the first offset of them.
func (t *Tracker) Expired(ctx context.Context, cutoff time.Time, offset, limit int64) ([]int64, error) {
	members, err := t.client.ZRangeByScore(ctx, activeFlowsKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(cutoff.Unix(), 10),
		Offset: offset,
		Count:  limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			t.log.Warn("tracker unable to parse user id", slog.String("member", member), slog.Any("error", err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CountByState groups tracked users by state name.
func (t *Tracker) CountByState(ctx context.Context) (map[string]int, error) {
	raw, err := t.client.HGetAll(ctx, activeCodesKey).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, value := range raw {
		code, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		counts[StateCode(code).String()]++
	}
	return counts, nil
}
