package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "user:lock:%d"
	lockPollInterval   = 50 * time.Millisecond
	unlockTimeout      = 2 * time.Second
)

// ErrStateLocked indicates that a concurrent update still holds the user's lock.
var ErrStateLocked = errors.New("state is locked, try again later")

// releaseScript deletes the lock only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes updates for one user.
type Locker interface {
	// Lock blocks until the user's lock is held or the wait expires.
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

// RedisLocker holds per-user locks in Redis so several bot replicas can share them.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	log    *slog.Logger
}

// NewRedisLocker creates a RedisLocker. ttl bounds how long a crashed holder blocks
// the user; wait bounds how long Lock polls.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, log *slog.Logger) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		log:    log,
	}
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.log.Error("failed to acquire user state lock", "user_id", userID, "error", err)
			return nil, err
		}
		if acquired {
			return l.releaser(key, token, userID), nil
		}

		if !time.Now().Before(deadline) {
			l.log.Warn("user state lock already held", "user_id", userID)
			return nil, ErrStateLocked
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string, userID int64) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Error("failed to release user state lock", "user_id", userID, "error", err)
			}
		})
	}
}

// MemoryLocker is a process-local Locker for single-replica deployments and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[int64]*lockSlot
	wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a MemoryLocker. A zero wait blocks until ctx is done.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		slots: make(map[int64]*lockSlot),
		wait:  wait,
	}
}

// Lock implements Locker.
func (l *MemoryLocker) Lock(ctx context.Context, userID int64) (func(), error) {
	slot := l.acquire(userID)

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.release(userID, slot)
			})
		}, nil
	case <-waitCtx.Done():
		l.release(userID, slot)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrStateLocked
	}
}

func (l *MemoryLocker) acquire(userID int64) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[userID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[userID] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryLocker) release(userID int64, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, userID)
	}
}
