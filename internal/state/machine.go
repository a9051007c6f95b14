package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvalidTransition indicates that a requested state transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that the user has no records entry.
	ErrStateNotFound = errors.New("user state not found")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Machine loads, validates and persists user state. Callers hold the user's
// lock for the whole read-modify-write cycle.
type Machine struct {
	storage Storage
	locker  Locker
	tracker ActivityTracker
	log     *slog.Logger
}

// NewMachine creates a Machine. locker and tracker may be nil.
func NewMachine(storage Storage, locker Locker, tracker ActivityTracker, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}

	return &Machine{
		storage: storage,
		locker:  locker,
		tracker: tracker,
		log:     log,
	}
}

// Lock acquires the user's serialization point.
func (m *Machine) Lock(ctx context.Context, userID int64) (func(), error) {
	if m.locker == nil {
		m.log.Warn("state locker not configured; skipping", "user_id", userID)
		return func() {}, nil
	}

	return m.locker.Lock(ctx, userID)
}

// Load proxies to the underlying storage implementation.
func (m *Machine) Load(ctx context.Context, userID int64) (*Snapshot, error) {
	return m.storage.GetState(ctx, userID)
}

// Save persists next as the successor of snap.State. On success snap is
// updated in place so further saves in the same update chain from it.
func (m *Machine) Save(ctx context.Context, snap *Snapshot, next UserState) error {
	if snap == nil {
		return fmt.Errorf("save state: %w", ErrStateNotFound)
	}

	from := snap.State.Code
	if !from.Valid() {
		from = StateIdle
	}

	if !IsTransitionAllowed(from, next.Code) {
		m.log.Warn("invalid state transition", "user_id", snap.UserID, "from", from.String(), "to", next.Code.String())
		return ErrInvalidTransition
	}

	if err := m.storage.SetState(ctx, snap.UserID, next); err != nil {
		return err
	}

	if from != next.Code {
		transitionRecorder(from.String(), next.Code.String())
	}
	snap.State = next

	if m.tracker != nil {
		if err := m.tracker.Touch(ctx, snap.UserID, next.Code); err != nil {
			m.log.Warn("failed to track flow activity", "user_id", snap.UserID, "error", err)
		}
	}

	return nil
}
