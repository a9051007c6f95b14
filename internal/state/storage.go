// Package state manages the per-user flow state persisted in user entries.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
)

// Snapshot is a user's entry as loaded at the start of an update.
type Snapshot struct {
	UserID int64
	ChatID int64
	State  UserState
}

// Storage defines the persistence contract for user flow state.
type Storage interface {
	// GetState returns the current state for the specified user.
	GetState(ctx context.Context, userID int64) (*Snapshot, error)
	// SetState saves the provided state for the specified user.
	SetState(ctx context.Context, userID int64, state UserState) error
}

// EntryStore is the subset of the records client that state persistence needs.
type EntryStore interface {
	RetrieveUserEntry(ctx context.Context, userID int64) (domain.UserEntry, error)
	PatchUserStatus(ctx context.Context, userID int64, status string) error
}

// RecordsStorage keeps state in the status field of the user's records entry.
type RecordsStorage struct {
	entries EntryStore
}

// NewRecordsStorage creates a Storage backed by entries.
func NewRecordsStorage(entries EntryStore) *RecordsStorage {
	return &RecordsStorage{entries: entries}
}

// GetState loads and decodes the user's entry. A missing entry yields ErrStateNotFound
// wrapped together with the records error.
func (s *RecordsStorage) GetState(ctx context.Context, userID int64) (*Snapshot, error) {
	entry, err := s.entries.RetrieveUserEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			return nil, errors.Join(ErrStateNotFound, err)
		}
		return nil, fmt.Errorf("load state: %w", err)
	}

	st, err := ParseStatus(entry.Status)
	if err != nil {
		return &Snapshot{UserID: entry.User, ChatID: entry.Chat}, fmt.Errorf("decode state for user %d: %w", userID, err)
	}

	return &Snapshot{UserID: entry.User, ChatID: entry.Chat, State: st}, nil
}

// SetState encodes st and writes it as the user's status.
func (s *RecordsStorage) SetState(ctx context.Context, userID int64, st UserState) error {
	status, err := st.Encode()
	if err != nil {
		return err
	}

	if err := s.entries.PatchUserStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
