package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// cancelKey is the confirmation sent when the user leaves code.
func cancelKey(code state.StateCode) string {
	switch code.Flow() {
	case state.FlowSingle:
		return "single.cancelled"
	case state.FlowBatch:
		return "batch.cancelled"
	case state.FlowMassEdit:
		return "mass.cancelled"
	default:
		return "cancel.done"
	}
}

// CancelCommand handles /cancel in any state, including a state that no
// longer decodes.
func (s *Session) CancelCommand(ctx context.Context, ev Event) error {
	snap, recovered, ok := s.FetchForReset(ctx, ev)
	if !ok {
		return nil
	}

	if !snap.State.InFlow() && !recovered {
		s.Send(ctx, ev.ChatID, s.tr.T("cancel.nothing"), nil)
		return nil
	}

	return s.CancelFlow(ctx, ev, snap)
}

// CancelFlow is Cancel with the confirmation of the flow snap is in.
func (s *Session) CancelFlow(ctx context.Context, ev Event, snap *state.Snapshot) error {
	return s.Cancel(ctx, ev, snap, cancelKey(snap.State.Code))
}

// Cancel is the single exit routine of every flow. It deletes every queued
// message, resets the user to idle, persists, confirms with confirmKey and
// restarts the ledger with just the confirmation.
func (s *Session) Cancel(ctx context.Context, ev Event, snap *state.Snapshot, confirmKey string) error {
	from := snap.State.Code

	next := snap.State.Clone()
	next.Queue(ev.MessageID)
	stale := next.Drain()
	s.DeleteAll(ctx, ev.ChatID, stale)

	next.Reset()
	if !s.Update(ctx, ev, snap, next) {
		return nil
	}

	confirm := s.Send(ctx, ev.ChatID, s.tr.T(confirmKey), nil)
	s.log.Info("flow cancelled", slog.Int64("user_id", ev.UserID), slog.String("from", from.String()))
	if confirm == 0 {
		return nil
	}

	next = snap.State.Clone()
	next.Queue(confirm)
	s.Update(ctx, ev, snap, next)
	return nil
}

// ExpireFlow cancels the flow of a user who has been away too long. The
// confirmation goes to the chat stored in the user's entry. A user with a
// missing entry, an undecodable state or no flow yields
// state.ErrNoFlowToExpire.
func (s *Session) ExpireFlow(ctx context.Context, userID int64) error {
	snap, err := s.machine.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) || isCorrupt(err) {
			return fmt.Errorf("%w: %w", state.ErrNoFlowToExpire, err)
		}
		return err
	}
	if !snap.State.InFlow() {
		return state.ErrNoFlowToExpire
	}

	ev := Event{UserID: userID, ChatID: snap.ChatID}
	if ev.ChatID == 0 {
		ev.ChatID = userID
	}

	if err := s.Cancel(ctx, ev, snap, "expiry.cancelled"); err != nil {
		return err
	}
	if snap.State.InFlow() {
		return fmt.Errorf("expire flow of user %d: state was not saved", userID)
	}
	return nil
}
