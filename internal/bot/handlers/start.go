package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/greeting"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// Start registers new users, follows users to a new chat, gets stuck users
// out of their flow and greets.
type Start struct {
	session   *Session
	registrar Registrar
	greetings *greeting.Generator
	sleep     func(ctx context.Context, d time.Duration) error
	log       *slog.Logger
}

// NewStart creates the /start handler.
func NewStart(session *Session, registrar Registrar, greetings *greeting.Generator, log *slog.Logger) *Start {
	if log == nil {
		log = slog.Default()
	}

	return &Start{
		session:   session,
		registrar: registrar,
		greetings: greetings,
		sleep:     sleepContext,
		log:       log,
	}
}

func (h *Start) Handle(ctx context.Context, ev Event) error {
	snap, err := h.session.machine.Load(ctx, ev.UserID)
	recovered := false

	switch {
	case err == nil:
	case errors.Is(err, state.ErrStateNotFound):
		var ok bool
		if snap, ok = h.register(ctx, ev); !ok {
			return nil
		}
	case snap != nil && isCorrupt(err):
		h.log.Warn("resetting undecodable user state on start", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		snap.State = state.NewIdle()
		recovered = true
	default:
		h.session.reportFetchError(ctx, ev, err)
		return nil
	}

	if snap.ChatID != ev.ChatID {
		if err := h.registrar.PatchUserChat(ctx, ev.UserID, ev.ChatID); err != nil {
			h.log.Warn("failed to update user chat", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		} else {
			snap.ChatID = ev.ChatID
		}
	}

	if snap.State.InFlow() || recovered {
		if err := h.session.CancelFlow(ctx, ev, snap); err != nil {
			return err
		}
	}

	return h.greet(ctx, ev.ChatID)
}

func (h *Start) register(ctx context.Context, ev Event) (*state.Snapshot, bool) {
	idle := state.NewIdle()
	status, err := idle.Encode()
	if err != nil {
		h.log.Error("failed to encode idle state", slog.Any("error", err))
		return nil, false
	}

	entry, err := h.registrar.CreateUserEntry(ctx, domain.UserEntry{
		User:   ev.UserID,
		Chat:   ev.ChatID,
		Status: status,
	})
	if err != nil {
		h.log.Error("failed to register user", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		h.session.Send(ctx, ev.ChatID, h.session.tr.Tf("errors.update_failed", h.session.support), nil)
		return nil, false
	}

	h.log.Info("registered user", slog.Int64("user_id", ev.UserID))
	return &state.Snapshot{UserID: ev.UserID, ChatID: entry.Chat, State: idle}, true
}

func (h *Start) greet(ctx context.Context, chatID int64) error {
	if h.greetings == nil {
		return nil
	}

	var elapsed time.Duration
	for _, part := range h.greetings.Next() {
		if wait := part.Delay - elapsed; wait > 0 {
			if err := h.sleep(ctx, wait); err != nil {
				return nil
			}
			elapsed = part.Delay
		}
		h.session.Send(ctx, chatID, part.Text, nil)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
