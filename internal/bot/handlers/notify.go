package handlers

import (
	"context"
	"log/slog"
)

// BroadcastEnqueuer schedules a message for every registered user.
type BroadcastEnqueuer interface {
	EnqueueBroadcast(ctx context.Context, text string) error
}

// Notify lets an administrator broadcast a message (/notify <text>).
type Notify struct {
	session *Session
	queue   BroadcastEnqueuer
	admins  map[int64]struct{}
	log     *slog.Logger
}

// NewNotify creates the /notify handler. Only adminIDs may use it.
func NewNotify(session *Session, queue BroadcastEnqueuer, adminIDs []int64, log *slog.Logger) *Notify {
	if log == nil {
		log = slog.Default()
	}

	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Notify{session: session, queue: queue, admins: admins, log: log}
}

// Handle ignores everyone who is not an administrator.
func (h *Notify) Handle(ctx context.Context, ev Event) error {
	if _, ok := h.admins[ev.UserID]; !ok {
		h.log.Info("ignoring notify from non-admin", slog.Int64("user_id", ev.UserID))
		return nil
	}

	text := CommandPayload(ev.Text)
	if text == "" {
		h.session.Send(ctx, ev.ChatID, h.session.T("notify.usage"), nil)
		return nil
	}

	if h.queue == nil {
		h.session.Send(ctx, ev.ChatID, h.session.T("notify.failed"), nil)
		return nil
	}

	if err := h.queue.EnqueueBroadcast(ctx, text); err != nil {
		h.log.Error("failed to enqueue broadcast", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		h.session.Send(ctx, ev.ChatID, h.session.T("notify.failed"), nil)
		return nil
	}

	h.log.Info("broadcast enqueued", slog.Int64("user_id", ev.UserID), slog.Int("length", len(text)))
	h.session.Send(ctx, ev.ChatID, h.session.T("notify.queued"), nil)
	return nil
}
