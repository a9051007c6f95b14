package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	apperrors "github.com/Proton-105/tagmystickies-bot/internal/errors"
	"github.com/Proton-105/tagmystickies-bot/internal/jobs"
	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
)

// UserLister lists the registered users.
type UserLister interface {
	ListUserEntries(ctx context.Context, filter domain.UserEntryFilter) ([]domain.UserEntry, error)
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (int, error)
}

// BroadcastHandler delivers an administrator's message to every user.
type BroadcastHandler struct {
	users  UserLister
	sender Sender
	log    *slog.Logger
	retry  func(ctx context.Context, fn func() error, retryable func(error) bool) error
}

func NewBroadcastHandler(users UserLister, sender Sender, log *slog.Logger) *BroadcastHandler {
	if log == nil {
		log = slog.Default()
	}

	return &BroadcastHandler{
		users:  users,
		sender: sender,
		log:    log,
		retry:  apperrors.WithRetryIf,
	}
}

// ProcessTask sends the broadcast. A failed delivery to one user does not
// stop the others.
func (h *BroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := jobs.DecodeBroadcast(t)
	if err != nil {
		h.log.ErrorContext(ctx, "broadcast: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return errors.Join(err, asynq.SkipRetry)
	}

	entries, err := h.users.ListUserEntries(ctx, domain.UserEntryFilter{})
	if err != nil {
		return err
	}

	var sent, blocked, failed int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		chatID := entry.Chat
		if chatID == 0 {
			chatID = entry.User
		}

		err := h.retry(ctx, func() error {
			_, sendErr := h.sender.Send(ctx, chatID, payload.Text, nil)
			return sendErr
		}, retryableSend)

		switch {
		case err == nil:
			sent++
			metrics.RecordBroadcast("sent")
		case isUnreachable(err):
			blocked++
			metrics.RecordBroadcast("blocked")
		default:
			failed++
			metrics.RecordBroadcast("failed")
			h.log.WarnContext(ctx, "broadcast: delivery failed", slog.Int64("user_id", entry.User), slog.Any("error", err))
		}
	}

	h.log.InfoContext(ctx, "broadcast delivered",
		slog.Int("users", len(entries)),
		slog.Int("sent", sent),
		slog.Int("blocked", blocked),
		slog.Int("failed", failed),
	)
	return nil
}

// isUnreachable reports errors that no retry can fix.
func isUnreachable(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrChatNotFound)
}

// retryableSend retries flood control and server side failures.
func retryableSend(err error) bool {
	if err == nil || isUnreachable(err) {
		return false
	}

	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return true
	}

	var apiErr *telebot.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 500
	}

	return apperrors.IsRetryable(err)
}
