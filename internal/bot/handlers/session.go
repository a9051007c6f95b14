package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// Session is the shared plumbing of every flow: loading and saving state
// with the standard failure replies, sending, and message cleanup.
type Session struct {
	machine   StateMachine
	messenger Messenger
	tr        i18n.Translator
	hints     *Hints
	policy    *bluemonday.Policy
	support   string
	log       *slog.Logger
}

// NewSession creates a Session. support is named in replies that ask the
// user to reach out. hints may be nil.
func NewSession(machine StateMachine, messenger Messenger, tr i18n.Translator, hints *Hints, support string, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}

	return &Session{
		machine:   machine,
		messenger: messenger,
		tr:        tr,
		hints:     hints,
		policy:    bluemonday.StrictPolicy(),
		support:   support,
		log:       log,
	}
}

// T exposes the catalog to flows.
func (s *Session) T(key string) string {
	return s.tr.T(key)
}

// Fetch loads the user's state. On failure it tells the user what went
// wrong and returns ok == false; callers just return.
func (s *Session) Fetch(ctx context.Context, ev Event) (*state.Snapshot, bool) {
	snap, err := s.machine.Load(ctx, ev.UserID)
	if err == nil {
		return snap, true
	}

	s.reportFetchError(ctx, ev, err)
	return nil, false
}

// FetchForReset is Fetch for the routines that put a user back to idle. A
// stored state that no longer decodes is replaced by an idle one and
// recovered is set.
func (s *Session) FetchForReset(ctx context.Context, ev Event) (snap *state.Snapshot, recovered, ok bool) {
	snap, err := s.machine.Load(ctx, ev.UserID)
	if err == nil {
		return snap, false, true
	}

	if snap != nil && isCorrupt(err) {
		s.log.Warn("resetting undecodable user state", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		snap.State = state.NewIdle()
		return snap, true, true
	}

	s.reportFetchError(ctx, ev, err)
	return nil, false, false
}

func (s *Session) reportFetchError(ctx context.Context, ev Event, err error) {
	if isCorrupt(err) {
		s.log.Warn("stored user state is invalid", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		s.Send(ctx, ev.ChatID, s.tr.T("errors.corrupt_state"), nil)
		return
	}

	switch records.KindOf(err) {
	case records.KindNotFound:
		s.Send(ctx, ev.ChatID, s.tr.T("errors.not_recognized"), nil)
	case records.KindValidation, records.KindServer, records.KindUnknown:
		s.log.Error("failed to fetch user entry", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		s.Send(ctx, ev.ChatID, s.tr.Tf("errors.fetch_failed", s.support), nil)
	}
}

func isCorrupt(err error) bool {
	return errors.Is(err, state.ErrInvalidState) || errors.Is(err, state.ErrUnknownStateCode)
}

// Update persists next. On failure it tells the user and returns false.
func (s *Session) Update(ctx context.Context, ev Event, snap *state.Snapshot, next state.UserState) bool {
	if err := s.machine.Save(ctx, snap, next); err != nil {
		s.log.Error("failed to update user state",
			slog.Int64("user_id", ev.UserID),
			slog.String("to", next.Code.String()),
			slog.Any("error", err),
		)
		s.Send(ctx, ev.ChatID, s.tr.Tf("errors.update_failed", s.support), nil)
		return false
	}
	return true
}

// Send delivers text and returns the message id, or 0 when delivery failed.
func (s *Session) Send(ctx context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) int {
	if text == "" {
		return 0
	}

	id, err := s.messenger.Send(ctx, chatID, text, markup)
	if err != nil {
		s.log.Warn("failed to send message", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return 0
	}
	return id
}

// DeleteAll removes ids from the chat. Messages that are already gone are not an error.
func (s *Session) DeleteAll(ctx context.Context, chatID int64, ids []int) {
	for _, id := range ids {
		if err := s.messenger.Delete(ctx, chatID, id); err != nil {
			s.log.Debug("failed to delete message",
				slog.Int64("chat_id", chatID),
				slog.Int("message_id", id),
				slog.Any("error", err),
			)
		}
	}
}

// SendHint sends a random hint and returns its id.
func (s *Session) SendHint(ctx context.Context, chatID int64) int {
	return s.Send(ctx, chatID, s.hints.Random(), nil)
}

// JoinTags renders user-supplied tags for an HTML message.
func (s *Session) JoinTags(tags []string) string {
	return s.policy.Sanitize(strings.Join(tags, ", "))
}

// ReportRejected lists tokens that were dropped for invalid characters and
// returns the message id, or 0 when there was nothing to report.
func (s *Session) ReportRejected(ctx context.Context, chatID int64, rejected []string) int {
	if len(rejected) == 0 {
		return 0
	}
	return s.Send(ctx, chatID, s.tr.Tf("tags.rejected", s.JoinTags(rejected)), nil)
}

// ReportCommitError tells the user why a tag mutation failed. State is left as is.
func (s *Session) ReportCommitError(ctx context.Context, ev Event, err error) {
	kind := records.KindOf(err)
	s.log.Warn("tag mutation failed",
		slog.Int64("user_id", ev.UserID),
		slog.String("kind", kind.String()),
		slog.Any("error", err),
	)

	switch kind {
	case records.KindNotFound:
		s.Send(ctx, ev.ChatID, s.tr.T("commit.not_found"), nil)
	case records.KindValidation:
		s.Send(ctx, ev.ChatID, s.tr.T("commit.validation"), nil)
	case records.KindServer:
		s.Send(ctx, ev.ChatID, s.tr.Tf("commit.server", s.support), nil)
	case records.KindUnknown:
		s.Send(ctx, ev.ChatID, s.tr.Tf("commit.unknown", s.support), nil)
	}
}

// Complete ends a flow after a successful commit: the triggering message
// and the ledger are deleted, the user goes idle, and the ledger restarts
// with the completion reply and a hint.
func (s *Session) Complete(ctx context.Context, ev Event, snap *state.Snapshot, doneText string) {
	next := snap.State.Clone()
	next.Queue(ev.MessageID)
	stale := next.Drain()
	next.Reset()
	if !s.Update(ctx, ev, snap, next) {
		return
	}

	s.DeleteAll(ctx, ev.ChatID, stale)

	done := s.Send(ctx, ev.ChatID, doneText, nil)
	hint := s.SendHint(ctx, ev.ChatID)

	next = snap.State.Clone()
	next.Queue(done, hint)
	if len(next.MessagesToDelete) == 0 {
		return
	}
	s.Update(ctx, ev, snap, next)
}
