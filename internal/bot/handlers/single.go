package handlers

import (
	"context"

	"github.com/Proton-105/tagmystickies-bot/internal/state"
	"github.com/Proton-105/tagmystickies-bot/internal/tags"
)

// Single tags one sticker: a sticker arrives, then one message of tags.
type Single struct {
	session *Session
	records Records
	kb      *Keyboards
}

// NewSingle creates the single sticker flow.
func NewSingle(session *Session, records Records, kb *Keyboards) *Single {
	return &Single{session: session, records: records, kb: kb}
}

// Start holds ev's sticker and asks for its tags. It is also how a new
// sticker replaces the held one.
func (f *Single) Start(ctx context.Context, ev Event, snap *state.Snapshot) error {
	if ev.Sticker == nil {
		return nil
	}
	if ev.Sticker.SetName == "" {
		f.session.Send(ctx, ev.ChatID, f.session.T("single.not_in_set"), nil)
		return nil
	}

	sticker := *ev.Sticker
	next := snap.State.Clone()
	next.Enter(state.StateSingleAwaitingTags)
	next.SingleSticker = &sticker
	next.Queue(ev.MessageID)
	next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("single.prompt"), f.kb.SingleCancel))

	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *Single) Sticker(ctx context.Context, ev Event, snap *state.Snapshot) error {
	return f.Start(ctx, ev, snap)
}

func (f *Single) Text(ctx context.Context, ev Event, snap *state.Snapshot) error {
	parsed := tags.Parse(ev.Text)
	if parsed.Empty() {
		f.session.Send(ctx, ev.ChatID, f.session.T("single.no_tags"), nil)
		return nil
	}

	sticker := snap.State.SingleSticker
	if err := f.records.AddTagsToSticker(ctx, ev.UserID, sticker.Key(), parsed.Tags); err != nil {
		f.session.ReportCommitError(ctx, ev, err)
		return nil
	}

	next := snap.State.Clone()
	next.Queue(ev.MessageID)
	f.session.DeleteAll(ctx, ev.ChatID, next.Drain())

	summary := f.session.T("single.tagged")
	if len(parsed.Rejected) > 0 {
		summary = f.session.tr.Tf("single.tagged_with_rejects", f.session.JoinTags(parsed.Rejected))
	}

	next.Reset()
	next.Queue(f.session.Send(ctx, ev.ChatID, summary, nil))
	f.session.Update(ctx, ev, snap, next)
	return nil
}

// Action ignores next and done; there is only one step.
func (f *Single) Action(context.Context, Event, *state.Snapshot, string) error {
	return nil
}
