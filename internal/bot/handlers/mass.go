package handlers

import (
	"context"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
	"github.com/Proton-105/tagmystickies-bot/internal/tags"
)

// MassEdit removes and then adds tags across many stickers (/massreplace).
// Removing a missing tag or adding a present one is not an error.
type MassEdit struct {
	session *Session
	records Records
	kb      *Keyboards
}

// NewMassEdit creates the mass edit flow.
func NewMassEdit(session *Session, records Records, kb *Keyboards) *MassEdit {
	return &MassEdit{session: session, records: records, kb: kb}
}

// Start enters sticker collection.
func (f *MassEdit) Start(ctx context.Context, ev Event, snap *state.Snapshot) error {
	next := snap.State.Clone()
	next.Enter(state.StateMassEditCollecting)
	next.Queue(ev.MessageID)
	next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("mass.intro"), f.kb.MassCollect))

	f.session.Update(ctx, ev, snap, next)
	return nil
}

// Sticker adds to the list in every step. Outside collection the user is
// told the sticker was taken anyway.
func (f *MassEdit) Sticker(ctx context.Context, ev Event, snap *state.Snapshot) error {
	if ev.Sticker == nil {
		return nil
	}

	next := snap.State.Clone()
	next.Stickers = append(next.Stickers, *ev.Sticker)
	next.Queue(ev.MessageID)
	next.Queue(previewTags(ctx, f.session, f.records, ev))

	if snap.State.Code != state.StateMassEditCollecting {
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("mass.sticker_while_tagging"), nil))
	}

	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *MassEdit) Text(ctx context.Context, ev Event, snap *state.Snapshot) error {
	next := snap.State.Clone()
	next.Queue(ev.MessageID)

	parsed := tags.Parse(ev.Text)
	switch snap.State.Code {
	case state.StateMassEditAwaitingRemove:
		next.TagsToRemove = append(next.TagsToRemove, parsed.Tags...)
		next.Queue(f.session.ReportRejected(ctx, ev.ChatID, parsed.Rejected))
	case state.StateMassEditAwaitingAdd:
		next.TagsToAdd = append(next.TagsToAdd, parsed.Tags...)
		next.Queue(f.session.ReportRejected(ctx, ev.ChatID, parsed.Rejected))
	default:
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("mass.not_ready"), f.kb.MassCollect))
	}

	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *MassEdit) Action(ctx context.Context, ev Event, snap *state.Snapshot, action string) error {
	switch {
	case action == ActionNext && snap.State.Code == state.StateMassEditCollecting:
		return f.toRemove(ctx, ev, snap)
	case action == ActionNext && snap.State.Code == state.StateMassEditAwaitingRemove:
		return f.toAdd(ctx, ev, snap)
	case action == ActionDone && snap.State.Code == state.StateMassEditAwaitingAdd:
		return f.done(ctx, ev, snap)
	default:
		return nil
	}
}

func (f *MassEdit) toRemove(ctx context.Context, ev Event, snap *state.Snapshot) error {
	next := snap.State.Clone()
	next.Queue(ev.MessageID)

	if len(snap.State.Stickers) == 0 {
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("mass.need_sticker"), f.kb.MassCollect))
		f.session.Update(ctx, ev, snap, next)
		return nil
	}

	next.Code = state.StateMassEditAwaitingRemove
	next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("mass.remove_prompt"), f.kb.MassRemove))
	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *MassEdit) toAdd(ctx context.Context, ev Event, snap *state.Snapshot) error {
	prompt := "mass.add_prompt"
	if len(snap.State.TagsToRemove) == 0 {
		prompt = "mass.add_prompt_no_remove"
	}

	next := snap.State.Clone()
	next.Code = state.StateMassEditAwaitingAdd
	next.Queue(ev.MessageID)
	next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T(prompt), f.kb.MassAdd))
	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *MassEdit) done(ctx context.Context, ev Event, snap *state.Snapshot) error {
	st := snap.State
	if len(st.TagsToRemove) == 0 && len(st.TagsToAdd) == 0 {
		next := st.Clone()
		next.Queue(ev.MessageID)
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("mass.need_tags"), nil))
		f.session.Update(ctx, ev, snap, next)
		return nil
	}

	keys := domain.StickerKeys(st.Stickers)
	if err := f.records.MassReplaceTags(ctx, ev.UserID, keys, st.TagsToRemove, st.TagsToAdd); err != nil {
		f.session.ReportCommitError(ctx, ev, err)
		return nil
	}

	doneKey := "mass.done"
	if len(st.TagsToAdd) == 0 {
		doneKey = "mass.done_no_add"
	}
	f.session.Complete(ctx, ev, snap, f.session.T(doneKey))
	return nil
}
