package handlers

import (
	"context"
	"log/slog"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
	"github.com/Proton-105/tagmystickies-bot/internal/tags"
)

// Batch applies one set of tags to many stickers (/multitag).
type Batch struct {
	session *Session
	records Records
	kb      *Keyboards
}

// NewBatch creates the batch tagging flow.
func NewBatch(session *Session, records Records, kb *Keyboards) *Batch {
	return &Batch{session: session, records: records, kb: kb}
}

// Start enters sticker collection.
func (f *Batch) Start(ctx context.Context, ev Event, snap *state.Snapshot) error {
	next := snap.State.Clone()
	next.Enter(state.StateBatchCollecting)
	next.Queue(ev.MessageID)
	next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("batch.intro"), f.kb.BatchCollect))

	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *Batch) Sticker(ctx context.Context, ev Event, snap *state.Snapshot) error {
	if ev.Sticker == nil {
		return nil
	}

	next := snap.State.Clone()
	next.Stickers = append(next.Stickers, *ev.Sticker)
	next.Queue(ev.MessageID)

	if snap.State.Code == state.StateBatchAwaitingTags {
		next.Code = state.StateBatchCollecting
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("batch.back_to_stickers"), f.kb.BatchCollect))
	} else {
		next.Queue(previewTags(ctx, f.session, f.records, ev))
	}

	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *Batch) Text(ctx context.Context, ev Event, snap *state.Snapshot) error {
	next := snap.State.Clone()
	next.Queue(ev.MessageID)

	if snap.State.Code != state.StateBatchAwaitingTags {
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("batch.not_ready"), f.kb.BatchCollect))
		f.session.Update(ctx, ev, snap, next)
		return nil
	}

	parsed := tags.Parse(ev.Text)
	next.TagsToAdd = append(next.TagsToAdd, parsed.Tags...)
	next.Queue(f.session.ReportRejected(ctx, ev.ChatID, parsed.Rejected))
	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *Batch) Action(ctx context.Context, ev Event, snap *state.Snapshot, action string) error {
	switch {
	case action == ActionNext && snap.State.Code == state.StateBatchCollecting:
		return f.next(ctx, ev, snap)
	case action == ActionDone && snap.State.Code == state.StateBatchAwaitingTags:
		return f.done(ctx, ev, snap)
	default:
		return nil
	}
}

func (f *Batch) next(ctx context.Context, ev Event, snap *state.Snapshot) error {
	next := snap.State.Clone()
	next.Queue(ev.MessageID)

	if len(snap.State.Stickers) == 0 {
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("batch.need_sticker"), nil))
		f.session.Update(ctx, ev, snap, next)
		return nil
	}

	next.Code = state.StateBatchAwaitingTags
	next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("batch.tags_prompt"), f.kb.BatchTags))
	f.session.Update(ctx, ev, snap, next)
	return nil
}

func (f *Batch) done(ctx context.Context, ev Event, snap *state.Snapshot) error {
	if len(snap.State.TagsToAdd) == 0 {
		next := snap.State.Clone()
		next.Queue(ev.MessageID)
		next.Queue(f.session.Send(ctx, ev.ChatID, f.session.T("batch.need_tag"), nil))
		f.session.Update(ctx, ev, snap, next)
		return nil
	}

	keys := domain.StickerKeys(snap.State.Stickers)
	if err := f.records.TagStickers(ctx, ev.UserID, keys, snap.State.TagsToAdd); err != nil {
		f.session.ReportCommitError(ctx, ev, err)
		return nil
	}

	f.session.Complete(ctx, ev, snap, f.session.T("batch.done"))
	return nil
}

// previewTags sends the current tags of ev's sticker and returns the
// message id, or 0 when nothing was sent.
func previewTags(ctx context.Context, s *Session, rec Records, ev Event) int {
	current, err := rec.StickerTags(ctx, ev.UserID, ev.Sticker.Key())
	switch {
	case err == nil && len(current) == 0:
		return s.Send(ctx, ev.ChatID, s.T("stickers.no_tags"), nil)
	case err == nil:
		return s.Send(ctx, ev.ChatID, s.tr.Tf("stickers.tags", s.JoinTags(current)), nil)
	case records.KindOf(err) == records.KindNotFound:
		return s.Send(ctx, ev.ChatID, s.T("stickers.tags_unavailable"), nil)
	default:
		s.log.Warn("failed to fetch sticker tags", slog.Int64("user_id", ev.UserID), slog.Any("error", err))
		return 0
	}
}
