package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/tagmystickies-bot/internal/records"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

func TestSingle_TagsOneSticker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.storage.put(state.NewIdle())

	require.NoError(t, f.idle.Sticker(ctx, stickerEvent(1, "u1", "f1"), f.load(t)))

	st := f.storage.current()
	assert.Equal(t, state.StateSingleAwaitingTags, st.Code)
	require.NotNil(t, st.SingleSticker)
	assert.Equal(t, "u1", st.SingleSticker.UniqueID)
	assert.Equal(t, []int{1, firstSentID}, st.MessagesToDelete)

	prompt := f.messenger.last()
	assert.Equal(t, f.tr.T("single.prompt"), prompt.text)
	assert.Same(t, f.kb.SingleCancel, prompt.markup)

	f.records.On("AddTagsToSticker", mock.Anything, testUser, "f1", []string{"cat", "dog"}).Return(nil).Once()

	require.NoError(t, f.single.Text(ctx, textEvent(2, "cat, dog"), f.load(t)))

	st = f.storage.current()
	assert.Equal(t, state.StateIdle, st.Code)
	assert.Nil(t, st.SingleSticker)
	assert.Equal(t, []int{firstSentID + 1}, st.MessagesToDelete)
	assert.Equal(t, []int{1, firstSentID, 2}, f.messenger.deleted)
	assert.Equal(t, f.tr.T("single.tagged"), f.messenger.last().text)
	f.records.AssertExpectations(t)
}

func TestSingle_StickerOutsideSet(t *testing.T) {
	f := newFixture(t)
	f.storage.put(state.NewIdle())

	ev := stickerEvent(1, "u1", "f1")
	ev.Sticker.SetName = ""

	require.NoError(t, f.idle.Sticker(context.Background(), ev, f.load(t)))

	assert.Equal(t, []string{f.tr.T("single.not_in_set")}, f.messenger.texts())
	assert.Equal(t, 0, f.storage.writes)
}

func TestSingle_NewStickerReplacesHeldOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.storage.put(state.NewIdle())

	require.NoError(t, f.idle.Sticker(ctx, stickerEvent(1, "u1", "f1"), f.load(t)))
	require.NoError(t, f.single.Sticker(ctx, stickerEvent(2, "u2", "f2"), f.load(t)))

	st := f.storage.current()
	assert.Equal(t, state.StateSingleAwaitingTags, st.Code)
	require.NotNil(t, st.SingleSticker)
	assert.Equal(t, "u2", st.SingleSticker.UniqueID)
	assert.Equal(t, []int{1, firstSentID, 2, firstSentID + 1}, st.MessagesToDelete)
}

func TestSingle_TextWithoutTags(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"blank", "  ,, \n"},
		{"only exclusions", "-cat -dog"},
		{"only page", "page:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.storage.put(state.NewIdle())
			require.NoError(t, f.idle.Sticker(ctx, stickerEvent(1, "u1", "f1"), f.load(t)))
			writes := f.storage.writes
			f.messenger.reset()

			require.NoError(t, f.single.Text(ctx, textEvent(2, tt.text), f.load(t)))

			assert.Equal(t, []string{f.tr.T("single.no_tags")}, f.messenger.texts())
			assert.Equal(t, writes, f.storage.writes)
			assert.Equal(t, state.StateSingleAwaitingTags, f.storage.current().Code)
			f.records.AssertNotCalled(t, "AddTagsToSticker", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSingle_RejectedTagsAreReportedEscaped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.storage.put(state.NewIdle())
	require.NoError(t, f.idle.Sticker(ctx, stickerEvent(1, "u1", "f1"), f.load(t)))

	f.records.On("AddTagsToSticker", mock.Anything, testUser, "f1", []string{"cat"}).Return(nil).Once()

	require.NoError(t, f.single.Text(ctx, textEvent(2, "cat semi;colon rock&roll"), f.load(t)))

	summary := f.messenger.last().text
	assert.Contains(t, summary, "semi;colon, rock&amp;roll")
	assert.Equal(t, state.StateIdle, f.storage.current().Code)
}

func TestSingle_CommitFailureKeepsState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", records.ErrNotFound, "commit.not_found"},
		{"validation", records.ErrValidation, "commit.validation"},
		{"server", records.ErrServer, "commit.server"},
		{"unknown", records.ErrUnknown, "commit.unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.storage.put(state.NewIdle())
			require.NoError(t, f.idle.Sticker(ctx, stickerEvent(1, "u1", "f1"), f.load(t)))
			before := f.storage.current()
			f.messenger.reset()

			f.records.On("AddTagsToSticker", mock.Anything, testUser, "f1", []string{"cat"}).Return(tt.err).Once()

			require.NoError(t, f.single.Text(ctx, textEvent(2, "cat"), f.load(t)))

			assert.Equal(t, before, f.storage.current())
			assert.Empty(t, f.messenger.deleted)
			require.Len(t, f.messenger.sent, 1)

			want := f.tr.T(tt.want)
			if tt.want == "commit.server" || tt.want == "commit.unknown" {
				want = f.tr.Tf(tt.want, testSupport)
			}
			assert.Equal(t, want, f.messenger.last().text)
		})
	}
}
