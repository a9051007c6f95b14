package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/greeting"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

func newTestStart(f *fixture, parts ...greeting.Part) (*Start, *[]time.Duration) {
	gen := greeting.NewGenerator([]greeting.Greeting{parts}, nil)
	h := NewStart(f.session, f.records, gen, testLogger())

	var slept []time.Duration
	h.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return h, &slept
}

func TestStart_RegistersNewUser(t *testing.T) {
	f := newFixture(t)
	h, _ := newTestStart(f, greeting.Part{Text: "hello"})

	f.records.On("CreateUserEntry", mock.Anything, mock.MatchedBy(func(entry domain.UserEntry) bool {
		st, err := state.ParseStatus(entry.Status)
		return entry.User == testUser && entry.Chat == testChat && err == nil && st.Code == state.StateIdle
	})).Return(domain.UserEntry{User: testUser, Chat: testChat}, nil).Once()

	require.NoError(t, h.Handle(context.Background(), textEvent(1, "/start")))

	assert.Equal(t, []string{"hello"}, f.messenger.texts())
	f.records.AssertExpectations(t)
	f.records.AssertNotCalled(t, "PatchUserChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_RegistrationFailure(t *testing.T) {
	f := newFixture(t)
	h, _ := newTestStart(f, greeting.Part{Text: "hello"})

	f.records.On("CreateUserEntry", mock.Anything, mock.Anything).Return(nil, records.ErrServer).Once()

	require.NoError(t, h.Handle(context.Background(), textEvent(1, "/start")))

	assert.Equal(t, []string{f.tr.Tf("errors.update_failed", testSupport)}, f.messenger.texts())
}

func TestStart_FollowsUserToNewChat(t *testing.T) {
	tests := []struct {
		name     string
		patchErr error
	}{
		{"patched", nil},
		{"patch failed", records.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.storage.put(state.NewIdle())
			h, _ := newTestStart(f, greeting.Part{Text: "hello"})

			ev := textEvent(1, "/start")
			ev.ChatID = testChat + 1
			f.records.On("PatchUserChat", mock.Anything, testUser, testChat+1).Return(tt.patchErr).Once()

			require.NoError(t, h.Handle(context.Background(), ev))

			assert.Equal(t, []string{"hello"}, f.messenger.texts())
			assert.Equal(t, ev.ChatID, f.messenger.last().chatID)
			f.records.AssertExpectations(t)
		})
	}
}

func TestStart_ResetsUserInFlow(t *testing.T) {
	f := newFixture(t)
	st := stateIn(state.StateBatchCollecting)
	st.Stickers = append(st.Stickers, *stickerEvent(1, "u1", "f1").Sticker)
	st.Queue(1, 2)
	f.storage.put(st)
	h, _ := newTestStart(f, greeting.Part{Text: "hello"})

	require.NoError(t, h.Handle(context.Background(), textEvent(3, "/start")))

	got := f.storage.current()
	assert.Equal(t, state.StateIdle, got.Code)
	assert.Empty(t, got.Stickers)
	assert.Equal(t, []int{1, 2, 3}, f.messenger.deleted)
	assert.Equal(t, []string{f.tr.T("batch.cancelled"), "hello"}, f.messenger.texts())
}

func TestStart_RecoversCorruptState(t *testing.T) {
	f := newFixture(t)
	f.storage.getErr = fmt.Errorf("%w: bad json", state.ErrInvalidState)
	h, _ := newTestStart(f, greeting.Part{Text: "hello"})

	require.NoError(t, h.Handle(context.Background(), textEvent(1, "/start")))

	assert.Equal(t, []string{f.tr.T("cancel.done"), "hello"}, f.messenger.texts())
	assert.Equal(t, state.StateIdle, f.storage.current().Code)
}

func TestStart_FetchFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.getErr = records.ErrServer
	h, _ := newTestStart(f, greeting.Part{Text: "hello"})

	require.NoError(t, h.Handle(context.Background(), textEvent(1, "/start")))

	assert.Equal(t, []string{f.tr.Tf("errors.fetch_failed", testSupport)}, f.messenger.texts())
}

func TestStart_GreetingPartsAreSpaced(t *testing.T) {
	f := newFixture(t)
	f.storage.put(state.NewIdle())
	h, slept := newTestStart(f,
		greeting.Part{Text: "one"},
		greeting.Part{Text: "two", Delay: time.Second},
		greeting.Part{Text: "three", Delay: 3 * time.Second},
	)

	require.NoError(t, h.Handle(context.Background(), textEvent(1, "/start")))

	assert.Equal(t, []string{"one", "two", "three"}, f.messenger.texts())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestStart_GreetingStopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.storage.put(state.NewIdle())
	h, _ := newTestStart(f,
		greeting.Part{Text: "one"},
		greeting.Part{Text: "two", Delay: time.Second},
	)
	h.sleep = func(context.Context, time.Duration) error { return errors.New("context canceled") }

	require.NoError(t, h.Handle(context.Background(), textEvent(1, "/start")))

	assert.Equal(t, []string{"one"}, f.messenger.texts())
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
