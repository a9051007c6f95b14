package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/keyboard"
	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

const (
	testUser    = int64(42)
	testChat    = int64(4200)
	testSupport = "@operator"
	firstSentID = 100
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	chatID int64
	text   string
	markup *telebot.ReplyMarkup
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	deleted []int
	sendErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: firstSentID}
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return 0, m.sendErr
	}

	id := m.nextID
	m.nextID++
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text, markup: markup})
	return id, nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.text)
	}
	return out
}

func (m *fakeMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.deleted = nil
}

// memoryStorage keeps snapshots in memory and counts writes.
type memoryStorage struct {
	mu      sync.Mutex
	entries map[int64]state.Snapshot
	getErr  error
	setErr  error
	writes  int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{entries: make(map[int64]state.Snapshot)}
}

func (s *memoryStorage) put(st state.UserState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[testUser] = state.Snapshot{UserID: testUser, ChatID: testChat, State: st}
}

func (s *memoryStorage) current() state.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[testUser].State.Clone()
}

func (s *memoryStorage) GetState(_ context.Context, userID int64) (*state.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		if errors.Is(s.getErr, state.ErrInvalidState) {
			return &state.Snapshot{UserID: userID, ChatID: testChat}, s.getErr
		}
		return nil, s.getErr
	}

	snap, ok := s.entries[userID]
	if !ok {
		return nil, errors.Join(state.ErrStateNotFound, records.ErrNotFound)
	}
	snap.State = snap.State.Clone()
	return &snap, nil
}

func (s *memoryStorage) SetState(_ context.Context, userID int64, st state.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return s.setErr
	}
	if err := st.Validate(); err != nil {
		return err
	}

	snap := s.entries[userID]
	snap.UserID = userID
	if snap.ChatID == 0 {
		snap.ChatID = testChat
	}
	snap.State = st.Clone()
	s.entries[userID] = snap
	s.writes++
	return nil
}

type recordsMock struct {
	mock.Mock
}

func (m *recordsMock) AddTagsToSticker(ctx context.Context, user int64, sticker string, tags []string) error {
	return m.Called(ctx, user, sticker, tags).Error(0)
}

func (m *recordsMock) StickerTags(ctx context.Context, user int64, sticker string) ([]string, error) {
	args := m.Called(ctx, user, sticker)
	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

func (m *recordsMock) TagStickers(ctx context.Context, user int64, stickers, tags []string) error {
	return m.Called(ctx, user, stickers, tags).Error(0)
}

func (m *recordsMock) MassReplaceTags(ctx context.Context, user int64, stickers, remove, add []string) error {
	return m.Called(ctx, user, stickers, remove, add).Error(0)
}

func (m *recordsMock) CreateUserEntry(ctx context.Context, entry domain.UserEntry) (domain.UserEntry, error) {
	args := m.Called(ctx, entry)
	created, _ := args.Get(0).(domain.UserEntry)
	return created, args.Error(1)
}

func (m *recordsMock) PatchUserChat(ctx context.Context, user, chat int64) error {
	return m.Called(ctx, user, chat).Error(0)
}

func (m *recordsMock) FilterStickers(ctx context.Context, filter domain.StickerFilter) ([]string, error) {
	args := m.Called(ctx, filter)
	if fn, ok := args.Get(0).(func(context.Context, domain.StickerFilter) []string); ok {
		return fn(ctx, filter), args.Error(1)
	}
	found, _ := args.Get(0).([]string)
	return found, args.Error(1)
}

type fixture struct {
	tr        i18n.Translator
	messenger *fakeMessenger
	storage   *memoryStorage
	machine   *state.Machine
	records   *recordsMock
	session   *Session
	kb        *Keyboards
	single    *Single
	batch     *Batch
	mass      *MassEdit
	idle      *Idle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	manager, err := i18n.Load("", "en")
	require.NoError(t, err)
	tr := manager.Translator("en")

	kb, err := NewKeyboards(keyboard.NewBuilder(keyboard.Labels{}, testLogger()))
	require.NoError(t, err)

	messenger := newFakeMessenger()
	storage := newMemoryStorage()
	machine := state.NewMachine(storage, nil, nil, testLogger())
	rec := &recordsMock{}
	hints := NewHints(tr, "tagbot", rand.New(rand.NewPCG(1, 2)))
	session := NewSession(machine, messenger, tr, hints, testSupport, testLogger())

	f := &fixture{
		tr:        tr,
		messenger: messenger,
		storage:   storage,
		machine:   machine,
		records:   rec,
		session:   session,
		kb:        kb,
		single:    NewSingle(session, rec, kb),
		batch:     NewBatch(session, rec, kb),
		mass:      NewMassEdit(session, rec, kb),
	}
	f.idle = NewIdle(f.single, f.batch, f.mass)
	return f
}

// load fetches the stored snapshot the way the dispatcher does at the top of an update.
func (f *fixture) load(t *testing.T) *state.Snapshot {
	t.Helper()
	snap, err := f.machine.Load(context.Background(), testUser)
	require.NoError(t, err)
	return snap
}

func stickerEvent(messageID int, unique, file string) Event {
	return Event{
		UserID:    testUser,
		ChatID:    testChat,
		MessageID: messageID,
		Sticker:   &domain.Sticker{UniqueID: unique, FileID: file, SetName: "set"},
	}
}

func textEvent(messageID int, text string) Event {
	return Event{UserID: testUser, ChatID: testChat, MessageID: messageID, Text: text}
}

func stateIn(code state.StateCode) state.UserState {
	st := state.NewIdle()
	st.Enter(code)
	return st
}
