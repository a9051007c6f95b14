package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/keyboard"
	"github.com/Proton-105/tagmystickies-bot/internal/domain"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

const requestContextKey = "request_ctx"

// RequestContext returns the context attached to the update by
// SetRequestContext, or context.Background.
func RequestContext(c telebot.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}

// SetRequestContext attaches ctx to the update for the rest of the chain.
func SetRequestContext(c telebot.Context, ctx context.Context) {
	c.Set(requestContextKey, ctx)
}

// Reply shows text to the user: as a notice on the button for a button
// press, as a message otherwise.
func Reply(c telebot.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&telebot.CallbackResponse{Text: text})
	}
	return c.Send(text, telebot.ModeHTML)
}

// Actions a flow reacts to. The first three are also button actions.
const (
	ActionCancel      = keyboard.ActionCancel
	ActionNext        = keyboard.ActionNext
	ActionDone        = keyboard.ActionDone
	ActionMultiTag    = "multitag"
	ActionMassReplace = "massreplace"
)

// FlowHandler reacts to the events of the flow the user is in. snap is
// already loaded and the user's lock is held.
type FlowHandler interface {
	Sticker(ctx context.Context, ev Event, snap *state.Snapshot) error
	Text(ctx context.Context, ev Event, snap *state.Snapshot) error
	Action(ctx context.Context, ev Event, snap *state.Snapshot, action string) error
}

// StateMachine loads and saves user state.
type StateMachine interface {
	Load(ctx context.Context, userID int64) (*state.Snapshot, error)
	Save(ctx context.Context, snap *state.Snapshot, next state.UserState) error
}

// Records is the part of the records API the tagging flows call.
type Records interface {
	AddTagsToSticker(ctx context.Context, user int64, sticker string, tags []string) error
	StickerTags(ctx context.Context, user int64, sticker string) ([]string, error)
	TagStickers(ctx context.Context, user int64, stickers, tags []string) error
	MassReplaceTags(ctx context.Context, user int64, stickers, remove, add []string) error
}

// Registrar creates and updates user entries on /start.
type Registrar interface {
	CreateUserEntry(ctx context.Context, entry domain.UserEntry) (domain.UserEntry, error)
	PatchUserChat(ctx context.Context, user, chat int64) error
}

// StickerFinder answers inline searches.
type StickerFinder interface {
	FilterStickers(ctx context.Context, filter domain.StickerFilter) ([]string, error)
}
