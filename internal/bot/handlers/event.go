package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/domain"
)

// Event is one inbound update reduced to what the flows look at.
type Event struct {
	UserID int64
	ChatID int64
	// MessageID is the user's message. It is zero for button presses.
	MessageID int
	Text      string
	Sticker   *domain.Sticker
}

// EventFromContext builds an Event from a telebot update. ok is false when
// the update has no sender.
func EventFromContext(c telebot.Context) (ev Event, ok bool) {
	if c == nil || c.Sender() == nil {
		return Event{}, false
	}

	ev = Event{UserID: c.Sender().ID, ChatID: c.Sender().ID}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}

	if c.Callback() != nil {
		return ev, true
	}

	msg := c.Message()
	if msg == nil {
		return ev, true
	}

	ev.MessageID = msg.ID
	ev.Text = msg.Text
	if s := msg.Sticker; s != nil {
		ev.Sticker = &domain.Sticker{
			UniqueID: s.UniqueID,
			FileID:   s.FileID,
			SetName:  s.SetName,
		}
	}

	return ev, true
}

// CommandName returns the lower-cased command of text without the leading
// slash, a bot mention or arguments. It returns "" for text that is not a command.
func CommandName(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	name := strings.TrimPrefix(text, "/")
	if i := strings.IndexAny(name, " \n\t"); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}

	return strings.ToLower(name)
}

// CommandPayload returns the text after the command token.
func CommandPayload(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexAny(text, " \n\t")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// UpdateKind names the update for logs and metrics. Commands are named,
// free text is not.
func UpdateKind(c telebot.Context) string {
	if c.Callback() != nil {
		return "button"
	}
	if c.Query() != nil {
		return "inline"
	}

	msg := c.Message()
	switch {
	case msg == nil:
		return "other"
	case msg.Sticker != nil:
		return "sticker"
	case CommandName(msg.Text) != "":
		return "command:" + CommandName(msg.Text)
	default:
		return "text"
	}
}
