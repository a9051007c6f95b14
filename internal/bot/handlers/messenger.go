package handlers

import (
	"context"
	"strconv"

	telebot "gopkg.in/telebot.v3"
)

// Messenger delivers and removes chat messages.
type Messenger interface {
	// Send delivers an HTML message and returns its id.
	Send(ctx context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// TelebotAPI is the part of *telebot.Bot a TelebotMessenger uses.
type TelebotAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
}

// TelebotMessenger implements Messenger on top of telebot.
type TelebotMessenger struct {
	api TelebotAPI
}

// NewTelebotMessenger wraps api.
func NewTelebotMessenger(api TelebotAPI) *TelebotMessenger {
	return &TelebotMessenger{api: api}
}

func (m *TelebotMessenger) Send(ctx context.Context, chatID int64, text string, markup *telebot.ReplyMarkup) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	opts := &telebot.SendOptions{
		ParseMode:             telebot.ModeHTML,
		DisableWebPagePreview: true,
	}
	if markup != nil {
		opts.ReplyMarkup = markup
	}

	msg, err := m.api.Send(telebot.ChatID(chatID), text, opts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (m *TelebotMessenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.api.Delete(telebot.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	})
}
