package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// Labels holds the button captions.
type Labels struct {
	Cancel string
	Next   string
	Done   string
}

// DefaultLabels are used for captions left empty.
var DefaultLabels = Labels{
	Cancel: "Cancel",
	Next:   "Next",
	Done:   "Done",
}

// Builder creates the inline keyboards attached to flow prompts.
type Builder struct {
	log    *slog.Logger
	labels Labels
}

// NewBuilder returns a new Builder instance.
func NewBuilder(labels Labels, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	if labels.Cancel == "" {
		labels.Cancel = DefaultLabels.Cancel
	}
	if labels.Next == "" {
		labels.Next = DefaultLabels.Next
	}
	if labels.Done == "" {
		labels.Done = DefaultLabels.Done
	}

	return &Builder{log: log, labels: labels}
}

// Cancel builds a single cancel button for the given mode.
func (b *Builder) Cancel(mode int) (*telebot.ReplyMarkup, error) {
	return b.build(mode, ActionCancel)
}

// CancelNext builds cancel and next buttons for the given mode.
func (b *Builder) CancelNext(mode int) (*telebot.ReplyMarkup, error) {
	return b.build(mode, ActionCancel, ActionNext)
}

// CancelDone builds cancel and done buttons for the given mode.
func (b *Builder) CancelDone(mode int) (*telebot.ReplyMarkup, error) {
	return b.build(mode, ActionCancel, ActionDone)
}

func (b *Builder) build(mode int, actions ...string) (*telebot.ReplyMarkup, error) {
	row := make([]InlineButton, 0, len(actions))
	for _, action := range actions {
		row = append(row, InlineButton{
			Text:   b.label(action),
			Action: ButtonAction{Mode: mode, Action: action},
		})
	}

	markup, err := NewInlineKeyboard().AddRow(row...).Build()
	if err != nil {
		b.log.Error("failed to build keyboard", slog.Int("mode", mode), slog.Any("error", err))
		return nil, err
	}

	return markup, nil
}

func (b *Builder) label(action string) string {
	switch action {
	case ActionCancel:
		return b.labels.Cancel
	case ActionNext:
		return b.labels.Next
	case ActionDone:
		return b.labels.Done
	default:
		return action
	}
}
