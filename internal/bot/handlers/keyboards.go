package handlers

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/keyboard"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
)

// Keyboards holds the markup attached to every flow prompt. Buttons carry
// the state code of the step that issued them.
type Keyboards struct {
	SingleCancel *telebot.ReplyMarkup
	BatchCollect *telebot.ReplyMarkup
	BatchTags    *telebot.ReplyMarkup
	MassCollect  *telebot.ReplyMarkup
	MassRemove   *telebot.ReplyMarkup
	MassAdd      *telebot.ReplyMarkup
}

// NewKeyboards encodes all flow keyboards once. An error means a payload
// does not fit into a button and the bot must not start.
func NewKeyboards(b *keyboard.Builder) (*Keyboards, error) {
	kb := &Keyboards{}

	steps := []struct {
		dst   **telebot.ReplyMarkup
		build func(int) (*telebot.ReplyMarkup, error)
		code  state.StateCode
	}{
		{&kb.SingleCancel, b.Cancel, state.StateSingleAwaitingTags},
		{&kb.BatchCollect, b.CancelNext, state.StateBatchCollecting},
		{&kb.BatchTags, b.CancelDone, state.StateBatchAwaitingTags},
		{&kb.MassCollect, b.CancelNext, state.StateMassEditCollecting},
		{&kb.MassRemove, b.CancelNext, state.StateMassEditAwaitingRemove},
		{&kb.MassAdd, b.CancelDone, state.StateMassEditAwaitingAdd},
	}

	for _, step := range steps {
		markup, err := step.build(int(step.code))
		if err != nil {
			return nil, fmt.Errorf("build %s keyboard: %w", step.code, err)
		}
		*step.dst = markup
	}

	return kb, nil
}
