package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordUpdate(updateLabel(c), status, time.Since(start))
		return err
	}
}

// updateLabel folds every command the bot does not serve into one label.
func updateLabel(c telebot.Context) string {
	kind := handlers.UpdateKind(c)
	switch kind {
	case "button", "inline", "sticker", "text", "other":
		return kind
	case "command:start", "command:help", "command:cancel", "command:next", "command:done",
		"command:multitag", "command:massreplace", "command:notify":
		return kind
	default:
		return "command:other"
	}
}
