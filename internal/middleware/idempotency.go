package middleware

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	"github.com/Proton-105/tagmystickies-bot/internal/idempotency"
)

// Idempotency drops updates the platform delivers more than once.
func Idempotency(guard *idempotency.Guard, botID int64, log *slog.Logger) handlers.Middleware {
	if guard == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			updateID := c.Update().ID
			if updateID == 0 {
				return next(c)
			}

			key := idempotency.UpdateKey(botID, updateID)
			err := guard.Run(handlers.RequestContext(c), key, func(context.Context) error {
				return next(c)
			})
			if errors.Is(err, idempotency.ErrDuplicate) {
				log.Info("dropping duplicate update", slog.Int("update_id", updateID))
				return nil
			}

			return err
		}
	}
}
