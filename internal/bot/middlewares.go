package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/tagmystickies-bot/internal/errors"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
	"github.com/Proton-105/tagmystickies-bot/pkg/logger"
)

// UserLocker is the per-user serialization point.
type UserLocker interface {
	Lock(ctx context.Context, userID int64) (func(), error)
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

				userMsg := apperrors.DefaultUserMessage
				if errHandler != nil {
					appErr := apperrors.NewInternalError("panic recovered in handler", fmt.Errorf("%v", r))
					if msg, _ := errHandler.Handle(handlers.RequestContext(c), appErr); msg != "" {
						userMsg = msg
					}
				}

				if sendErr := handlers.Reply(c, userMsg); sendErr != nil {
					log.Error("failed to notify user about panic", slog.Any("error", sendErr))
				}
				err = nil
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := apperrors.DefaultUserMessage
			if errHandler != nil {
				if msg, _ := errHandler.Handle(handlers.RequestContext(c), err); msg != "" {
					userMsg = msg
				}
			}

			_ = handlers.Reply(c, userMsg)
			return nil
		}
	}
}

// LoggingMiddleware gives every update a correlation id and a deadline and
// logs when it starts and ends.
func LoggingMiddleware(log *slog.Logger, timeout time.Duration) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			ctx := logger.WithCorrelationID(context.Background(), "")
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			handlers.SetRequestContext(c, ctx)

			start := time.Now()
			userID := int64(0)
			if c.Sender() != nil {
				userID = c.Sender().ID
			}
			kind := handlers.UpdateKind(c)
			correlationID := logger.CorrelationIDFromContext(ctx)

			log.Debug("handling update",
				slog.Int64("user_id", userID),
				slog.String("kind", kind),
				slog.String("correlation_id", correlationID),
			)
			err := next(c)
			log.Info("handled update",
				slog.Int64("user_id", userID),
				slog.String("kind", kind),
				slog.String("correlation_id", correlationID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

// UserLockMiddleware holds the sender's lock for the whole update. A user
// whose previous update is still running is told to wait.
func UserLockMiddleware(locker UserLocker, busyText string, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			if locker == nil || c.Sender() == nil {
				return next(c)
			}

			userID := c.Sender().ID
			unlock, err := locker.Lock(handlers.RequestContext(c), userID)
			if err != nil {
				if errors.Is(err, state.ErrStateLocked) {
					log.Info("user is busy", slog.Int64("user_id", userID))
					return handlers.Reply(c, busyText)
				}
				return apperrors.NewStateError("acquire user lock", err)
			}
			defer unlock()

			return next(c)
		}
	}
}
