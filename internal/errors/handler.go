package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/tagmystickies-bot/pkg/logger"
	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
)

const codeUnknown = "unknown"

// Handler logs errors that escape bot handlers, reports the serious ones to
// sentry and picks the text shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle reports err and returns the user-facing text and whether the
// update may succeed if the user repeats it.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	code, severity, userMessage, retryable := classify(err)
	correlationID := logger.CorrelationIDFromContext(ctx)

	h.log.Error("update failed",
		slog.String("code", code),
		slog.String("severity", string(severity)),
		slog.Bool("retryable", retryable),
		slog.String("correlation_id", correlationID),
		slog.Any("error", err),
	)
	metrics.RecordError(code, string(severity))

	if h.sentryEnabled && (severity == SeverityHigh || severity == SeverityCritical) {
		report(err, code, severity, correlationID)
	}

	return userMessage, retryable
}

func classify(err error) (code string, severity Severity, userMessage string, retryable bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		userMessage = appErr.UserMessage
		if userMessage == "" {
			userMessage = DefaultUserMessage
		}
		return appErr.Code, appErr.Severity, userMessage, appErr.Retryable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		timeout := NewTimeoutError(err)
		return timeout.Code, timeout.Severity, timeout.UserMessage, timeout.Retryable
	}

	return codeUnknown, SeverityHigh, DefaultUserMessage, false
}

func report(err error, code string, severity Severity, correlationID string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		scope.SetTag("severity", string(severity))
		if correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
		sentry.CaptureException(err)
	})
}
