package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Sweeper ends flows that have been idle too long.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ExpireFlowsHandler runs one sweep per scheduled task.
type ExpireFlowsHandler struct {
	sweeper Sweeper
	log     *slog.Logger
}

func NewExpireFlowsHandler(sweeper Sweeper, log *slog.Logger) *ExpireFlowsHandler {
	if log == nil {
		log = slog.Default()
	}

	return &ExpireFlowsHandler{sweeper: sweeper, log: log}
}

func (h *ExpireFlowsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	expired, err := h.sweeper.Sweep(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "flow sweep failed", slog.String("task_type", t.Type()), slog.Int("expired", expired), slog.Any("error", err))
		return err
	}

	h.log.DebugContext(ctx, "flow sweep finished", slog.Int("expired", expired))
	return nil
}
