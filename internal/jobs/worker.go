package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
)

// Worker processes the bot's background tasks.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	// Start begins processing and returns. The process's own shutdown
	// sequence calls Shutdown; the worker does not watch signals.
	Start() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker builds a Worker for queue. Tasks still running drainTimeout
// after Shutdown are pushed back to redis.
func NewWorker(redisOpt asynq.RedisConnOpt, queue string, concurrency int, drainTimeout time.Duration, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:          map[string]int{queue: 1},
		Concurrency:     concurrency,
		ShutdownTimeout: drainTimeout,
		Logger:          newAsynqLogger(log),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			metrics.RecordJobFailure(task.Type())
			log.ErrorContext(ctx, "background task failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		}),
	})

	return &worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
}

func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

func (w *worker) Start() error {
	w.log.Info("jobs worker starting")
	return w.server.Start(w.mux)
}

// Shutdown stops pulling tasks and waits for the running ones.
func (w *worker) Shutdown() {
	w.log.Info("jobs worker stopping")
	w.server.Stop()
	w.server.Shutdown()
}
