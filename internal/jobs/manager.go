package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of asynq.Client the manager uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Manager enqueues the bot's background tasks.
type Manager struct {
	client Enqueuer
	queue  string
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, queue string, log *slog.Logger) *Manager {
	return NewManagerWithClient(asynq.NewClient(redisOpt), queue, log)
}

// NewManagerWithClient builds a Manager on top of client.
func NewManagerWithClient(client Enqueuer, queue string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{client: client, queue: queue, log: log}
}

// EnqueueBroadcast queues text for delivery to every registered user.
func (m *Manager) EnqueueBroadcast(ctx context.Context, text string) error {
	task, err := NewBroadcastTask(text, m.queue)
	if err != nil {
		return err
	}

	info, err := m.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue broadcast: %w", err)
	}

	m.log.Info("broadcast enqueued", slog.String("task_id", info.ID), slog.String("queue", info.Queue))
	return nil
}

func (m *Manager) Close() error {
	return m.client.Close()
}
