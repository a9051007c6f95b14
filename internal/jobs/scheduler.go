package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	queue          string
	sweepInterval  time.Duration
	log            *slog.Logger
}

// NewScheduler creates the periodic task scheduler. A zero sweepInterval
// registers nothing.
func NewScheduler(redisOpt asynq.RedisConnOpt, queue string, sweepInterval time.Duration, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC}),
		queue:          queue,
		sweepInterval:  sweepInterval,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	if s.sweepInterval <= 0 {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.sweepInterval)
	if _, err := s.asynqScheduler.Register(spec, NewExpireFlowsTask(s.queue, s.sweepInterval)); err != nil {
		return fmt.Errorf("register %s: %w", TaskTypeExpireFlows, err)
	}

	s.log.InfoContext(context.Background(), "scheduler: registered flow expiry sweep", slog.String("spec", spec))
	return nil
}

func (s *scheduler) Run() {
	s.log.InfoContext(context.Background(), "scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", slog.Any("error", err))
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.InfoContext(context.Background(), "scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
