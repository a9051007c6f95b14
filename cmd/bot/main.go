package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/tagmystickies-bot/internal/bot"
	"github.com/Proton-105/tagmystickies-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/tagmystickies-bot/internal/errors"
	"github.com/Proton-105/tagmystickies-bot/internal/health"
	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
	"github.com/Proton-105/tagmystickies-bot/internal/idempotency"
	"github.com/Proton-105/tagmystickies-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/tagmystickies-bot/internal/jobs/handlers"
	"github.com/Proton-105/tagmystickies-bot/internal/lifecycle"
	"github.com/Proton-105/tagmystickies-bot/internal/ratelimit"
	"github.com/Proton-105/tagmystickies-bot/internal/records"
	"github.com/Proton-105/tagmystickies-bot/internal/state"
	"github.com/Proton-105/tagmystickies-bot/pkg/config"
	"github.com/Proton-105/tagmystickies-bot/pkg/graceful"
	"github.com/Proton-105/tagmystickies-bot/pkg/logger"
	"github.com/Proton-105/tagmystickies-bot/pkg/metrics"
	appredis "github.com/Proton-105/tagmystickies-bot/pkg/redis"
)

const (
	flowGaugeInterval  = 30 * time.Second
	limiterJanitorTick = time.Minute
	readinessTimeout   = 3 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tagmystickies-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Log.Level))
	log, logCloser := logger.New(logger.Options{
		Level:      level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Sentry:     cfg.Sentry.Enabled,
	})
	defer logCloser.Close()
	slog.SetDefault(log)
	config.WatchLogLevel(v, level, log)

	log.Info("starting tagmystickies bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("log_level", level.Level().String()),
	)

	catalog, err := i18n.Load(cfg.I18n.Dir, cfg.I18n.Locale)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	tr := catalog.Translator(cfg.I18n.Locale)

	rdb, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("failed to close redis", slog.Any("error", err))
		}
	}()

	breaker := apperrors.NewCircuitBreakerWithSettings(apperrors.BreakerSettings{
		ErrorThreshold:      cfg.Records.Breaker.ErrorThreshold,
		MinRequests:         cfg.Records.Breaker.MinRequests,
		OpenTimeout:         cfg.Records.Breaker.OpenTimeout,
		HalfOpenMaxRequests: cfg.Records.Breaker.HalfOpenMaxRequests,
	})
	rec, err := records.New(&http.Client{Timeout: cfg.Records.Timeout}, cfg.Records.BaseURL, breaker, log)
	if err != nil {
		return err
	}

	tracker := state.NewTracker(rdb, log)
	state.RegisterTransitionRecorder(metrics.RecordStateTransition)
	machine := state.NewMachine(state.NewRecordsStorage(rec), newLocker(cfg.State, rdb, log), tracker, log)

	var guard *idempotency.Guard
	if cfg.Idempotency.Enabled {
		guard = idempotency.NewGuard(idempotency.NewRedisStore(rdb, log), cfg.Idempotency.TTL, log)
	}

	memLimiter := ratelimit.NewMemoryLimiter(log)
	go memLimiter.RunJanitor(ctx, limiterJanitorTick, 2*cfg.RateLimit.Window)
	limiter := ratelimit.NewFallbackLimiter(ratelimit.NewRedisLimiter(rdb, log), memLimiter, log)

	asynqOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

	var (
		manager    *jobs.Manager
		broadcasts handlers.BroadcastEnqueuer
	)
	if cfg.Jobs.Enabled {
		manager = jobs.NewManager(asynqOpt, cfg.Jobs.Queue, log)
		broadcasts = manager
	}

	b, err := bot.New(bot.Deps{
		Config:     *cfg,
		Log:        log,
		Translator: tr,
		Records:    rec,
		Machine:    machine,
		Guard:      guard,
		Limiter:    limiter,
		Broadcasts: broadcasts,
	})
	if err != nil {
		return err
	}

	if cfg.Bot.SyncMetadata {
		md, err := bot.BuildMetadata(cfg.Bot.Metadata, b.Telebot().Me.Username, tr)
		if err != nil {
			return err
		}
		if err := bot.SyncMetadata(b.Telebot(), md, log); err != nil {
			log.Warn("bot metadata is out of sync", slog.Any("error", err))
		}
	}

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram", lifecycle.StopFunc(b.Stop))

	cleaner := state.NewCleaner(tracker, machine, b.Session(), log, cfg.State.FlowTTL, cfg.State.SweepInterval)
	if cfg.Jobs.Enabled {
		if err := startJobs(cfg, asynqOpt, rec, b, cleaner, shutdown, log); err != nil {
			return err
		}
		shutdown.Register("jobs-client", func(context.Context) error {
			return manager.Close()
		})
	} else {
		go cleaner.Run(ctx)
	}

	go metrics.NewFlowCollector(tracker, flowGaugeInterval, log).Run(ctx)

	checker := health.NewChecker(log, readinessTimeout)
	checker.AddCheck("redis", health.NewRedisChecker(rdb))
	checker.AddCheck("records", health.NewRecordsChecker(rec))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))

	ops := graceful.NewServer(log, &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      lifecycle.NewOpsRouter(lifecycle.NewProbes(checker, log), log),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, cfg.App.ShutdownTimeout)

	opsErr := make(chan error, 1)
	go func() { opsErr <- ops.ListenAndServe(ctx) }()

	go b.Start()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-opsErr:
		if err != nil {
			runErr = fmt.Errorf("ops server: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	return errors.Join(runErr, shutdown.Execute(shutdownCtx))
}

func newLocker(cfg config.StateConfig, rdb *goredis.Client, log *slog.Logger) state.Locker {
	if cfg.LockBackend == "memory" {
		return state.NewMemoryLocker(cfg.LockWait)
	}
	return state.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait, log)
}

// startJobs runs the asynq worker, and the scheduler when flows expire.
func startJobs(cfg *config.Config, opt asynq.RedisConnOpt, rec *records.Client, b *bot.Bot, cleaner *state.Cleaner, shutdown *lifecycle.Shutdown, log *slog.Logger) error {
	worker := jobs.NewWorker(opt, cfg.Jobs.Queue, cfg.Jobs.Concurrency, cfg.App.ShutdownTimeout, log)
	worker.RegisterHandler(jobs.TaskTypeBroadcast, jobhandlers.NewBroadcastHandler(rec, b.Messenger(), log))
	worker.RegisterHandler(jobs.TaskTypeExpireFlows, jobhandlers.NewExpireFlowsHandler(cleaner, log))

	if err := worker.Start(); err != nil {
		return fmt.Errorf("start jobs worker: %w", err)
	}
	shutdown.Register("jobs-worker", lifecycle.StopFunc(worker.Shutdown))

	interval := time.Duration(0)
	if cleaner.Enabled() {
		interval = cfg.State.SweepInterval
	}

	scheduler := jobs.NewScheduler(opt, cfg.Jobs.Queue, interval, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return fmt.Errorf("register scheduled tasks: %w", err)
	}
	scheduler.Run()
	shutdown.Register("jobs-scheduler", lifecycle.StopFunc(scheduler.Shutdown))

	return nil
}
