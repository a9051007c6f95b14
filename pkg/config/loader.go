// Package config provides configuration loading and validation utilities.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return LoadFile(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile is Load without the dotenv step. A missing file is not an error.
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	if err := Validate(&cfg); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if cfg.State.LockWait > cfg.State.LockTTL {
		return fmt.Errorf("validate config: state.lock_wait (%s) exceeds state.lock_ttl (%s)", cfg.State.LockWait, cfg.State.LockTTL)
	}

	return nil
}

// WatchLogLevel re-reads log.level whenever the config file changes and applies it to level.
func WatchLogLevel(v *viper.Viper, level *slog.LevelVar, log *slog.Logger) {
	if v == nil || level == nil || v.ConfigFileUsed() == "" {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		raw := v.GetString("log.level")
		var next slog.Level
		if err := next.UnmarshalText([]byte(raw)); err != nil {
			log.Warn("ignoring invalid log level from config", slog.String("level", raw), slog.String("file", e.Name))
			return
		}

		if next != level.Level() {
			level.Set(next)
			log.Info("log level changed", slog.String("level", next.String()))
		}
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tagmystickies-bot")
	v.SetDefault("app.shutdown_timeout", 15*time.Second)

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.poll_timeout", 10*time.Second)
	v.SetDefault("bot.webhook_listen", "")
	v.SetDefault("bot.webhook_url", "")
	v.SetDefault("bot.admin_ids", []int64{})
	v.SetDefault("bot.support_contact", "the bot operator")
	v.SetDefault("bot.sync_metadata", false)
	v.SetDefault("bot.metadata.name", "TagMyStickies")
	v.SetDefault("bot.metadata.short_description", "I can help you organize and retrieve stickers using text-based tags!")
	v.SetDefault("bot.metadata.description",
		"I can help you organize and retrieve stickers using text-based tags, so you can find the right sticker "+
			"without remembering which emoji belongs to it.\n\nTo get started, send me a sticker and then a few tags. "+
			"To recall your stickers in any chat, type \"@%s tag1 tag2\".")

	v.SetDefault("records.base_url", "http://127.0.0.1:8000")
	v.SetDefault("records.timeout", 5*time.Second)
	v.SetDefault("records.breaker.error_threshold", 0.5)
	v.SetDefault("records.breaker.min_requests", 10)
	v.SetDefault("records.breaker.open_timeout", 30*time.Second)
	v.SetDefault("records.breaker.half_open_max_requests", 3)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.idle_timeout", 5*time.Minute)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff", 8*time.Millisecond)
	v.SetDefault("redis.max_retry_backoff", 512*time.Millisecond)

	v.SetDefault("state.lock_backend", "redis")
	v.SetDefault("state.lock_ttl", 30*time.Second)
	v.SetDefault("state.lock_wait", 10*time.Second)
	v.SetDefault("state.flow_ttl", time.Duration(0))
	v.SetDefault("state.sweep_interval", 5*time.Minute)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 30)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.queue", "default")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)

	v.SetDefault("i18n.dir", "")
	v.SetDefault("i18n.locale", "en")

	v.SetDefault("greeting.part_delay", 2*time.Second)
}
