package config

import "time"

// Config holds runtime configuration for the TagMyStickies bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	App         AppConfig         `mapstructure:"app"`
	Bot         BotConfig         `mapstructure:"bot"`
	Records     RecordsConfig     `mapstructure:"records"`
	Redis       RedisConfig       `mapstructure:"redis"`
	State       StateConfig       `mapstructure:"state"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	Log         LogConfig         `mapstructure:"log"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	I18n        I18nConfig        `mapstructure:"i18n"`
	Greeting    GreetingConfig    `mapstructure:"greeting"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
	WebhookListen string        `mapstructure:"webhook_listen" validate:"required_if=Mode webhook"`
	WebhookURL    string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook,omitempty,url"`
	AdminIDs      []int64       `mapstructure:"admin_ids"`
	SyncMetadata  bool          `mapstructure:"sync_metadata"`
	Metadata      BotMetadata   `mapstructure:"metadata"`

	// SupportContact is quoted in error messages that ask users to reach out.
	SupportContact string `mapstructure:"support_contact" validate:"required"`
}

// BotMetadata is pushed to the chat platform on startup. Description may
// contain a single %s that is replaced with the bot username.
type BotMetadata struct {
	Name             string `mapstructure:"name" validate:"max=64"`
	ShortDescription string `mapstructure:"short_description" validate:"max=120"`
	Description      string `mapstructure:"description"`
}

type RecordsConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	ErrorThreshold      float64       `mapstructure:"error_threshold" validate:"gte=0,lte=1"`
	MinRequests         int           `mapstructure:"min_requests" validate:"gte=0"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	HalfOpenMaxRequests int           `mapstructure:"half_open_max_requests" validate:"gte=0"`
}

type RedisConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db" validate:"gte=0"`
	PoolSize        int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

type StateConfig struct {
	LockBackend   string        `mapstructure:"lock_backend" validate:"oneof=redis memory"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" validate:"gt=0"`
	LockWait      time.Duration `mapstructure:"lock_wait" validate:"gte=0"`
	FlowTTL       time.Duration `mapstructure:"flow_ttl" validate:"gte=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests" validate:"gt=0"`
	Window   time.Duration `mapstructure:"window" validate:"gt=0"`
}

type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type JobsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Concurrency int    `mapstructure:"concurrency" validate:"gt=0"`
	Queue       string `mapstructure:"queue" validate:"required"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type I18nConfig struct {
	Dir    string `mapstructure:"dir"`
	Locale string `mapstructure:"locale" validate:"required"`
}

type GreetingConfig struct {
	PartDelay time.Duration `mapstructure:"part_delay" validate:"gte=0"`
}

// IsAdmin reports whether userID may run operator commands.
func (c BotConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
