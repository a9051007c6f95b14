package health

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Result is the outcome of one component check.
type Result struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// OK reports whether the component passed.
func (r Result) OK() bool {
	return r.Error == ""
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration
	mu      sync.RWMutex
	checks  map[string]Checkable
}

// NewChecker instantiates a Checker. Each check gets at most timeout.
func NewChecker(log *slog.Logger, timeout time.Duration) *Checker {
	if log == nil {
		log = slog.Default()
	}

	return &Checker{
		log:     log,
		timeout: timeout,
		checks:  make(map[string]Checkable),
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs all registered checks concurrently and returns their results
// sorted by component name.
func (c *Checker) Check(ctx context.Context) []Result {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make([]Result, 0, len(checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Checkable) {
			defer wg.Done()

			checkCtx := ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}

			res := Result{Component: name, Status: "OK"}
			if err := check.HealthCheck(checkCtx); err != nil {
				res.Status = "FAIL"
				res.Error = err.Error()
				c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Component < results[j].Component })
	return results
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// RecordsPinger is the records API liveness call.
type RecordsPinger interface {
	Ping(ctx context.Context) error
}

// RecordsChecker verifies the records API answers.
type RecordsChecker struct {
	records RecordsPinger
}

func NewRecordsChecker(records RecordsPinger) *RecordsChecker {
	return &RecordsChecker{records: records}
}

func (c *RecordsChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.records == nil {
		return errors.New("records client is not configured")
	}
	return c.records.Ping(ctx)
}

// TelegramAPI is the raw Bot API call used to probe telegram.
type TelegramAPI interface {
	Raw(method string, payload interface{}) ([]byte, error)
}

// TelegramChecker verifies that the Telegram bot API is reachable.
type TelegramChecker struct {
	api TelegramAPI
}

// NewTelegramChecker constructs a TelegramChecker.
func NewTelegramChecker(api TelegramAPI) *TelegramChecker {
	return &TelegramChecker{api: api}
}

// HealthCheck calls getMe. The Bot API client takes no context, so a slow
// call is abandoned when ctx is done.
func (c *TelegramChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("telegram bot is not initialized")
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.api.Raw("getMe", nil)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
