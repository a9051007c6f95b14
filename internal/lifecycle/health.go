package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Proton-105/tagmystickies-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) ([]health.Result, error)
}

// Probes answers liveness from the process itself and readiness from the
// component checks.
type Probes struct {
	checker *health.Checker
	log     *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports success while the process can serve HTTP.
func (p *Probes) Liveness(context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness fails when any dependency check fails.
func (p *Probes) Readiness(ctx context.Context) ([]health.Result, error) {
	if p.checker == nil {
		return nil, nil
	}

	results := p.checker.Check(ctx)
	var failed []string
	for _, res := range results {
		if !res.OK() {
			failed = append(failed, res.Component)
		}
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("not ready: %s", strings.Join(failed, ", "))
	}
	return results, nil
}
