package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates handled labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	recordsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_requests_total",
			Help: "Total number of records API calls labeled by operation and result kind",
		},
		[]string{"op", "result"},
	)
	recordsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "records_request_duration_seconds",
			Help:    "Records API call latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	activeFlows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_flows",
			Help: "Current number of users inside a flow",
		},
	)
	flowsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flows_by_state",
			Help: "Number of users per flow state",
		},
		[]string{"state"},
	)
	flowsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flows_expired_total",
			Help: "Total number of flows cancelled by the expiry sweep",
		},
	)
	broadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_total",
			Help: "Total number of broadcast deliveries labeled by status",
		},
		[]string{"status"},
	)
	jobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_failures_total",
			Help: "Total number of failed background task runs labeled by task type",
		},
		[]string{"task"},
	)
)

// RecordUpdate increments update counters and records duration.
func RecordUpdate(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botUpdatesTotal.WithLabelValues(kind, status).Inc()
	updateDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordRecordsCall tracks a records API round trip. result is "ok" or the error kind.
func RecordRecordsCall(op, result string, duration time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = "unknown"
	}

	recordsRequestsTotal.WithLabelValues(op, result).Inc()
	recordsRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordFlowsExpired adds n to the expired flow counter.
func RecordFlowsExpired(n int) {
	if n <= 0 {
		return
	}
	flowsExpiredTotal.Add(float64(n))
}

// RecordBroadcast tracks one broadcast delivery.
func RecordBroadcast(status string) {
	if status == "" {
		status = "unknown"
	}
	broadcastMessagesTotal.WithLabelValues(status).Inc()
}

// RecordJobFailure counts one failed run of a background task.
func RecordJobFailure(taskType string) {
	if taskType == "" {
		taskType = "unknown"
	}
	jobFailuresTotal.WithLabelValues(taskType).Inc()
}

// SetActiveFlows updates the gauge for users currently inside a flow.
func SetActiveFlows(count int) {
	activeFlows.Set(float64(count))
}

// SetFlowsByState updates the gauge for the given state.
func SetFlowsByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	flowsByState.WithLabelValues(state).Set(float64(count))
}

// FlowCounter reports how many users sit in each flow state.
type FlowCounter interface {
	CountByState(ctx context.Context) (map[string]int, error)
}

// FlowCollector periodically gathers flow counts and emits gauge metrics.
type FlowCollector struct {
	counter  FlowCounter
	interval time.Duration
	log      *slog.Logger
}

// NewFlowCollector builds a metrics collector bound to the provided counter.
func NewFlowCollector(counter FlowCounter, interval time.Duration, log *slog.Logger) *FlowCollector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &FlowCollector{counter: counter, interval: interval, log: log}
}

// Run polls the counter every interval until ctx is cancelled.
func (c *FlowCollector) Run(ctx context.Context) {
	if c == nil || c.counter == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("failed to collect flow metrics", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *FlowCollector) collect(ctx context.Context) error {
	counts, err := c.counter.CountByState(ctx)
	if err != nil {
		return err
	}

	total := 0
	flowsByState.Reset()
	for label, count := range counts {
		SetFlowsByState(label, count)
		total += count
	}
	SetActiveFlows(total)

	return nil
}
