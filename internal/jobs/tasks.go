package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeBroadcast   = "notify:broadcast"
	TaskTypeExpireFlows = "flows:expire"
)

// BroadcastPayload is the message an administrator sent with /notify.
type BroadcastPayload struct {
	Text        string    `json:"text"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewBroadcastTask builds the task delivering text to every user.
func NewBroadcastTask(text, queue string) (*asynq.Task, error) {
	payload, err := json.Marshal(BroadcastPayload{Text: text, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal broadcast payload: %w", err)
	}

	// A broadcast is never retried as a whole: the handler retries each
	// delivery, and a second run would message everyone twice.
	return asynq.NewTask(TaskTypeBroadcast, payload, asynq.Queue(queue), asynq.MaxRetry(0)), nil
}

// NewExpireFlowsTask builds the periodic flow expiry sweep. Only one sweep
// may be queued at a time.
func NewExpireFlowsTask(queue string, interval time.Duration) *asynq.Task {
	return asynq.NewTask(TaskTypeExpireFlows, nil,
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Unique(interval),
		asynq.Timeout(interval),
	)
}

// DecodeBroadcast reads the payload of a broadcast task.
func DecodeBroadcast(t *asynq.Task) (BroadcastPayload, error) {
	var payload BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return BroadcastPayload{}, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	return payload, nil
}
