package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crm-sync/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

// JobIDPushRecord is the job identifier for deferred record pushes.
const JobIDPushRecord = "crmsync.push.record"

const defaultWorkerFrequency = time.Minute

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// QueueAdapter bridges the push pipeline's deferral contract onto a go-job
// enqueuer. One adapter serves one named queue.
type QueueAdapter struct {
	enqueuer    queue.Enqueuer
	queueName   string
	frequency   time.Duration
	dedupPolicy job.DeduplicationPolicy
}

type QueueOption func(*QueueAdapter)

func WithWorkerFrequency(frequency time.Duration) QueueOption {
	return func(a *QueueAdapter) {
		if frequency > 0 {
			a.frequency = frequency
		}
	}
}

func WithDedupPolicy(policy string) QueueOption {
	return func(a *QueueAdapter) {
		trimmed := strings.TrimSpace(policy)
		if trimmed != "" {
			a.dedupPolicy = job.DeduplicationPolicy(trimmed)
		}
	}
}

func NewQueueAdapter(enqueuer queue.Enqueuer, queueName string, opts ...QueueOption) (*QueueAdapter, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("gojob: enqueuer is required")
	}
	trimmed := strings.TrimSpace(queueName)
	if trimmed == "" {
		return nil, fmt.Errorf("gojob: queue name is required")
	}
	adapter := &QueueAdapter{
		enqueuer:  enqueuer,
		queueName: trimmed,
		frequency: defaultWorkerFrequency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter, nil
}

func (a *QueueAdapter) Enqueue(ctx context.Context, payload core.QueuePayload) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: queue adapter is not configured")
	}
	if strings.TrimSpace(payload.ObjectType) == "" {
		return fmt.Errorf("gojob: queue payload object type is required")
	}
	if payload.LocalID == 0 {
		return fmt.Errorf("gojob: queue payload local id is required")
	}
	if payload.Trigger.String() == "" {
		return fmt.Errorf("gojob: queue payload trigger is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(payload, a.queueName, a.dedupPolicy))
}

func (a *QueueAdapter) FirstFrequency(context.Context) (time.Duration, error) {
	if a == nil {
		return 0, fmt.Errorf("gojob: queue adapter is not configured")
	}
	return a.frequency, nil
}

// ToExecutionMessage maps a deferral payload onto the go-job wire message.
// The idempotency key collapses duplicate pushes for the same record,
// fieldmap, and trigger while one is still queued.
func ToExecutionMessage(payload core.QueuePayload, queueName string, dedupPolicy job.DeduplicationPolicy) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID: JobIDPushRecord,
		Parameters: map[string]any{
			"object_type": strings.TrimSpace(payload.ObjectType),
			"local_id":    payload.LocalID,
			"fieldmap_id": payload.FieldmapID,
			"trigger":     payload.Trigger.String(),
			"queue":       strings.TrimSpace(queueName),
		},
		IdempotencyKey: fmt.Sprintf(
			"%s:%d:%d:%s",
			strings.TrimSpace(payload.ObjectType),
			payload.LocalID,
			payload.FieldmapID,
			payload.Trigger.String(),
		),
		DedupPolicy: dedupPolicy,
	}
}

// PayloadFromMessage decodes a queued push back into a deferral payload.
// Parameters round trip through JSON on some brokers, so integers may
// arrive as float64 or string.
func PayloadFromMessage(msg *job.ExecutionMessage) (core.QueuePayload, error) {
	if msg == nil {
		return core.QueuePayload{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDPushRecord {
		return core.QueuePayload{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}

	objectType, _ := msg.Parameters["object_type"].(string)
	objectType = strings.TrimSpace(objectType)
	if objectType == "" {
		return core.QueuePayload{}, fmt.Errorf("gojob: queued push is missing object_type")
	}

	localID, ok := intParameter(msg.Parameters["local_id"])
	if !ok || localID == 0 {
		return core.QueuePayload{}, fmt.Errorf("gojob: queued push is missing local_id")
	}
	fieldmapID, _ := intParameter(msg.Parameters["fieldmap_id"])

	rawTrigger, _ := msg.Parameters["trigger"].(string)
	trigger, err := core.ParseTrigger(rawTrigger)
	if err != nil {
		return core.QueuePayload{}, fmt.Errorf("gojob: queued push has invalid trigger: %w", err)
	}

	return core.QueuePayload{
		ObjectType: objectType,
		LocalID:    localID,
		FieldmapID: fieldmapID,
		Trigger:    trigger,
	}, nil
}

func intParameter(raw any) (int64, bool) {
	switch value := raw.(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	case int32:
		return int64(value), true
	case float64:
		return int64(value), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// PushExecutor is the slice of the engine the queue runner needs.
type PushExecutor interface {
	SyncRecordByID(ctx context.Context, objectType string, localID int64, fieldmapID int64, trigger core.SyncTrigger) (core.SyncResult, error)
}

// Runner executes queued pushes on the worker side.
type Runner struct {
	executor PushExecutor
}

func NewRunner(executor PushExecutor) (*Runner, error) {
	if executor == nil {
		return nil, fmt.Errorf("gojob: push executor is required")
	}
	return &Runner{executor: executor}, nil
}

func (r *Runner) Handle(ctx context.Context, msg *job.ExecutionMessage) error {
	if r == nil || r.executor == nil {
		return fmt.Errorf("gojob: runner is not configured")
	}
	payload, err := PayloadFromMessage(msg)
	if err != nil {
		return err
	}
	_, err = r.executor.SyncRecordByID(ctx, payload.ObjectType, payload.LocalID, payload.FieldmapID, payload.Trigger)
	return err
}

var _ core.TaskQueue = (*QueueAdapter)(nil)
