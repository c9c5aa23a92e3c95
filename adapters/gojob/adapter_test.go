package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-crm-sync/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
	err  error
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	if s.err != nil {
		return s.err
	}
	s.last = msg
	return nil
}

func TestQueueAdapterEnqueueBuildsMessage(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	adapter, err := NewQueueAdapter(enqueuer, "crm_sync_push", WithDedupPolicy("drop"))
	if err != nil {
		t.Fatalf("new queue adapter: %v", err)
	}

	payload := core.QueuePayload{
		ObjectType: "contact",
		LocalID:    7,
		FieldmapID: 3,
		Trigger:    core.TriggerUpdate,
	}
	if err := adapter.Enqueue(context.Background(), payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if enqueuer.last == nil {
		t.Fatalf("expected message to reach the enqueuer")
	}
	if enqueuer.last.JobID != JobIDPushRecord {
		t.Fatalf("job id = %q", enqueuer.last.JobID)
	}
	if enqueuer.last.IdempotencyKey != "contact:7:3:update" {
		t.Fatalf("idempotency key = %q", enqueuer.last.IdempotencyKey)
	}
	if enqueuer.last.DedupPolicy != job.DeduplicationPolicy("drop") {
		t.Fatalf("dedup policy = %q", enqueuer.last.DedupPolicy)
	}
	if enqueuer.last.Parameters["object_type"] != "contact" || enqueuer.last.Parameters["queue"] != "crm_sync_push" {
		t.Fatalf("parameters = %#v", enqueuer.last.Parameters)
	}
}

func TestQueueAdapterValidatesPayload(t *testing.T) {
	adapter, err := NewQueueAdapter(&stubQueueEnqueuer{}, "crm_sync_push")
	if err != nil {
		t.Fatalf("new queue adapter: %v", err)
	}
	ctx := context.Background()

	if err := adapter.Enqueue(ctx, core.QueuePayload{LocalID: 7, Trigger: core.TriggerCreate}); err == nil {
		t.Errorf("expected error for missing object type")
	}
	if err := adapter.Enqueue(ctx, core.QueuePayload{ObjectType: "contact", Trigger: core.TriggerCreate}); err == nil {
		t.Errorf("expected error for missing local id")
	}
	if err := adapter.Enqueue(ctx, core.QueuePayload{ObjectType: "contact", LocalID: 7}); err == nil {
		t.Errorf("expected error for missing trigger")
	}
}

func TestQueueAdapterFirstFrequency(t *testing.T) {
	adapter, err := NewQueueAdapter(&stubQueueEnqueuer{}, "crm_sync_push")
	if err != nil {
		t.Fatalf("new queue adapter: %v", err)
	}
	frequency, err := adapter.FirstFrequency(context.Background())
	if err != nil {
		t.Fatalf("first frequency: %v", err)
	}
	if frequency != time.Minute {
		t.Fatalf("default frequency = %s", frequency)
	}

	adapter, err = NewQueueAdapter(&stubQueueEnqueuer{}, "crm_sync_push", WithWorkerFrequency(15*time.Second))
	if err != nil {
		t.Fatalf("new queue adapter: %v", err)
	}
	frequency, err = adapter.FirstFrequency(context.Background())
	if err != nil {
		t.Fatalf("first frequency: %v", err)
	}
	if frequency != 15*time.Second {
		t.Fatalf("configured frequency = %s", frequency)
	}
}

func TestPayloadFromMessageDecodesBrokerTypes(t *testing.T) {
	msg := &job.ExecutionMessage{
		JobID: JobIDPushRecord,
		Parameters: map[string]any{
			"object_type": "contact",
			"local_id":    float64(7),
			"fieldmap_id": "3",
			"trigger":     "delete",
		},
	}

	payload, err := PayloadFromMessage(msg)
	if err != nil {
		t.Fatalf("payload from message: %v", err)
	}
	if payload.ObjectType != "contact" || payload.LocalID != 7 || payload.FieldmapID != 3 {
		t.Fatalf("payload = %#v", payload)
	}
	if payload.Trigger != core.TriggerDelete {
		t.Fatalf("trigger = %v", payload.Trigger)
	}
}

func TestPayloadFromMessageRejectsBadInput(t *testing.T) {
	if _, err := PayloadFromMessage(nil); err == nil {
		t.Errorf("expected error for nil message")
	}
	if _, err := PayloadFromMessage(&job.ExecutionMessage{JobID: "other.job"}); err == nil {
		t.Errorf("expected error for foreign job id")
	}
	if _, err := PayloadFromMessage(&job.ExecutionMessage{
		JobID:      JobIDPushRecord,
		Parameters: map[string]any{"object_type": "contact", "local_id": 7, "trigger": "upsert"},
	}); err == nil {
		t.Errorf("expected error for invalid trigger")
	}
	if _, err := PayloadFromMessage(&job.ExecutionMessage{
		JobID:      JobIDPushRecord,
		Parameters: map[string]any{"object_type": "contact", "trigger": "update"},
	}); err == nil {
		t.Errorf("expected error for missing local id")
	}
}

func TestRetryPolicyBoundaries(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:     3,
		MaxDelay:        10 * time.Second,
		DeadLetterOnMax: true,
	}

	bounded := policy.NormalizeAttempt(queue.NackOptions{
		Delay:   30 * time.Second,
		Requeue: true,
		Reason:  " transient ",
	}, 1)
	if bounded.Delay != 10*time.Second {
		t.Fatalf("expected delay to be bounded, got %s", bounded.Delay)
	}
	if !bounded.Requeue {
		t.Fatalf("expected requeue before max attempts")
	}
	if bounded.Reason != "transient" {
		t.Fatalf("expected trimmed reason, got %q", bounded.Reason)
	}

	final := policy.NormalizeAttempt(queue.NackOptions{
		Delay:   time.Second,
		Requeue: true,
		Reason:  "still failing",
	}, 3)
	if final.Requeue {
		t.Fatalf("expected no requeue once max attempts is reached")
	}
	if !final.DeadLetter {
		t.Fatalf("expected dead letter on max attempts")
	}
}

type stubPushExecutor struct {
	objectType string
	localID    int64
	fieldmapID int64
	trigger    core.SyncTrigger
	err        error
}

func (s *stubPushExecutor) SyncRecordByID(_ context.Context, objectType string, localID int64, fieldmapID int64, trigger core.SyncTrigger) (core.SyncResult, error) {
	s.objectType = objectType
	s.localID = localID
	s.fieldmapID = fieldmapID
	s.trigger = trigger
	if s.err != nil {
		return core.SyncResult{}, s.err
	}
	return core.SyncResult{Status: core.StatusSuccess}, nil
}

func TestRunnerExecutesQueuedPush(t *testing.T) {
	executor := &stubPushExecutor{}
	runner, err := NewRunner(executor)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	msg := ToExecutionMessage(core.QueuePayload{
		ObjectType: "contact",
		LocalID:    7,
		FieldmapID: 3,
		Trigger:    core.TriggerUpdate,
	}, "crm_sync_push", "")
	if err := runner.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if executor.objectType != "contact" || executor.localID != 7 || executor.fieldmapID != 3 || executor.trigger != core.TriggerUpdate {
		t.Fatalf("executor saw %q %d %d %v", executor.objectType, executor.localID, executor.fieldmapID, executor.trigger)
	}

	executor.err = errors.New("remote down")
	if err := runner.Handle(context.Background(), msg); err == nil {
		t.Fatalf("expected executor error to propagate")
	}
}
