package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-crm-sync/core"
)

// PushService is the engine surface the command layer mutates through.
type PushService interface {
	PushRecordByID(ctx context.Context, objectType string, localID int64, trigger core.SyncTrigger, manual bool) ([]core.SyncResult, error)
	SyncRecordByID(ctx context.Context, objectType string, localID int64, fieldmapID int64, trigger core.SyncTrigger) (core.SyncResult, error)
	ManualPush(ctx context.Context, objectType string, localID int64, method string) (core.ManualPushOutcome, error)
}

type PushObjectCommand struct {
	service PushService
}

func NewPushObjectCommand(service PushService) *PushObjectCommand {
	return &PushObjectCommand{service: service}
}

func (c *PushObjectCommand) Execute(ctx context.Context, msg PushObjectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: push service is required")
	}
	trigger, err := core.ParseTrigger(msg.Trigger)
	if err != nil {
		return commandInvalidInputError(err.Error())
	}
	out, err := c.service.PushRecordByID(ctx, msg.ObjectType, msg.LocalID, trigger, msg.Manual)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SyncRecordCommand struct {
	service PushService
}

func NewSyncRecordCommand(service PushService) *SyncRecordCommand {
	return &SyncRecordCommand{service: service}
}

func (c *SyncRecordCommand) Execute(ctx context.Context, msg SyncRecordMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: push service is required")
	}
	trigger, err := core.ParseTrigger(msg.Trigger)
	if err != nil {
		return commandInvalidInputError(err.Error())
	}
	out, err := c.service.SyncRecordByID(ctx, msg.ObjectType, msg.LocalID, msg.FieldmapID, trigger)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ManualPushCommand struct {
	service PushService
}

func NewManualPushCommand(service PushService) *ManualPushCommand {
	return &ManualPushCommand{service: service}
}

func (c *ManualPushCommand) Execute(ctx context.Context, msg ManualPushMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: push service is required")
	}
	out, err := c.service.ManualPush(ctx, msg.ObjectType, msg.LocalID, msg.Method)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
