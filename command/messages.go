package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-crm-sync/core"
)

const (
	TypePushObject = "crmsync.command.push"
	TypeSyncRecord = "crmsync.command.sync_record"
	TypeManualPush = "crmsync.command.manual_push"
)

type PushObjectMessage struct {
	ObjectType string
	LocalID    int64
	Trigger    string
	Manual     bool
}

func (PushObjectMessage) Type() string { return TypePushObject }

func (m PushObjectMessage) Validate() error {
	if strings.TrimSpace(m.ObjectType) == "" {
		return fmt.Errorf("command: object type is required")
	}
	if m.LocalID <= 0 {
		return fmt.Errorf("command: local id is required")
	}
	if _, err := core.ParseTrigger(m.Trigger); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

// SyncRecordMessage is the deferred-push job body decoded back into a
// command: one record through one fieldmap.
type SyncRecordMessage struct {
	ObjectType string
	LocalID    int64
	FieldmapID int64
	Trigger    string
}

func (SyncRecordMessage) Type() string { return TypeSyncRecord }

func (m SyncRecordMessage) Validate() error {
	if strings.TrimSpace(m.ObjectType) == "" {
		return fmt.Errorf("command: object type is required")
	}
	if m.LocalID <= 0 {
		return fmt.Errorf("command: local id is required")
	}
	if m.FieldmapID <= 0 {
		return fmt.Errorf("command: fieldmap id is required")
	}
	if _, err := core.ParseTrigger(m.Trigger); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type ManualPushMessage struct {
	ObjectType string
	LocalID    int64
	Method     string
}

func (ManualPushMessage) Type() string { return TypeManualPush }

func (m ManualPushMessage) Validate() error {
	if strings.TrimSpace(m.ObjectType) == "" {
		return fmt.Errorf("command: object type is required")
	}
	if m.LocalID <= 0 {
		return fmt.Errorf("command: local id is required")
	}
	switch strings.ToUpper(strings.TrimSpace(m.Method)) {
	case "POST", "PUT", "DELETE":
		return nil
	default:
		return fmt.Errorf("command: unsupported method %q", m.Method)
	}
}
