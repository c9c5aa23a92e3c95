package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type fieldmapRecord struct {
	bun.BaseModel `bun:"table:crm_sync_fieldmaps,alias:fm"`

	ID                int64           `bun:"id,pk,autoincrement"`
	Label             string          `bun:"label,notnull"`
	LocalObjectType   string          `bun:"local_object_type,notnull"`
	RemoteObjectType  string          `bun:"remote_object_type,notnull"`
	PushTriggers      []string        `bun:"push_triggers,type:jsonb,notnull"`
	PushAsync         bool            `bun:"push_async,notnull"`
	PushDrafts        bool            `bun:"push_drafts,notnull"`
	RecordTypeDefault string          `bun:"record_type_default"`
	FieldRules        []fieldRuleJSON `bun:"field_rules,type:jsonb,notnull"`
	CreatedAt         time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type fieldRuleJSON struct {
	LocalField  string `json:"local_field"`
	RemoteField string `json:"remote_field"`
	Prematch    bool   `json:"prematch,omitempty"`
	Key         bool   `json:"key,omitempty"`
}

type objectMapRecord struct {
	bun.BaseModel `bun:"table:crm_sync_object_maps,alias:om"`

	ID              string     `bun:"id,pk"`
	LocalObjectType string     `bun:"local_object_type,notnull"`
	LocalID         int64      `bun:"local_id,notnull"`
	FieldmapID      int64      `bun:"fieldmap_id,notnull"`
	RemoteValue     string     `bun:"remote_value,notnull"`
	RemotePending   bool       `bun:"remote_pending,notnull"`
	LastSync        *time.Time `bun:"last_sync,nullzero"`
	LastSyncAction  string     `bun:"last_sync_action"`
	LastSyncStatus  string     `bun:"last_sync_status"`
	LastSyncMessage string     `bun:"last_sync_message"`
	PendingAction   string     `bun:"pending_action"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncFlagRecord struct {
	bun.BaseModel `bun:"table:crm_sync_flags,alias:sf"`

	ID         string    `bun:"id,pk"`
	ObjectType string    `bun:"object_type,notnull"`
	LocalID    int64     `bun:"local_id,notnull"`
	Flag       string    `bun:"flag,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type syncResultRecord struct {
	bun.BaseModel `bun:"table:crm_sync_results,alias:sr"`

	ID        string    `bun:"id,pk"`
	Title     string    `bun:"title,notnull"`
	Message   string    `bun:"message"`
	Trigger   string    `bun:"trigger_name"`
	ParentID  int64     `bun:"parent_id"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
