package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncTrigger identifies the local change event that started a push.
type SyncTrigger uint8

const (
	TriggerCreate SyncTrigger = 1 << iota
	TriggerUpdate
	TriggerDelete
)

func (t SyncTrigger) String() string {
	switch t {
	case TriggerCreate:
		return "create"
	case TriggerUpdate:
		return "update"
	case TriggerDelete:
		return "delete"
	default:
		return ""
	}
}

// Operation names the remote verb a trigger normally maps to. Create may
// still become an upsert when the fieldmap configures a match rule.
func (t SyncTrigger) Operation() string {
	switch t {
	case TriggerCreate:
		return "Create"
	case TriggerUpdate:
		return "Update"
	case TriggerDelete:
		return "Delete"
	default:
		return ""
	}
}

func ParseTrigger(value string) (SyncTrigger, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "create":
		return TriggerCreate, nil
	case "update":
		return TriggerUpdate, nil
	case "delete":
		return TriggerDelete, nil
	default:
		return 0, fmt.Errorf("core: unknown trigger %q", value)
	}
}

// TriggerSet is the set of triggers a fieldmap is configured to push on.
type TriggerSet uint8

func Triggers(triggers ...SyncTrigger) TriggerSet {
	var set TriggerSet
	for _, trigger := range triggers {
		set |= TriggerSet(trigger)
	}
	return set
}

func (s TriggerSet) Has(trigger SyncTrigger) bool {
	return s&TriggerSet(trigger) != 0
}

func (s TriggerSet) Add(trigger SyncTrigger) TriggerSet {
	return s | TriggerSet(trigger)
}

func (s TriggerSet) List() []SyncTrigger {
	out := []SyncTrigger{}
	for _, trigger := range []SyncTrigger{TriggerCreate, TriggerUpdate, TriggerDelete} {
		if s.Has(trigger) {
			out = append(out, trigger)
		}
	}
	return out
}

// TableStructure describes how the local store shapes one object type.
type TableStructure struct {
	ObjectType string
	IDField    string
}

// Record is a local entity snapshot handed to the push pipeline. ModifiedAt
// is the record's true last-modification timestamp as reported by the local
// store; a zero value disables the stale-write guard for that record.
type Record struct {
	ObjectType string
	Fields     map[string]any
	Draft      bool
	Deleted    bool
	ModifiedAt time.Time
}

func (r Record) Field(name string) (any, bool) {
	if len(r.Fields) == 0 {
		return nil, false
	}
	value, ok := r.Fields[name]
	return value, ok
}

// recordIdentifier extracts the record's local id from the field named by
// the table structure. Queue payloads and object maps carry the id as an
// integer, so anything that cannot be read as one fails the lookup.
func recordIdentifier(record Record, idField string) (int64, bool) {
	raw, ok := record.Field(idField)
	if !ok {
		return 0, false
	}
	switch value := raw.(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	case int32:
		return int64(value), true
	case uint:
		return int64(value), true
	case uint64:
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

// FieldRule maps one local field onto one remote field. Prematch marks the
// rule as a duplicate-match criterion; Key marks it as a remote external-id
// key. A rule can be at most one of the two.
type FieldRule struct {
	LocalField  string `json:"local_field"`
	RemoteField string `json:"remote_field"`
	Prematch    bool   `json:"prematch"`
	Key         bool   `json:"key"`
}

// Fieldmap binds a local object type to a remote object type and carries
// the per-pair push configuration.
type Fieldmap struct {
	ID                int64
	Label             string
	LocalObjectType   string
	RemoteObjectType  string
	Triggers          TriggerSet
	PushAsync         bool
	PushDrafts        bool
	RecordTypeDefault string
	Fields            []FieldRule
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const pendingRefPrefix = "pending-"

// RemoteRef is the remote identity slot of a mapping object. A confirmed
// ref holds a real remote id; a pending ref holds a placeholder token minted
// before the create call so concurrent events can see the row.
type RemoteRef struct {
	value   string
	pending bool
}

func ConfirmedRef(remoteID string) RemoteRef {
	return RemoteRef{value: strings.TrimSpace(remoteID)}
}

func NewPendingRef() RemoteRef {
	return RemoteRef{value: pendingRefPrefix + uuid.NewString(), pending: true}
}

// RestoreRemoteRef rehydrates a ref from its persisted columns.
func RestoreRemoteRef(value string, pending bool) RemoteRef {
	return RemoteRef{value: strings.TrimSpace(value), pending: pending}
}

// ID returns the remote id and true only for confirmed refs.
func (r RemoteRef) ID() (string, bool) {
	if r.pending || r.value == "" {
		return "", false
	}
	return r.value, true
}

// Value returns the raw stored value, placeholder token included.
func (r RemoteRef) Value() string { return r.value }

func (r RemoteRef) Pending() bool { return r.pending }

func (r RemoteRef) IsZero() bool { return r.value == "" }

type SyncStatus string

const (
	StatusSuccess SyncStatus = "success"
	StatusError   SyncStatus = "error"
	StatusNotice  SyncStatus = "notice"
)

const (
	SyncActionPush = "push"
	SyncActionPull = "pull"
)

// PendingActionCreated marks a mapping object whose remote counterpart is
// still being created.
const PendingActionCreated = "created"

// MappingObject is the join entity between one local record and its remote
// counterpart under one fieldmap.
type MappingObject struct {
	ID              string
	LocalObjectType string
	LocalID         int64
	FieldmapID      int64
	Remote          RemoteRef
	LastSync        time.Time
	LastSyncAction  string
	LastSyncStatus  SyncStatus
	LastSyncMessage string
	PendingAction   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SyncResult is one row of the operations log.
type SyncResult struct {
	Title    string
	Message  string
	Trigger  SyncTrigger
	ParentID int64
	Status   SyncStatus
}

func (r SyncResult) IsZero() bool { return r.Status == "" }

// MatchRule is a translated match criterion: the remote field to match on
// and the local record's value for it.
type MatchRule struct {
	LocalField  string
	RemoteField string
	Value       string
}

// PushParams is the translated remote payload for one push.
type PushParams struct {
	Fields   map[string]any
	Prematch *MatchRule
	Key      *MatchRule
}

func (p PushParams) Empty() bool {
	return len(p.Fields) == 0 && p.Prematch == nil && p.Key == nil
}

// SyncedObject bundles everything a post-push hook needs to inspect.
type SyncedObject struct {
	Record    Record
	Fieldmap  Fieldmap
	ObjectMap MappingObject
	Err       error
}

// ManualPushOutcome reports an on-demand push with a coarse HTTP-style
// code: 201 for a successful create, 204 for a successful update or
// delete, 405 otherwise.
type ManualPushOutcome struct {
	StatusCode int
	Results    []SyncResult
}
