package core

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// LocalStore reads records out of the local entity store.
type LocalStore interface {
	TableStructure(ctx context.Context, objectType string) (TableStructure, error)
	GetRecord(ctx context.Context, objectType string, localID int64, includeDeleted bool) (Record, error)
}

type FieldmapFilter struct {
	LocalObjectType string
}

type FieldmapStore interface {
	GetFieldmap(ctx context.Context, id int64) (Fieldmap, error)
	ListFieldmaps(ctx context.Context, filter FieldmapFilter) ([]Fieldmap, error)
}

type CreateObjectMapInput struct {
	LocalObjectType string
	LocalID         int64
	FieldmapID      int64
	Remote          RemoteRef
	PendingAction   string
	LastSyncAction  string
	LastSyncStatus  SyncStatus
	LastSyncMessage string
}

type ObjectMapStore interface {
	CreateObjectMap(ctx context.Context, in CreateObjectMapInput) (MappingObject, error)
	UpdateObjectMap(ctx context.Context, objectMap MappingObject) (MappingObject, error)
	DeleteObjectMap(ctx context.Context, id string) error
	GetObjectMapsByLocal(ctx context.Context, objectType string, localID int64) ([]MappingObject, error)
	GetObjectMapsByRemote(ctx context.Context, remoteValue string) ([]MappingObject, error)
}

// SyncFlagStore persists the missing-required-data markers that force the
// next push of a record down the create branch.
type SyncFlagStore interface {
	MissingRequiredData(ctx context.Context, objectType string, localID int64) (bool, error)
	SetMissingRequiredData(ctx context.Context, objectType string, localID int64) error
	ClearMissingRequiredData(ctx context.Context, objectType string, localID int64) error
}

// LockStore is a TTL key/value store backing the loop guard. Entries expire
// on their own; Delete only shortens the window.
type LockStore interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

type ReadOptions struct {
	NoCache bool
}

// RemoteResponse is the protocol-level outcome of one remote API call.
// Transport failures surface as errors instead.
type RemoteResponse struct {
	StatusCode int
	Data       map[string]any
	ErrorCode  string
	Message    string
}

// DataID extracts the remote record id from a response payload.
func (r RemoteResponse) DataID() string {
	for _, key := range []string{"id", "Id", "ID"} {
		if raw, ok := r.Data[key]; ok {
			if id, ok := raw.(string); ok && strings.TrimSpace(id) != "" {
				return strings.TrimSpace(id)
			}
		}
	}
	return ""
}

// remoteTimeLayouts covers RFC 3339 plus the millisecond, zone-offset shape
// CRM APIs commonly return.
var remoteTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
}

// DataLastModified extracts the remote record's last-modified timestamp
// from a response payload.
func (r RemoteResponse) DataLastModified() (time.Time, bool) {
	for _, key := range []string{"LastModifiedDate", "last_modified_date", "lastModifiedDate"} {
		raw, ok := r.Data[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		for _, layout := range remoteTimeLayouts {
			if stamp, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
				return stamp, true
			}
		}
	}
	return time.Time{}, false
}

type RemoteAPI interface {
	IsAuthorized(ctx context.Context) bool
	Create(ctx context.Context, objectType string, fields map[string]any) (RemoteResponse, error)
	Update(ctx context.Context, objectType string, remoteID string, fields map[string]any) (RemoteResponse, error)
	Upsert(ctx context.Context, objectType string, keyField string, keyValue string, fields map[string]any) (RemoteResponse, error)
	Delete(ctx context.Context, objectType string, remoteID string) (RemoteResponse, error)
	Read(ctx context.Context, objectType string, remoteID string, opts ReadOptions) (RemoteResponse, error)
	ReadByExternalID(ctx context.Context, objectType string, keyField string, keyValue string, opts ReadOptions) (RemoteResponse, error)
}

// QueuePayload is the deferred-push job body. Record and fieldmap travel as
// ids and are re-resolved at execution time.
type QueuePayload struct {
	ObjectType string
	LocalID    int64
	FieldmapID int64
	Trigger    SyncTrigger
}

type TaskQueue interface {
	Enqueue(ctx context.Context, payload QueuePayload) error
	// FirstFrequency reports the shortest worker polling interval, which
	// sizes loop-guard lock TTLs. Zero means unknown.
	FirstFrequency(ctx context.Context) (time.Duration, error)
}

type ResultRecorder interface {
	Record(ctx context.Context, result SyncResult) error
}

// StoreProvider is what a repository factory yields once built.
type StoreProvider interface {
	FieldmapStore() FieldmapStore
	ObjectMapStore() ObjectMapStore
	FlagStore() SyncFlagStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
