package crmsync

import (
	"fmt"

	crmsynccommand "github.com/goliatone/go-crm-sync/command"
	"github.com/goliatone/go-crm-sync/core"
	crmsyncquery "github.com/goliatone/go-crm-sync/query"
)

type Config = core.Config

type LockConfig = core.LockConfig

type Option = core.Option

type Engine = core.Engine

type Record = core.Record
type Fieldmap = core.Fieldmap
type FieldRule = core.FieldRule
type MappingObject = core.MappingObject
type SyncResult = core.SyncResult
type SyncTrigger = core.SyncTrigger
type TriggerSet = core.TriggerSet
type SyncStatus = core.SyncStatus
type ManualPushOutcome = core.ManualPushOutcome
type QueuePayload = core.QueuePayload

type HookRegistry = core.HookRegistry
type Dispatcher = core.Dispatcher
type TriggerSources = core.TriggerSources

type LocalStore = core.LocalStore
type FieldmapStore = core.FieldmapStore
type ObjectMapStore = core.ObjectMapStore
type SyncFlagStore = core.SyncFlagStore
type LockStore = core.LockStore
type RemoteAPI = core.RemoteAPI
type TaskQueue = core.TaskQueue
type ResultRecorder = core.ResultRecorder

const (
	TriggerCreate = core.TriggerCreate
	TriggerUpdate = core.TriggerUpdate
	TriggerDelete = core.TriggerDelete

	StatusSuccess = core.StatusSuccess
	StatusError   = core.StatusError
	StatusNotice  = core.StatusNotice
)

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithLocalStore        = core.WithLocalStore
	WithFieldmapStore     = core.WithFieldmapStore
	WithObjectMapStore    = core.WithObjectMapStore
	WithFlagStore         = core.WithFlagStore
	WithLockStore         = core.WithLockStore
	WithTaskQueue         = core.WithTaskQueue
	WithRemoteAPI         = core.WithRemoteAPI
	WithResultRecorder    = core.WithResultRecorder
	WithHooks             = core.WithHooks
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	return core.NewEngine(cfg, opts...)
}

func NewDispatcher(engine *Engine, sources map[string]TriggerSources) (*Dispatcher, error) {
	return core.NewDispatcher(engine, sources)
}

// Commands bundles the message-based mutation surface around one engine.
type Commands struct {
	PushObject *crmsynccommand.PushObjectCommand
	SyncRecord *crmsynccommand.SyncRecordCommand
	ManualPush *crmsynccommand.ManualPushCommand
}

// Queries bundles the message-based read surface around one engine.
type Queries struct {
	GetFieldmap           *crmsyncquery.GetFieldmapQuery
	ListFieldmaps         *crmsyncquery.ListFieldmapsQuery
	GetObjectMapsByLocal  *crmsyncquery.GetObjectMapsByLocalQuery
	GetObjectMapsByRemote *crmsyncquery.GetObjectMapsByRemoteQuery
}

type Facade struct {
	engine   *Engine
	commands Commands
	queries  Queries
}

func NewFacade(engine *Engine) (*Facade, error) {
	if engine == nil {
		return nil, fmt.Errorf("crmsync: engine is required")
	}
	fieldmaps := engine.FieldmapStore()
	objectMaps := engine.ObjectMapStore()
	if fieldmaps == nil || objectMaps == nil {
		return nil, fmt.Errorf("crmsync: engine stores are not configured")
	}

	facade := &Facade{engine: engine}
	facade.commands = Commands{
		PushObject: crmsynccommand.NewPushObjectCommand(engine),
		SyncRecord: crmsynccommand.NewSyncRecordCommand(engine),
		ManualPush: crmsynccommand.NewManualPushCommand(engine),
	}
	facade.queries = Queries{
		GetFieldmap:           crmsyncquery.NewGetFieldmapQuery(fieldmaps),
		ListFieldmaps:         crmsyncquery.NewListFieldmapsQuery(fieldmaps),
		GetObjectMapsByLocal:  crmsyncquery.NewGetObjectMapsByLocalQuery(objectMaps),
		GetObjectMapsByRemote: crmsyncquery.NewGetObjectMapsByRemoteQuery(objectMaps),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Engine() *Engine {
	if f == nil {
		return nil
	}
	return f.engine
}
