package core

import (
	"context"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Engine drives pushes from the local entity store to the remote CRM API.
// Collaborators are injected through functional options; the local store,
// fieldmap store, object map store, and remote API are required.
type Engine struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	local           LocalStore
	fieldmaps       FieldmapStore
	objectMaps      ObjectMapStore
	flags           SyncFlagStore
	guard           *LoopGuard
	queue           TaskQueue
	remote          RemoteAPI
	recorder        ResultRecorder
	hooks           *HookRegistry
	now             func() time.Time
}

func defaultEngineBuilder(runtime Config) engineBuilder {
	loggerProvider, logger := glog.Resolve("crm-sync", nil, nil)
	return engineBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		hooks:           NewHookRegistry(),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func NewEngine(cfg Config, options ...Option) (*Engine, error) {
	builder := defaultEngineBuilder(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve("crm-sync", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("crm-sync"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.hooks == nil {
		builder.hooks = NewHookRegistry()
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.fieldmapStore == nil {
					builder.fieldmapStore = storeProvider.FieldmapStore()
				}
				if builder.objectMapStore == nil {
					builder.objectMapStore = storeProvider.ObjectMapStore()
				}
				if builder.flagStore == nil {
					builder.flagStore = storeProvider.FlagStore()
				}
			}
		}
	}

	if builder.localStore == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: local store is required"))
	}
	if builder.fieldmapStore == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: fieldmap store is required"))
	}
	if builder.objectMapStore == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: object map store is required"))
	}
	if builder.remote == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: remote api is required"))
	}

	if builder.lockStore == nil {
		builder.lockStore = NewMemoryLockStore()
	}
	guard, err := NewLoopGuard(builder.lockStore)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	engine := &Engine{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		local:           builder.localStore,
		fieldmaps:       builder.fieldmapStore,
		objectMaps:      builder.objectMapStore,
		flags:           builder.flagStore,
		guard:           guard,
		queue:           builder.queue,
		remote:          builder.remote,
		recorder:        builder.recorder,
		hooks:           builder.hooks,
		now:             builder.now,
	}
	if engine.recorder == nil {
		engine.recorder = loggerResultRecorder{engine: engine}
	}
	return engine, nil
}

func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

func (e *Engine) Hooks() *HookRegistry {
	if e == nil {
		return nil
	}
	return e.hooks
}

func (e *Engine) Guard() *LoopGuard {
	if e == nil {
		return nil
	}
	return e.guard
}

func (e *Engine) FieldmapStore() FieldmapStore {
	if e == nil {
		return nil
	}
	return e.fieldmaps
}

func (e *Engine) ObjectMapStore() ObjectMapStore {
	if e == nil {
		return nil
	}
	return e.objectMaps
}

// lockTTL sizes loop-guard entries off the queue's first polling frequency,
// so a lock survives until the corresponding deferred push has run.
func (e *Engine) lockTTL(ctx context.Context) time.Duration {
	if e == nil {
		return defaultLockTTL
	}
	if e.queue != nil {
		if frequency, err := e.queue.FirstFrequency(ctx); err == nil && frequency > 0 {
			return frequency + e.config.Lock.Padding
		}
	}
	if e.config.Lock.DefaultTTL > 0 {
		return e.config.Lock.DefaultTTL
	}
	return defaultLockTTL
}

func (e *Engine) mapError(err error) error {
	if err == nil {
		return nil
	}
	if e == nil || e.errorMapper == nil {
		return err
	}
	if mapped := e.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}
