package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-crm-sync/core"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	_ "github.com/lib/pq"
)

type RepositoryFactory struct {
	db *bun.DB

	fieldmapStore  *FieldmapStore
	objectMapStore *ObjectMapStore
	flagStore      *SyncFlagStore
	resultStore    *SyncResultStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.fieldmapStore != nil && f.objectMapStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) FieldmapStore() core.FieldmapStore {
	if f == nil {
		return nil
	}
	return f.fieldmapStore
}

func (f *RepositoryFactory) ObjectMapStore() core.ObjectMapStore {
	if f == nil {
		return nil
	}
	return f.objectMapStore
}

func (f *RepositoryFactory) FlagStore() core.SyncFlagStore {
	if f == nil {
		return nil
	}
	return f.flagStore
}

func (f *RepositoryFactory) ResultStore() *SyncResultStore {
	if f == nil {
		return nil
	}
	return f.resultStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	fieldmapStore, err := NewFieldmapStore(f.db)
	if err != nil {
		return err
	}
	f.fieldmapStore = fieldmapStore

	objectMapStore, err := NewObjectMapStore(f.db)
	if err != nil {
		return err
	}
	f.objectMapStore = objectMapStore

	flagStore, err := NewSyncFlagStore(f.db)
	if err != nil {
		return err
	}
	f.flagStore = flagStore

	resultStore, err := NewSyncResultStore(f.db)
	if err != nil {
		return err
	}
	f.resultStore = resultStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

// NewPostgresDB opens a postgres-backed bun handle from a DSN.
func NewPostgresDB(dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres connection: %w", err)
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}
