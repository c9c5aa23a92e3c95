package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crm-sync/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ObjectMapStore struct {
	db   *bun.DB
	repo repository.Repository[*objectMapRecord]
}

func NewObjectMapStore(db *bun.DB) (*ObjectMapStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*objectMapRecord](db, objectMapHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid object map repository wiring: %w", err)
		}
	}
	return &ObjectMapStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *ObjectMapStore) CreateObjectMap(ctx context.Context, in core.CreateObjectMapInput) (core.MappingObject, error) {
	if s == nil || s.repo == nil {
		return core.MappingObject{}, fmt.Errorf("sqlstore: object map store is not configured")
	}
	if strings.TrimSpace(in.LocalObjectType) == "" {
		return core.MappingObject{}, fmt.Errorf("sqlstore: object map local object type is required")
	}
	if in.LocalID == 0 {
		return core.MappingObject{}, fmt.Errorf("sqlstore: object map local id is required")
	}
	if in.Remote.IsZero() {
		return core.MappingObject{}, fmt.Errorf("sqlstore: object map remote value is required")
	}

	record := newObjectMapRecord(in, time.Now().UTC())
	record.ID = uuid.NewString()

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.MappingObject{}, err
	}
	return created.toDomain(), nil
}

func (s *ObjectMapStore) UpdateObjectMap(ctx context.Context, objectMap core.MappingObject) (core.MappingObject, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.MappingObject{}, fmt.Errorf("sqlstore: object map store is not configured")
	}
	trimmedID := strings.TrimSpace(objectMap.ID)
	if trimmedID == "" {
		return core.MappingObject{}, fmt.Errorf("sqlstore: object map id is required")
	}

	record, err := s.findByID(ctx, trimmedID)
	if err != nil {
		return core.MappingObject{}, err
	}
	if record == nil {
		return core.MappingObject{}, core.ErrObjectMapNotFound
	}

	record.RemoteValue = objectMap.Remote.Value()
	record.RemotePending = objectMap.Remote.Pending()
	record.LastSyncAction = strings.TrimSpace(objectMap.LastSyncAction)
	record.LastSyncStatus = string(objectMap.LastSyncStatus)
	record.LastSyncMessage = objectMap.LastSyncMessage
	record.PendingAction = strings.TrimSpace(objectMap.PendingAction)
	record.UpdatedAt = time.Now().UTC()
	if objectMap.LastSync.IsZero() {
		record.LastSync = nil
	} else {
		value := objectMap.LastSync.UTC()
		record.LastSync = &value
	}

	if _, err := s.db.NewUpdate().
		Model(record).
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return core.MappingObject{}, err
	}
	return record.toDomain(), nil
}

func (s *ObjectMapStore) DeleteObjectMap(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: object map store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: object map id is required")
	}
	_, err := s.db.NewDelete().
		Model((*objectMapRecord)(nil)).
		Where("id = ?", trimmedID).
		Exec(ctx)
	return err
}

func (s *ObjectMapStore) GetObjectMapsByLocal(ctx context.Context, objectType string, localID int64) ([]core.MappingObject, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: object map store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("local_object_type", "=", strings.TrimSpace(objectType)),
		repository.SelectBy("local_id", "=", strconv.FormatInt(localID, 10)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.MappingObject, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *ObjectMapStore) GetObjectMapsByRemote(ctx context.Context, remoteValue string) ([]core.MappingObject, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: object map store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("remote_value", "=", strings.TrimSpace(remoteValue)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.MappingObject, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *ObjectMapStore) findByID(ctx context.Context, id string) (*objectMapRecord, error) {
	record := &objectMapRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return nil, nil
	}
	return record, nil
}
