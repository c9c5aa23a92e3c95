package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-crm-sync/core"
	"github.com/uptrace/bun"
)

// FieldmapStore persists fieldmap configuration rows. The primary key is
// the numeric fieldmap id, so this store talks to bun directly instead of
// going through a uuid-keyed repository.
type FieldmapStore struct {
	db *bun.DB
}

func NewFieldmapStore(db *bun.DB) (*FieldmapStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &FieldmapStore{db: db}, nil
}

func (s *FieldmapStore) GetFieldmap(ctx context.Context, id int64) (core.Fieldmap, error) {
	if s == nil || s.db == nil {
		return core.Fieldmap{}, fmt.Errorf("sqlstore: fieldmap store is not configured")
	}
	record := &fieldmapRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Fieldmap{}, core.ErrFieldmapNotFound
		}
		return core.Fieldmap{}, err
	}
	return record.toDomain(), nil
}

func (s *FieldmapStore) ListFieldmaps(ctx context.Context, filter core.FieldmapFilter) ([]core.Fieldmap, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: fieldmap store is not configured")
	}
	records := []*fieldmapRecord{}
	query := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.id ASC")
	if objectType := strings.TrimSpace(filter.LocalObjectType); objectType != "" {
		query = query.Where("?TableAlias.local_object_type = ?", objectType)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]core.Fieldmap, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// SaveFieldmap inserts the fieldmap when it has no id yet and replaces the
// stored row otherwise. The returned value carries the assigned id.
func (s *FieldmapStore) SaveFieldmap(ctx context.Context, fieldmap core.Fieldmap) (core.Fieldmap, error) {
	if s == nil || s.db == nil {
		return core.Fieldmap{}, fmt.Errorf("sqlstore: fieldmap store is not configured")
	}
	if strings.TrimSpace(fieldmap.LocalObjectType) == "" {
		return core.Fieldmap{}, fmt.Errorf("sqlstore: fieldmap local object type is required")
	}
	if strings.TrimSpace(fieldmap.RemoteObjectType) == "" {
		return core.Fieldmap{}, fmt.Errorf("sqlstore: fieldmap remote object type is required")
	}
	now := time.Now().UTC()
	record := newFieldmapRecord(fieldmap, now)

	if record.ID == 0 {
		if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
			return core.Fieldmap{}, err
		}
		return record.toDomain(), nil
	}

	existing, err := s.GetFieldmap(ctx, record.ID)
	if err != nil {
		return core.Fieldmap{}, err
	}
	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = now
	if _, err := s.db.NewUpdate().
		Model(record).
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return core.Fieldmap{}, err
	}
	return record.toDomain(), nil
}
