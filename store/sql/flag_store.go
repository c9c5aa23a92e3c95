package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const flagMissingRequiredData = "missing_required_data"

// SyncFlagStore persists per-record push markers. The table carries a
// unique index on (object_type, local_id, flag), so setting an already set
// flag is a no-op rather than an error.
type SyncFlagStore struct {
	db   *bun.DB
	repo repository.Repository[*syncFlagRecord]
}

func NewSyncFlagStore(db *bun.DB) (*SyncFlagStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncFlagRecord](db, syncFlagHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync flag repository wiring: %w", err)
		}
	}
	return &SyncFlagStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SyncFlagStore) MissingRequiredData(ctx context.Context, objectType string, localID int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: sync flag store is not configured")
	}
	count, err := s.db.NewSelect().
		Model((*syncFlagRecord)(nil)).
		Where("?TableAlias.object_type = ?", strings.TrimSpace(objectType)).
		Where("?TableAlias.local_id = ?", localID).
		Where("?TableAlias.flag = ?", flagMissingRequiredData).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SyncFlagStore) SetMissingRequiredData(ctx context.Context, objectType string, localID int64) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: sync flag store is not configured")
	}
	trimmed := strings.TrimSpace(objectType)
	if trimmed == "" {
		return fmt.Errorf("sqlstore: sync flag object type is required")
	}
	record := &syncFlagRecord{
		ID:         uuid.NewString(),
		ObjectType: trimmed,
		LocalID:    localID,
		Flag:       flagMissingRequiredData,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.repo.Create(ctx, record); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *SyncFlagStore) ClearMissingRequiredData(ctx context.Context, objectType string, localID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: sync flag store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*syncFlagRecord)(nil)).
		Where("object_type = ?", strings.TrimSpace(objectType)).
		Where("local_id = ?", localID).
		Where("flag = ?", flagMissingRequiredData).
		Exec(ctx)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
