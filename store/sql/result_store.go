package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crm-sync/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SyncResultStore appends push outcomes to the operations log.
type SyncResultStore struct {
	db   *bun.DB
	repo repository.Repository[*syncResultRecord]
}

func NewSyncResultStore(db *bun.DB) (*SyncResultStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*syncResultRecord](db, syncResultHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid sync result repository wiring: %w", err)
		}
	}
	return &SyncResultStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SyncResultStore) Record(ctx context.Context, result core.SyncResult) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: sync result store is not configured")
	}
	if result.IsZero() {
		return nil
	}
	record := newSyncResultRecord(result, time.Now().UTC())
	record.ID = uuid.NewString()
	_, err := s.repo.Create(ctx, record)
	return err
}

// ResultFilter narrows ListResults. Zero fields match everything.
type ResultFilter struct {
	ParentID int64
	Status   core.SyncStatus
	Limit    int
}

func (s *SyncResultStore) ListResults(ctx context.Context, filter ResultFilter) ([]core.SyncResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: sync result store is not configured")
	}
	criteria := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
	}
	if filter.ParentID != 0 {
		criteria = append(criteria, repository.SelectBy("parent_id", "=", strconv.FormatInt(filter.ParentID, 10)))
	}
	if strings.TrimSpace(string(filter.Status)) != "" {
		criteria = append(criteria, repository.SelectBy("status", "=", string(filter.Status)))
	}
	if filter.Limit > 0 {
		criteria = append(criteria, repository.SelectPaginate(filter.Limit, 0))
	}

	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}

	out := make([]core.SyncResult, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.ResultRecorder = (*SyncResultStore)(nil)
