package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-crm-sync/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const fieldmapCacheKeyPrefix = "crm-sync::fieldmap::v1"

// FieldmapPersistence is what the cached wrapper needs from the backing
// store.
type FieldmapPersistence interface {
	GetFieldmap(ctx context.Context, id int64) (core.Fieldmap, error)
	ListFieldmaps(ctx context.Context, filter core.FieldmapFilter) ([]core.Fieldmap, error)
	SaveFieldmap(ctx context.Context, fieldmap core.Fieldmap) (core.Fieldmap, error)
}

// CachedFieldmapStore caches fieldmap reads. Fieldmaps change rarely and
// are read on every push, so reads go through the cache and writes
// invalidate the affected keys.
type CachedFieldmapStore struct {
	base  FieldmapPersistence
	cache repositorycache.CacheService
}

func NewCachedFieldmapStore(
	base FieldmapPersistence,
	cacheService repositorycache.CacheService,
) (*CachedFieldmapStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base fieldmap store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: fieldmap cache service is required")
	}
	return &CachedFieldmapStore{base: base, cache: cacheService}, nil
}

// FieldmapCacheKey returns the deterministic cache key contract for
// fieldmap reads: crm-sync::fieldmap::v1::<kind>::<value> with each
// segment URL-path escaped.
func FieldmapCacheKey(kind string, value string) string {
	segments := []string{kind, value}
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(append([]string{fieldmapCacheKeyPrefix}, segments...), "::")
}

func fieldmapIDCacheKey(id int64) string {
	return FieldmapCacheKey("id", strconv.FormatInt(id, 10))
}

func fieldmapListCacheKey(filter core.FieldmapFilter) string {
	objectType := strings.TrimSpace(filter.LocalObjectType)
	if objectType == "" {
		objectType = "*"
	}
	return FieldmapCacheKey("list", objectType)
}

func (s *CachedFieldmapStore) GetFieldmap(ctx context.Context, id int64) (core.Fieldmap, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Fieldmap{}, fmt.Errorf("sqlstore: cached fieldmap store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, fieldmapIDCacheKey(id), func(ctx context.Context) (core.Fieldmap, error) {
		return s.base.GetFieldmap(ctx, id)
	})
}

func (s *CachedFieldmapStore) ListFieldmaps(ctx context.Context, filter core.FieldmapFilter) ([]core.Fieldmap, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached fieldmap store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, fieldmapListCacheKey(filter), func(ctx context.Context) ([]core.Fieldmap, error) {
		return s.base.ListFieldmaps(ctx, filter)
	})
}

func (s *CachedFieldmapStore) SaveFieldmap(ctx context.Context, fieldmap core.Fieldmap) (core.Fieldmap, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Fieldmap{}, fmt.Errorf("sqlstore: cached fieldmap store is not configured")
	}
	saved, err := s.base.SaveFieldmap(ctx, fieldmap)
	if err != nil {
		return core.Fieldmap{}, err
	}

	keys := []string{
		fieldmapIDCacheKey(saved.ID),
		fieldmapListCacheKey(core.FieldmapFilter{LocalObjectType: saved.LocalObjectType}),
		fieldmapListCacheKey(core.FieldmapFilter{}),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return core.Fieldmap{}, err
		}
	}
	return saved, nil
}

var _ core.FieldmapStore = (*CachedFieldmapStore)(nil)
