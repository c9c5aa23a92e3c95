package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

type SyncDirection string

const (
	DirectionPush SyncDirection = "push"
	DirectionPull SyncDirection = "pull"
)

const loopGuardKeyPrefix = "crm-sync::loop::v1"

const defaultLockTTL = 5 * time.Minute

// LoopGuard keeps the push and pull directions from echoing each other's
// writes. Each direction marks the remote ids it is currently touching in a
// TTL lock store; the opposite direction checks and clears the mark before
// acting. A per-direction pointer entry tracks the most recent ref so the
// guard can be consulted before the remote id of a brand-new record is
// known.
type LoopGuard struct {
	store LockStore
}

func NewLoopGuard(store LockStore) (*LoopGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("core: lock store is required")
	}
	return &LoopGuard{store: store}, nil
}

// Acquire marks ref as in flight for the direction.
func (g *LoopGuard) Acquire(ctx context.Context, direction SyncDirection, ref string, ttl time.Duration) error {
	return g.Mark(ctx, direction, ref, "1", ttl)
}

// Mark is Acquire with an explicit payload, used to stamp the record's
// last-modified time on the lock after a successful push.
func (g *LoopGuard) Mark(ctx context.Context, direction SyncDirection, ref string, value string, ttl time.Duration) error {
	if g == nil || g.store == nil {
		return fmt.Errorf("core: loop guard is not configured")
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("core: loop guard ref is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if err := g.store.Set(ctx, flagKey(direction, ref), value, ttl); err != nil {
		return err
	}
	return g.store.Set(ctx, pointerKey(direction), ref, ttl)
}

// Active reports whether ref is currently marked for the direction.
func (g *LoopGuard) Active(ctx context.Context, direction SyncDirection, ref string) (bool, error) {
	if g == nil || g.store == nil {
		return false, fmt.Errorf("core: loop guard is not configured")
	}
	_, ok, err := g.store.Get(ctx, flagKey(direction, strings.TrimSpace(ref)))
	return ok, err
}

// Value returns the payload stored for ref, when present.
func (g *LoopGuard) Value(ctx context.Context, direction SyncDirection, ref string) (string, bool, error) {
	if g == nil || g.store == nil {
		return "", false, fmt.Errorf("core: loop guard is not configured")
	}
	return g.store.Get(ctx, flagKey(direction, strings.TrimSpace(ref)))
}

// Clear removes the mark for ref and, when the direction pointer still
// names the same ref, the pointer too.
func (g *LoopGuard) Clear(ctx context.Context, direction SyncDirection, ref string) error {
	if g == nil || g.store == nil {
		return fmt.Errorf("core: loop guard is not configured")
	}
	ref = strings.TrimSpace(ref)
	if err := g.store.Delete(ctx, flagKey(direction, ref)); err != nil {
		return err
	}
	current, ok, err := g.store.Get(ctx, pointerKey(direction))
	if err != nil {
		return err
	}
	if ok && current == ref {
		return g.store.Delete(ctx, pointerKey(direction))
	}
	return nil
}

// CurrentRef reports the last ref the direction marked, if any.
func (g *LoopGuard) CurrentRef(ctx context.Context, direction SyncDirection) (string, bool, error) {
	if g == nil || g.store == nil {
		return "", false, fmt.Errorf("core: loop guard is not configured")
	}
	return g.store.Get(ctx, pointerKey(direction))
}

func flagKey(direction SyncDirection, ref string) string {
	return strings.Join([]string{
		loopGuardKeyPrefix,
		directionWord(direction),
		url.PathEscape(ref),
	}, "::")
}

func pointerKey(direction SyncDirection) string {
	return strings.Join([]string{
		loopGuardKeyPrefix,
		directionWord(direction),
		"object_id",
	}, "::")
}

func directionWord(direction SyncDirection) string {
	if direction == DirectionPull {
		return "pulling"
	}
	return "pushing"
}

type memoryLockEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryLockStore is the in-process LockStore used when no shared store is
// wired in. Entries expire lazily on read.
type MemoryLockStore struct {
	mu      sync.Mutex
	entries map[string]memoryLockEntry
	nowFn   func() time.Time
}

func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{
		entries: make(map[string]memoryLockEntry),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryLockStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if s == nil {
		return fmt.Errorf("core: memory lock store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryLockEntry{
		value:     value,
		expiresAt: s.nowFn().Add(ttl),
	}
	return nil
}

func (s *MemoryLockStore) Get(_ context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, fmt.Errorf("core: memory lock store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[strings.TrimSpace(key)]
	if !ok {
		return "", false, nil
	}
	if !s.nowFn().Before(entry.expiresAt) {
		delete(s.entries, strings.TrimSpace(key))
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryLockStore) Delete(_ context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("core: memory lock store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, strings.TrimSpace(key))
	return nil
}

var _ LockStore = (*MemoryLockStore)(nil)
