package core

import (
	"context"
	"sync"
)

// PushAllowedFilter may veto or reinstate a push after the built-in policy
// ran. It receives the decision so far and returns the new one.
type PushAllowedFilter func(ctx context.Context, allowed bool, objectType string, record Record, trigger SyncTrigger, fieldmap Fieldmap) bool

// ParamsFilter rewrites translated params before the remote call. isNew is
// true on the create/upsert branch.
type ParamsFilter func(ctx context.Context, params PushParams, record Record, fieldmap Fieldmap, trigger SyncTrigger, isNew bool) PushParams

// UpdateParamsFilter rewrites params on the update branch, once the remote
// id is known.
type UpdateParamsFilter func(ctx context.Context, params PushParams, remoteID string, record Record, fieldmap Fieldmap) PushParams

// MatchResolver lets callers adopt an existing remote record for a local
// record with no mapping. Returning ok routes the push through an upsert on
// the remote id.
type MatchResolver func(ctx context.Context, record Record, fieldmap Fieldmap) (remoteID string, ok bool)

// MappingObjectFilter rewrites or augments the mapping row wherever the
// engine loads it, before any remote call or bookkeeping. The row is the
// zero value when the record has no mapping yet.
type MappingObjectFilter func(ctx context.Context, objectMap MappingObject, record Record, fieldmap Fieldmap) MappingObject

// PrePushHook observes the payload immediately before the remote call.
type PrePushHook func(ctx context.Context, operation string, remoteID string, record Record, fieldmap Fieldmap, params PushParams)

// PostPushHook observes the outcome after the remote call and bookkeeping.
type PostPushHook func(ctx context.Context, operation string, response RemoteResponse, synced SyncedObject)

// HookRegistry holds the engine's extension points. Callbacks run in
// registration order; an empty list behaves as the identity.
type HookRegistry struct {
	mu sync.RWMutex

	pushAllowed   []PushAllowedFilter
	params        []ParamsFilter
	updateParams  []UpdateParamsFilter
	match         []MatchResolver
	mappingObject []MappingObjectFilter
	prePush       []PrePushHook
	postPush      []PostPushHook
}

func NewHookRegistry() *HookRegistry {
	return &HookRegistry{}
}

func (h *HookRegistry) OnPushAllowed(filter PushAllowedFilter) {
	if h == nil || filter == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushAllowed = append(h.pushAllowed, filter)
}

func (h *HookRegistry) OnParams(filter ParamsFilter) {
	if h == nil || filter == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.params = append(h.params, filter)
}

func (h *HookRegistry) OnUpdateParams(filter UpdateParamsFilter) {
	if h == nil || filter == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updateParams = append(h.updateParams, filter)
}

func (h *HookRegistry) OnMatch(resolver MatchResolver) {
	if h == nil || resolver == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.match = append(h.match, resolver)
}

func (h *HookRegistry) OnMappingObject(filter MappingObjectFilter) {
	if h == nil || filter == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mappingObject = append(h.mappingObject, filter)
}

func (h *HookRegistry) OnPrePush(hook PrePushHook) {
	if h == nil || hook == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prePush = append(h.prePush, hook)
}

func (h *HookRegistry) OnPostPush(hook PostPushHook) {
	if h == nil || hook == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.postPush = append(h.postPush, hook)
}

func (h *HookRegistry) applyPushAllowed(ctx context.Context, allowed bool, objectType string, record Record, trigger SyncTrigger, fieldmap Fieldmap) bool {
	if h == nil {
		return allowed
	}
	h.mu.RLock()
	filters := append([]PushAllowedFilter(nil), h.pushAllowed...)
	h.mu.RUnlock()
	for _, filter := range filters {
		allowed = filter(ctx, allowed, objectType, record, trigger, fieldmap)
	}
	return allowed
}

func (h *HookRegistry) applyParams(ctx context.Context, params PushParams, record Record, fieldmap Fieldmap, trigger SyncTrigger, isNew bool) PushParams {
	if h == nil {
		return params
	}
	h.mu.RLock()
	filters := append([]ParamsFilter(nil), h.params...)
	h.mu.RUnlock()
	for _, filter := range filters {
		params = filter(ctx, params, record, fieldmap, trigger, isNew)
	}
	return params
}

func (h *HookRegistry) applyUpdateParams(ctx context.Context, params PushParams, remoteID string, record Record, fieldmap Fieldmap) PushParams {
	if h == nil {
		return params
	}
	h.mu.RLock()
	filters := append([]UpdateParamsFilter(nil), h.updateParams...)
	h.mu.RUnlock()
	for _, filter := range filters {
		params = filter(ctx, params, remoteID, record, fieldmap)
	}
	return params
}

// resolveMatch consults resolvers in registration order; the first hit
// wins.
func (h *HookRegistry) resolveMatch(ctx context.Context, record Record, fieldmap Fieldmap) (string, bool) {
	if h == nil {
		return "", false
	}
	h.mu.RLock()
	resolvers := append([]MatchResolver(nil), h.match...)
	h.mu.RUnlock()
	for _, resolver := range resolvers {
		if remoteID, ok := resolver(ctx, record, fieldmap); ok {
			return remoteID, true
		}
	}
	return "", false
}

// applyMappingObject runs the mapping-object filters over the loaded row,
// or over a zero row when the record has no mapping yet. A filtered row
// with neither an id nor a remote value counts as no mapping.
func (h *HookRegistry) applyMappingObject(ctx context.Context, own *MappingObject, record Record, fieldmap Fieldmap) *MappingObject {
	if h == nil {
		return own
	}
	h.mu.RLock()
	filters := append([]MappingObjectFilter(nil), h.mappingObject...)
	h.mu.RUnlock()
	if len(filters) == 0 {
		return own
	}
	var objectMap MappingObject
	if own != nil {
		objectMap = *own
	}
	for _, filter := range filters {
		objectMap = filter(ctx, objectMap, record, fieldmap)
	}
	if objectMap.ID == "" && objectMap.Remote.IsZero() {
		return nil
	}
	return &objectMap
}

func (h *HookRegistry) firePrePush(ctx context.Context, operation string, remoteID string, record Record, fieldmap Fieldmap, params PushParams) {
	if h == nil {
		return
	}
	h.mu.RLock()
	hooks := append([]PrePushHook(nil), h.prePush...)
	h.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, operation, remoteID, record, fieldmap, params)
	}
}

func (h *HookRegistry) firePostPush(ctx context.Context, operation string, response RemoteResponse, synced SyncedObject) {
	if h == nil {
		return
	}
	h.mu.RLock()
	hooks := append([]PostPushHook(nil), h.postPush...)
	h.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, operation, response, synced)
	}
}
