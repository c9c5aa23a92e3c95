package core

import (
	"context"
	"fmt"
)

// PushAllowed decides whether a record may be pushed through a fieldmap for
// a trigger. Built-in checks run first: a fieldmap that does not push
// creates never adopts an unmapped record, and the trigger must be in the
// fieldmap's configured set. Registered push-allowed filters get the final
// word either way.
func (e *Engine) PushAllowed(ctx context.Context, objectType string, record Record, trigger SyncTrigger, fieldmap Fieldmap) (bool, error) {
	if e == nil {
		return false, fmt.Errorf("core: engine is nil")
	}

	allowed := true

	if !fieldmap.Triggers.Has(TriggerCreate) {
		structure, err := e.local.TableStructure(ctx, objectType)
		if err != nil {
			return false, e.mapError(err)
		}
		localID, ok := recordIdentifier(record, structure.IDField)
		if !ok {
			allowed = false
		} else {
			maps, err := e.objectMaps.GetObjectMapsByLocal(ctx, objectType, localID)
			if err != nil {
				return false, e.mapError(err)
			}
			if len(maps) == 0 {
				allowed = false
			}
		}
	}

	if allowed && !fieldmap.Triggers.Has(trigger) {
		allowed = false
	}

	allowed = e.hooks.applyPushAllowed(ctx, allowed, objectType, record, trigger, fieldmap)

	// A denial is only worth a log line when the operation name can be
	// derived from the trigger.
	if !allowed && trigger.Operation() != "" {
		e.logInfo(ctx, "push denied by policy", map[string]any{
			"object_type": objectType,
			"trigger":     trigger.String(),
			"fieldmap_id": fieldmap.ID,
		})
	}
	return allowed, nil
}
