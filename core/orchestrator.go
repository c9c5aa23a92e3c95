package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// PushObjectCRUD fans a local change event out to every fieldmap configured
// for the object type. Each fieldmap yields at most one result, in fieldmap
// order: an error result for a policy denial, an enqueue acknowledgement
// for deferred fieldmaps, or the executor's outcome for inline ones. The
// whole event is dropped when the pull direction holds a loop-guard mark
// for the record, consuming the mark.
func (e *Engine) PushObjectCRUD(ctx context.Context, objectType string, record Record, trigger SyncTrigger, manual bool) ([]SyncResult, error) {
	if e == nil {
		return nil, fmt.Errorf("core: engine is nil")
	}
	startedAt := e.now()
	objectType = strings.TrimSpace(objectType)
	if objectType == "" {
		return nil, e.mapError(fmt.Errorf("core: object type is required"))
	}

	structure, err := e.local.TableStructure(ctx, objectType)
	if err != nil {
		return nil, e.mapError(err)
	}
	localID, ok := recordIdentifier(record, structure.IDField)
	if !ok {
		result := SyncResult{
			Title:   fmt.Sprintf("Error: %s: missing identifier field %q", objectType, structure.IDField),
			Message: "The record cannot be pushed without its local identifier.",
			Trigger: trigger,
			Status:  StatusError,
		}
		e.recordResult(ctx, result)
		return []SyncResult{result}, nil
	}

	maps, err := e.objectMaps.GetObjectMapsByLocal(ctx, objectType, localID)
	if err != nil {
		return nil, e.mapError(err)
	}
	if aborted, guardErr := e.consumePullMark(ctx, maps); guardErr != nil {
		return nil, e.mapError(guardErr)
	} else if aborted {
		e.logInfo(ctx, "push skipped, change originated from pull", map[string]any{
			"object_type": objectType,
			"local_id":    localID,
			"trigger":     trigger.String(),
		})
		return nil, nil
	}

	fieldmaps, err := e.fieldmaps.ListFieldmaps(ctx, FieldmapFilter{LocalObjectType: objectType})
	if err != nil {
		return nil, e.mapError(err)
	}

	results := []SyncResult{}
	for _, fieldmap := range fieldmaps {
		allowed, policyErr := e.PushAllowed(ctx, objectType, record, trigger, fieldmap)
		if policyErr != nil {
			return results, policyErr
		}
		if !allowed {
			result := e.denialResult(ctx, objectType, localID, record, trigger, fieldmap, mapForFieldmap(maps, fieldmap.ID))
			results = append(results, result)
			continue
		}

		if record.Draft && !fieldmap.PushDrafts {
			continue
		}

		if fieldmap.PushAsync && !manual && e.queue != nil {
			result := e.enqueuePush(ctx, objectType, localID, fieldmap, trigger)
			e.recordResult(ctx, result)
			results = append(results, result)
			continue
		}

		result, syncErr := e.Sync(ctx, objectType, record, fieldmap, trigger)
		if syncErr != nil {
			if errors.Is(syncErr, ErrRemoteUnauthorized) {
				result = SyncResult{
					Title:    fmt.Sprintf("Error: %s %d not pushed, remote session is not authorized", objectType, localID),
					Message:  "Establish or refresh the remote session before pushing.",
					Trigger:  trigger,
					ParentID: localID,
					Status:   StatusError,
				}
				e.recordResult(ctx, result)
				results = append(results, result)
				break
			}
			return results, e.mapError(syncErr)
		}
		if !result.IsZero() {
			results = append(results, result)
		}
	}

	e.observePush(ctx, startedAt, "push_object_crud", nil, map[string]any{
		"object_type": objectType,
		"trigger":     trigger.String(),
		"local_id":    localID,
		"results":     len(results),
	})
	return results, nil
}

// PushRecordByID loads the record from the local store and pushes it.
// Deleted records are only visible to the delete trigger.
func (e *Engine) PushRecordByID(ctx context.Context, objectType string, localID int64, trigger SyncTrigger, manual bool) ([]SyncResult, error) {
	if e == nil {
		return nil, fmt.Errorf("core: engine is nil")
	}
	record, err := e.local.GetRecord(ctx, objectType, localID, trigger == TriggerDelete)
	if err != nil {
		return nil, e.mapError(err)
	}
	return e.PushObjectCRUD(ctx, objectType, record, trigger, manual)
}

// ManualPush runs an on-demand push, mapping HTTP verbs onto triggers and
// summarizing the results as a coarse status code.
func (e *Engine) ManualPush(ctx context.Context, objectType string, localID int64, method string) (ManualPushOutcome, error) {
	if e == nil {
		return ManualPushOutcome{}, fmt.Errorf("core: engine is nil")
	}

	var trigger SyncTrigger
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodPost:
		trigger = TriggerCreate
	case http.MethodPut:
		trigger = TriggerUpdate
	case http.MethodDelete:
		trigger = TriggerDelete
	default:
		return ManualPushOutcome{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	results, err := e.PushRecordByID(ctx, objectType, localID, trigger, true)
	if err != nil {
		return ManualPushOutcome{}, err
	}

	succeeded := len(results) > 0
	for _, result := range results {
		if result.Status != StatusSuccess {
			succeeded = false
			break
		}
	}

	code := http.StatusMethodNotAllowed
	if succeeded {
		if trigger == TriggerCreate {
			code = http.StatusCreated
		} else {
			code = http.StatusNoContent
		}
	}
	return ManualPushOutcome{StatusCode: code, Results: results}, nil
}

// consumePullMark checks the pull direction's loop-guard marks for any of
// the record's known remote refs, falling back to the pull pointer when the
// record has no mapping yet. A found mark is cleared and the push aborts.
func (e *Engine) consumePullMark(ctx context.Context, maps []MappingObject) (bool, error) {
	refs := []string{}
	for _, objectMap := range maps {
		if value := objectMap.Remote.Value(); value != "" {
			refs = append(refs, value)
		}
	}
	if len(refs) == 0 {
		ref, ok, err := e.guard.CurrentRef(ctx, DirectionPull)
		if err != nil {
			return false, err
		}
		if ok {
			refs = append(refs, ref)
		}
	}
	for _, ref := range refs {
		active, err := e.guard.Active(ctx, DirectionPull, ref)
		if err != nil {
			return false, err
		}
		if active {
			if err := e.guard.Clear(ctx, DirectionPull, ref); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// denialResult reports a push the policy refused for one fieldmap. The
// operation name is derived from the trigger and the mapping state; a
// denial with no derivable operation still joins the results but stays out
// of the operations log.
func (e *Engine) denialResult(ctx context.Context, objectType string, localID int64, record Record, trigger SyncTrigger, fieldmap Fieldmap, own *MappingObject) SyncResult {
	own = e.hooks.applyMappingObject(ctx, own, record, fieldmap)
	isNew := own == nil

	operation := ""
	switch trigger {
	case TriggerCreate:
		if isNew {
			operation = trigger.Operation()
		}
	case TriggerUpdate, TriggerDelete:
		if !isNew {
			operation = trigger.Operation()
		}
	}

	title := fmt.Sprintf("Error: push of %s %d to %s was not allowed by fieldmap %q",
		objectType, localID, fieldmap.RemoteObjectType, fieldmap.Label)
	if operation != "" {
		title = fmt.Sprintf("Error: %s of %s %d to %s was not allowed by fieldmap %q",
			operation, objectType, localID, fieldmap.RemoteObjectType, fieldmap.Label)
	}
	result := SyncResult{
		Title:    title,
		Trigger:  trigger,
		ParentID: localID,
		Status:   StatusError,
	}
	if operation != "" {
		e.recordResult(ctx, result)
	}
	return result
}

func (e *Engine) enqueuePush(ctx context.Context, objectType string, localID int64, fieldmap Fieldmap, trigger SyncTrigger) SyncResult {
	payload := QueuePayload{
		ObjectType: objectType,
		LocalID:    localID,
		FieldmapID: fieldmap.ID,
		Trigger:    trigger,
	}
	if err := e.queue.Enqueue(ctx, payload); err != nil {
		return SyncResult{
			Title:    fmt.Sprintf("Error: %s %d could not be queued for %s push", objectType, localID, trigger.String()),
			Message:  err.Error(),
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusError,
		}
	}
	return SyncResult{
		Title:    fmt.Sprintf("Success: %s %d queued for %s push to %s", objectType, localID, trigger.String(), fieldmap.RemoteObjectType),
		Message:  fmt.Sprintf("The push will run on queue %q.", e.config.QueueName),
		Trigger:  trigger,
		ParentID: localID,
		Status:   StatusSuccess,
	}
}
