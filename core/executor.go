package core

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const missingRequiredDataCode = "REQUIRED_FIELD_MISSING"

// SyncRecordByID re-resolves a deferred push from its queue payload and runs
// it against a single fieldmap.
func (e *Engine) SyncRecordByID(ctx context.Context, objectType string, localID int64, fieldmapID int64, trigger SyncTrigger) (SyncResult, error) {
	if e == nil {
		return SyncResult{}, fmt.Errorf("core: engine is nil")
	}
	fieldmap, err := e.fieldmaps.GetFieldmap(ctx, fieldmapID)
	if err != nil {
		return SyncResult{}, e.mapError(err)
	}
	record, err := e.local.GetRecord(ctx, objectType, localID, trigger == TriggerDelete)
	if err != nil {
		return SyncResult{}, e.mapError(err)
	}
	return e.Sync(ctx, objectType, record, fieldmap, trigger)
}

// Sync pushes one record through one fieldmap. The remote verb follows the
// mapping state rather than the trigger alone: an unmapped record or one
// flagged as missing required data takes the create branch, a mapped one the
// update branch, and the delete trigger the delete branch. Remote failures
// come back as an error result, not an error; only store, guard, or
// authorization faults surface as errors.
func (e *Engine) Sync(ctx context.Context, objectType string, record Record, fieldmap Fieldmap, trigger SyncTrigger) (SyncResult, error) {
	if e == nil {
		return SyncResult{}, fmt.Errorf("core: engine is nil")
	}
	startedAt := e.now()

	structure, err := e.local.TableStructure(ctx, objectType)
	if err != nil {
		return SyncResult{}, e.mapError(err)
	}
	localID, ok := recordIdentifier(record, structure.IDField)
	if !ok {
		return SyncResult{}, e.mapError(newSyncError(
			fmt.Sprintf("record has no identifier field %q", structure.IDField),
			goerrors.CategoryBadInput,
			SyncErrorBadInput,
		))
	}

	if !e.remote.IsAuthorized(ctx) {
		return SyncResult{}, e.mapError(ErrRemoteUnauthorized)
	}

	maps, err := e.objectMaps.GetObjectMapsByLocal(ctx, objectType, localID)
	if err != nil {
		return SyncResult{}, e.mapError(err)
	}
	own := e.hooks.applyMappingObject(ctx, mapForFieldmap(maps, fieldmap.ID), record, fieldmap)

	var result SyncResult
	var syncErr error
	switch {
	case trigger == TriggerDelete:
		result, syncErr = e.syncDelete(ctx, objectType, localID, record, fieldmap, own)
	default:
		forced := false
		if e.flags != nil {
			forced, err = e.flags.MissingRequiredData(ctx, objectType, localID)
			if err != nil {
				return SyncResult{}, e.mapError(err)
			}
		}
		if own == nil || forced {
			result, syncErr = e.syncCreate(ctx, objectType, localID, record, fieldmap, trigger, own, forced)
		} else {
			result, syncErr = e.syncUpdate(ctx, objectType, localID, record, fieldmap, trigger, own)
		}
	}
	if syncErr != nil {
		return SyncResult{}, e.mapError(syncErr)
	}

	e.observePush(ctx, startedAt, "sync", nil, map[string]any{
		"object_type": objectType,
		"trigger":     trigger.String(),
		"fieldmap_id": fieldmap.ID,
		"local_id":    localID,
		"status":      string(result.Status),
	})
	return result, nil
}

// syncDelete removes the remote counterpart and always retires the mapping
// row, even when the remote call fails. When other local records still map
// onto the same remote record, only this record's row goes and the remote
// record stays.
func (e *Engine) syncDelete(ctx context.Context, objectType string, localID int64, record Record, fieldmap Fieldmap, own *MappingObject) (SyncResult, error) {
	if own == nil {
		return SyncResult{}, nil
	}

	remoteID, confirmed := own.Remote.ID()
	if !confirmed {
		// The create never completed remotely; there is nothing to delete
		// there.
		if err := e.objectMaps.DeleteObjectMap(ctx, own.ID); err != nil {
			return SyncResult{}, err
		}
		return SyncResult{}, nil
	}

	siblings, err := e.objectMaps.GetObjectMapsByRemote(ctx, own.Remote.Value())
	if err != nil {
		return SyncResult{}, err
	}
	if others := otherLocalIDs(siblings, own.ID); len(others) > 0 {
		if err := e.objectMaps.DeleteObjectMap(ctx, own.ID); err != nil {
			return SyncResult{}, err
		}
		result := SyncResult{
			Title: fmt.Sprintf("Notice: %s %s not deleted, other records still map to it", fieldmap.RemoteObjectType, remoteID),
			Message: fmt.Sprintf("Local %s records %s still map to this remote record; only the mapping for %d was removed.",
				objectType, joinInt64s(others), localID),
			Trigger:  TriggerDelete,
			ParentID: localID,
			Status:   StatusNotice,
		}
		e.recordResult(ctx, result)
		return result, nil
	}

	if err := e.guard.Acquire(ctx, DirectionPush, remoteID, e.lockTTL(ctx)); err != nil {
		return SyncResult{}, err
	}

	response, callErr := e.remote.Delete(ctx, fieldmap.RemoteObjectType, remoteID)

	var result SyncResult
	switch {
	case callErr != nil:
		result = SyncResult{
			Title:    fmt.Sprintf("Error: could not delete %s %s", fieldmap.RemoteObjectType, remoteID),
			Message:  callErr.Error(),
			Trigger:  TriggerDelete,
			ParentID: localID,
			Status:   StatusError,
		}
	case response.StatusCode >= http.StatusMultipleChoices:
		result = SyncResult{
			Title:    fmt.Sprintf("Error: could not delete %s %s", fieldmap.RemoteObjectType, remoteID),
			Message:  remoteFailureMessage(response),
			Trigger:  TriggerDelete,
			ParentID: localID,
			Status:   StatusError,
		}
	default:
		result = SyncResult{
			Title:    fmt.Sprintf("Success: deleted %s %s", fieldmap.RemoteObjectType, remoteID),
			Message:  fmt.Sprintf("Deleted on %s trigger of %s %d.", TriggerDelete.String(), objectType, localID),
			Trigger:  TriggerDelete,
			ParentID: localID,
			Status:   StatusSuccess,
		}
	}

	// The local record is gone either way; keeping the row would orphan it.
	if err := e.objectMaps.DeleteObjectMap(ctx, own.ID); err != nil {
		return SyncResult{}, err
	}

	e.hooks.firePostPush(ctx, "delete", response, SyncedObject{
		Record:    record,
		Fieldmap:  fieldmap,
		ObjectMap: *own,
		Err:       callErr,
	})
	e.recordResult(ctx, result)
	return result, nil
}

// syncCreate pushes an unmapped record. A pending mapping row goes in before
// the remote call so concurrent events see the record as in flight, then the
// row is confirmed or marked failed from the outcome. Match resolvers and
// prematch or key rules route the call through an upsert instead of a plain
// create.
func (e *Engine) syncCreate(ctx context.Context, objectType string, localID int64, record Record, fieldmap Fieldmap, trigger SyncTrigger, own *MappingObject, forced bool) (SyncResult, error) {
	params := TranslateParams(fieldmap, record)
	params = e.hooks.applyParams(ctx, params, record, fieldmap, trigger, true)
	params = applyRecordTypeDefault(params, fieldmap)
	if params.Empty() {
		return SyncResult{}, nil
	}

	if own == nil {
		created, err := e.objectMaps.CreateObjectMap(ctx, CreateObjectMapInput{
			LocalObjectType: objectType,
			LocalID:         localID,
			FieldmapID:      fieldmap.ID,
			Remote:          NewPendingRef(),
			PendingAction:   PendingActionCreated,
			LastSyncAction:  SyncActionPush,
			LastSyncStatus:  StatusSuccess,
		})
		if err != nil {
			return SyncResult{}, err
		}
		own = &created
	}
	pendingValue := own.Remote.Value()

	ttl := e.lockTTL(ctx)
	if err := e.guard.Acquire(ctx, DirectionPush, pendingValue, ttl); err != nil {
		return SyncResult{}, err
	}

	operation := "create"
	var matchField, matchValue string
	if remoteID, ok := e.hooks.resolveMatch(ctx, record, fieldmap); ok {
		operation = "upsert"
		matchField = "Id"
		matchValue = EncodeMatchValue(remoteID)
	} else if params.Prematch != nil {
		operation = "upsert"
		matchField = params.Prematch.RemoteField
		matchValue = EncodeMatchValue(params.Prematch.Value)
	} else if params.Key != nil {
		operation = "upsert"
		matchField = params.Key.RemoteField
		matchValue = EncodeMatchValue(params.Key.Value)
	}

	e.hooks.firePrePush(ctx, operation, "", record, fieldmap, params)

	var response RemoteResponse
	var callErr error
	if operation == "upsert" {
		response, callErr = e.remote.Upsert(ctx, fieldmap.RemoteObjectType, matchField, matchValue, params.Fields)
	} else {
		response, callErr = e.remote.Create(ctx, fieldmap.RemoteObjectType, params.Fields)
	}

	now := e.now()
	if callErr != nil || response.StatusCode >= http.StatusMultipleChoices {
		message := remoteFailureMessage(response)
		if callErr != nil {
			message = callErr.Error()
		}
		if response.StatusCode == http.StatusMultipleChoices {
			message = fmt.Sprintf("more than one remote record matches (%s:%s)", matchField, matchValue)
		}
		if callErr == nil && response.ErrorCode == missingRequiredDataCode && e.flags != nil {
			if err := e.flags.SetMissingRequiredData(ctx, objectType, localID); err != nil {
				return SyncResult{}, err
			}
		}
		own.LastSync = now
		own.LastSyncAction = SyncActionPush
		own.LastSyncStatus = StatusError
		own.LastSyncMessage = message
		updated, err := e.objectMaps.UpdateObjectMap(ctx, *own)
		if err != nil {
			return SyncResult{}, err
		}
		result := SyncResult{
			Title:    fmt.Sprintf("Error: could not %s %s for %s %d", operation, fieldmap.RemoteObjectType, objectType, localID),
			Message:  message,
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusError,
		}
		e.hooks.firePostPush(ctx, operation, response, SyncedObject{
			Record:    record,
			Fieldmap:  fieldmap,
			ObjectMap: updated,
			Err:       callErr,
		})
		e.recordResult(ctx, result)
		return result, nil
	}

	remoteID := response.DataID()
	detail := response
	if remoteID == "" && operation == "upsert" && response.StatusCode == http.StatusNoContent {
		// An upsert that updated an existing remote record returns no body;
		// the id comes from a fresh external-id read.
		refetched, err := e.remote.ReadByExternalID(ctx, fieldmap.RemoteObjectType, matchField, matchValue, ReadOptions{NoCache: true})
		if err != nil {
			return SyncResult{}, err
		}
		remoteID = refetched.DataID()
		detail = refetched
	}
	if remoteID == "" {
		own.LastSync = now
		own.LastSyncAction = SyncActionPush
		own.LastSyncStatus = StatusError
		own.LastSyncMessage = "remote did not return an id"
		if _, err := e.objectMaps.UpdateObjectMap(ctx, *own); err != nil {
			return SyncResult{}, err
		}
		result := SyncResult{
			Title:    fmt.Sprintf("Error: could not %s %s for %s %d", operation, fieldmap.RemoteObjectType, objectType, localID),
			Message:  "The remote API accepted the call but did not return a record id.",
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusError,
		}
		e.recordResult(ctx, result)
		return result, nil
	}

	own.Remote = ConfirmedRef(remoteID)
	own.PendingAction = ""
	own.LastSync = now
	own.LastSyncAction = SyncActionPush
	own.LastSyncStatus = StatusSuccess
	own.LastSyncMessage = ""
	updated, err := e.objectMaps.UpdateObjectMap(ctx, *own)
	if err != nil {
		return SyncResult{}, err
	}

	if err := e.guard.Clear(ctx, DirectionPush, pendingValue); err != nil {
		return SyncResult{}, err
	}
	if err := e.guard.Mark(ctx, DirectionPush, remoteID, e.remoteLockStamp(ctx, fieldmap, remoteID, detail, now), ttl); err != nil {
		return SyncResult{}, err
	}
	if forced && e.flags != nil {
		if err := e.flags.ClearMissingRequiredData(ctx, objectType, localID); err != nil {
			return SyncResult{}, err
		}
	}

	result := SyncResult{
		Title:    fmt.Sprintf("Success: %s %s %s for %s %d", operationPastTense(operation), fieldmap.RemoteObjectType, remoteID, objectType, localID),
		Message:  fmt.Sprintf("Pushed on %s trigger through fieldmap %q.", trigger.String(), fieldmap.Label),
		Trigger:  trigger,
		ParentID: localID,
		Status:   StatusSuccess,
	}
	e.hooks.firePostPush(ctx, operation, response, SyncedObject{
		Record:    record,
		Fieldmap:  fieldmap,
		ObjectMap: updated,
		Err:       nil,
	})
	e.recordResult(ctx, result)
	return result, nil
}

// syncUpdate pushes a mapped record. A mapping whose remote counterpart is
// still pending yields a notice; a record whose last successful sync is
// newer than its own modification time is a stale write and is skipped. A
// failed remote call still refreshes the mapping's bookkeeping and the push
// lock so the pull direction does not echo the attempt back.
func (e *Engine) syncUpdate(ctx context.Context, objectType string, localID int64, record Record, fieldmap Fieldmap, trigger SyncTrigger, own *MappingObject) (SyncResult, error) {
	remoteID, confirmed := own.Remote.ID()
	if !confirmed {
		result := SyncResult{
			Title:    fmt.Sprintf("Notice: %s %d not pushed, remote create is still pending", objectType, localID),
			Message:  "The record will be pushed once the pending create resolves.",
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusNotice,
		}
		e.recordResult(ctx, result)
		return result, nil
	}

	if !record.ModifiedAt.IsZero() && own.LastSync.After(record.ModifiedAt) {
		result := SyncResult{
			Title: fmt.Sprintf("Notice: %s %d not pushed, local copy is stale", objectType, localID),
			Message: fmt.Sprintf("The mapping was synced at %s, after the record's modification at %s.",
				own.LastSync.Format(time.RFC3339), record.ModifiedAt.Format(time.RFC3339)),
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusNotice,
		}
		e.recordResult(ctx, result)
		return result, nil
	}

	params := TranslateParams(fieldmap, record)
	params = e.hooks.applyParams(ctx, params, record, fieldmap, trigger, false)
	params = e.hooks.applyUpdateParams(ctx, params, remoteID, record, fieldmap)
	if params.Empty() {
		return SyncResult{}, nil
	}

	ttl := e.lockTTL(ctx)
	if err := e.guard.Acquire(ctx, DirectionPush, remoteID, ttl); err != nil {
		return SyncResult{}, err
	}

	e.hooks.firePrePush(ctx, "update", remoteID, record, fieldmap, params)
	response, callErr := e.remote.Update(ctx, fieldmap.RemoteObjectType, remoteID, params.Fields)

	now := e.now()
	failed := callErr != nil || response.StatusCode >= http.StatusMultipleChoices

	own.LastSync = now
	own.LastSyncAction = SyncActionPush
	if failed {
		own.LastSyncStatus = StatusError
		if callErr != nil {
			own.LastSyncMessage = callErr.Error()
		} else {
			own.LastSyncMessage = remoteFailureMessage(response)
		}
	} else {
		own.LastSyncStatus = StatusSuccess
		own.LastSyncMessage = ""
	}
	updated, err := e.objectMaps.UpdateObjectMap(ctx, *own)
	if err != nil {
		return SyncResult{}, err
	}

	// Refresh the mark on failure too; the attempt may have partially landed
	// remotely and must not echo back as a pull.
	if err := e.guard.Mark(ctx, DirectionPush, remoteID, e.remoteLockStamp(ctx, fieldmap, remoteID, response, now), ttl); err != nil {
		return SyncResult{}, err
	}

	var result SyncResult
	if failed {
		result = SyncResult{
			Title:    fmt.Sprintf("Error: could not update %s %s for %s %d", fieldmap.RemoteObjectType, remoteID, objectType, localID),
			Message:  own.LastSyncMessage,
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusError,
		}
	} else {
		result = SyncResult{
			Title:    fmt.Sprintf("Success: updated %s %s for %s %d", fieldmap.RemoteObjectType, remoteID, objectType, localID),
			Message:  fmt.Sprintf("Pushed on %s trigger through fieldmap %q.", trigger.String(), fieldmap.Label),
			Trigger:  trigger,
			ParentID: localID,
			Status:   StatusSuccess,
		}
	}
	e.hooks.firePostPush(ctx, "update", response, SyncedObject{
		Record:    record,
		Fieldmap:  fieldmap,
		ObjectMap: updated,
		Err:       callErr,
	})
	e.recordResult(ctx, result)
	return result, nil
}

// mapForFieldmap picks the mapping row owned by the fieldmap, falling back
// to the first row when none carries the fieldmap id.
func mapForFieldmap(maps []MappingObject, fieldmapID int64) *MappingObject {
	for i := range maps {
		if maps[i].FieldmapID == fieldmapID {
			return &maps[i]
		}
	}
	if len(maps) > 0 {
		return &maps[0]
	}
	return nil
}

func otherLocalIDs(siblings []MappingObject, ownID string) []int64 {
	others := []int64{}
	for _, sibling := range siblings {
		if sibling.ID == ownID {
			continue
		}
		others = append(others, sibling.LocalID)
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })
	return others
}

func joinInt64s(values []int64) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, fmt.Sprint(value))
	}
	return strings.Join(parts, ", ")
}

func operationPastTense(operation string) string {
	switch operation {
	case "create":
		return "created"
	case "upsert":
		return "upserted"
	case "update":
		return "updated"
	default:
		return operation
	}
}

func remoteFailureMessage(response RemoteResponse) string {
	message := strings.TrimSpace(response.Message)
	code := strings.TrimSpace(response.ErrorCode)
	switch {
	case message != "" && code != "":
		return fmt.Sprintf("%s: %s", code, message)
	case message != "":
		return message
	case code != "":
		return code
	default:
		return fmt.Sprintf("remote call failed with status %d", response.StatusCode)
	}
}

// remoteLockStamp resolves the payload stored on a push lock: the remote
// record's own last-modified time, which the pull direction compares
// against incoming modification timestamps. A response without one costs a
// fresh read; the push time is the stamp of last resort.
func (e *Engine) remoteLockStamp(ctx context.Context, fieldmap Fieldmap, remoteID string, response RemoteResponse, fallback time.Time) string {
	if stamp, ok := response.DataLastModified(); ok {
		return stamp.UTC().Format(time.RFC3339)
	}
	if read, err := e.remote.Read(ctx, fieldmap.RemoteObjectType, remoteID, ReadOptions{NoCache: true}); err == nil {
		if stamp, ok := read.DataLastModified(); ok {
			return stamp.UTC().Format(time.RFC3339)
		}
	}
	return fallback.UTC().Format(time.RFC3339)
}
