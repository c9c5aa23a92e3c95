package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-crm-sync/core"
)

func (r *fieldmapRecord) toDomain() core.Fieldmap {
	if r == nil {
		return core.Fieldmap{}
	}
	rules := make([]core.FieldRule, 0, len(r.FieldRules))
	for _, rule := range r.FieldRules {
		rules = append(rules, core.FieldRule{
			LocalField:  rule.LocalField,
			RemoteField: rule.RemoteField,
			Prematch:    rule.Prematch,
			Key:         rule.Key,
		})
	}
	return core.Fieldmap{
		ID:                r.ID,
		Label:             r.Label,
		LocalObjectType:   r.LocalObjectType,
		RemoteObjectType:  r.RemoteObjectType,
		Triggers:          triggersFromStrings(r.PushTriggers),
		PushAsync:         r.PushAsync,
		PushDrafts:        r.PushDrafts,
		RecordTypeDefault: r.RecordTypeDefault,
		Fields:            rules,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newFieldmapRecord(fieldmap core.Fieldmap, now time.Time) *fieldmapRecord {
	rules := make([]fieldRuleJSON, 0, len(fieldmap.Fields))
	for _, rule := range fieldmap.Fields {
		rules = append(rules, fieldRuleJSON{
			LocalField:  rule.LocalField,
			RemoteField: rule.RemoteField,
			Prematch:    rule.Prematch,
			Key:         rule.Key,
		})
	}
	return &fieldmapRecord{
		ID:                fieldmap.ID,
		Label:             strings.TrimSpace(fieldmap.Label),
		LocalObjectType:   strings.TrimSpace(fieldmap.LocalObjectType),
		RemoteObjectType:  strings.TrimSpace(fieldmap.RemoteObjectType),
		PushTriggers:      triggersToStrings(fieldmap.Triggers),
		PushAsync:         fieldmap.PushAsync,
		PushDrafts:        fieldmap.PushDrafts,
		RecordTypeDefault: strings.TrimSpace(fieldmap.RecordTypeDefault),
		FieldRules:        rules,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func triggersToStrings(set core.TriggerSet) []string {
	out := []string{}
	for _, trigger := range set.List() {
		out = append(out, trigger.String())
	}
	return out
}

// triggersFromStrings drops values it cannot parse; a row edited by hand
// should not make the whole fieldmap unreadable.
func triggersFromStrings(values []string) core.TriggerSet {
	var set core.TriggerSet
	for _, value := range values {
		trigger, err := core.ParseTrigger(value)
		if err != nil {
			continue
		}
		set = set.Add(trigger)
	}
	return set
}

func (r *objectMapRecord) toDomain() core.MappingObject {
	if r == nil {
		return core.MappingObject{}
	}
	out := core.MappingObject{
		ID:              r.ID,
		LocalObjectType: r.LocalObjectType,
		LocalID:         r.LocalID,
		FieldmapID:      r.FieldmapID,
		Remote:          core.RestoreRemoteRef(r.RemoteValue, r.RemotePending),
		LastSyncAction:  r.LastSyncAction,
		LastSyncStatus:  core.SyncStatus(r.LastSyncStatus),
		LastSyncMessage: r.LastSyncMessage,
		PendingAction:   r.PendingAction,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.LastSync != nil {
		out.LastSync = *r.LastSync
	}
	return out
}

// newObjectMapRecord stamps last_sync at creation time; the row itself is
// the trace of the first push attempt.
func newObjectMapRecord(in core.CreateObjectMapInput, now time.Time) *objectMapRecord {
	return &objectMapRecord{
		LocalObjectType: strings.TrimSpace(in.LocalObjectType),
		LocalID:         in.LocalID,
		FieldmapID:      in.FieldmapID,
		RemoteValue:     in.Remote.Value(),
		RemotePending:   in.Remote.Pending(),
		LastSync:        &now,
		LastSyncAction:  strings.TrimSpace(in.LastSyncAction),
		LastSyncStatus:  string(in.LastSyncStatus),
		LastSyncMessage: in.LastSyncMessage,
		PendingAction:   strings.TrimSpace(in.PendingAction),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (r *syncResultRecord) toDomain() core.SyncResult {
	if r == nil {
		return core.SyncResult{}
	}
	trigger, _ := core.ParseTrigger(r.Trigger)
	return core.SyncResult{
		Title:    r.Title,
		Message:  r.Message,
		Trigger:  trigger,
		ParentID: r.ParentID,
		Status:   core.SyncStatus(r.Status),
	}
}

func newSyncResultRecord(result core.SyncResult, now time.Time) *syncResultRecord {
	return &syncResultRecord{
		Title:     strings.TrimSpace(result.Title),
		Message:   result.Message,
		Trigger:   result.Trigger.String(),
		ParentID:  result.ParentID,
		Status:    string(result.Status),
		CreatedAt: now,
	}
}
