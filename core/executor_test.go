package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func seedContact(fx *fixtures, localID int64, modifiedAt time.Time) Record {
	fx.local.addRecord("contact", localID, Record{
		Fields: map[string]any{
			"email":     "ada@example.com",
			"last_name": "Lovelace",
		},
		ModifiedAt: modifiedAt,
	})
	return fx.local.records[recordKey("contact", localID)]
}

func TestSyncCreateSuccess(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, testClock.Add(-time.Hour))
	engine := newTestEngine(t, fx)
	fieldmap := contactFieldmap(1)

	result, err := engine.Sync(context.Background(), "contact", record, fieldmap, TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	if result.ParentID != 7 {
		t.Errorf("ParentID = %d", result.ParentID)
	}

	calls := fx.remote.callsFor("create")
	if len(calls) != 1 {
		t.Fatalf("create calls = %d", len(calls))
	}
	if calls[0].objectType != "Contact" || calls[0].fields["Email"] != "ada@example.com" {
		t.Errorf("create call = %+v", calls[0])
	}

	if fx.objectMaps.count() != 1 {
		t.Fatalf("object map rows = %d", fx.objectMaps.count())
	}
	maps, _ := fx.objectMaps.GetObjectMapsByLocal(context.Background(), "contact", 7)
	row := maps[0]
	if id, ok := row.Remote.ID(); !ok || id != "SF001" {
		t.Errorf("remote ref = %+v", row.Remote)
	}
	if row.PendingAction != "" {
		t.Errorf("pending action not cleared: %q", row.PendingAction)
	}
	if row.LastSyncAction != SyncActionPush || row.LastSyncStatus != StatusSuccess {
		t.Errorf("bookkeeping = %+v", row)
	}
	if !row.LastSync.Equal(testClock) {
		t.Errorf("LastSync = %v", row.LastSync)
	}

	active, err := engine.Guard().Active(context.Background(), DirectionPush, "SF001")
	if err != nil || !active {
		t.Errorf("push lock on remote id = %v, %v", active, err)
	}
	// The create response and the follow-up read carry no remote timestamp,
	// so the stamp falls back to the push time.
	value, _, _ := engine.Guard().Value(context.Background(), DirectionPush, "SF001")
	if value != testClock.UTC().Format(time.RFC3339) {
		t.Errorf("lock stamp = %q", value)
	}
	if len(fx.remote.callsFor("read")) != 1 {
		t.Errorf("read calls = %d", len(fx.remote.callsFor("read")))
	}
}

func TestSyncCreateLockStampUsesRemoteLastModified(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, testClock.Add(-time.Hour))
	fx.remote.responses["create"] = RemoteResponse{
		StatusCode: 201,
		Data: map[string]any{
			"id":               "SF001",
			"LastModifiedDate": "2026-08-01T10:30:00.000+0000",
		},
	}
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}

	value, ok, _ := engine.Guard().Value(context.Background(), DirectionPush, "SF001")
	if !ok || value != "2026-08-01T10:30:00Z" {
		t.Errorf("lock stamp = %q, %v", value, ok)
	}
	// The response already carried the timestamp; no extra read goes out.
	if len(fx.remote.callsFor("read")) != 0 {
		t.Errorf("read calls = %d", len(fx.remote.callsFor("read")))
	}
}

func TestSyncUpdateLockStampReadsRemote(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, testClock)
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
		LastSync:        testClock.Add(-2 * time.Hour),
	})
	fx.remote.responses["read"] = RemoteResponse{
		StatusCode: 200,
		Data: map[string]any{
			"id":               "SF001",
			"LastModifiedDate": "2026-08-01T11:45:00Z",
		},
	}
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerUpdate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}

	// The 204 update response has no body, so the stamp comes from a fresh
	// read of the remote record.
	if len(fx.remote.callsFor("read")) != 1 {
		t.Fatalf("read calls = %d", len(fx.remote.callsFor("read")))
	}
	value, ok, _ := engine.Guard().Value(context.Background(), DirectionPush, "SF001")
	if !ok || value != "2026-08-01T11:45:00Z" {
		t.Errorf("lock stamp = %q, %v", value, ok)
	}
}

func TestSyncCreateEmptyParamsSkipsRemote(t *testing.T) {
	fx := newFixtures()
	fx.local.addRecord("contact", 7, Record{})
	record := fx.local.records["contact:7"]
	engine := newTestEngine(t, fx)

	fieldmap := contactFieldmap(1)
	result, err := engine.Sync(context.Background(), "contact", record, fieldmap, TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !result.IsZero() {
		t.Fatalf("result = %+v", result)
	}
	if len(fx.remote.calls) != 0 {
		t.Errorf("remote calls = %d", len(fx.remote.calls))
	}
	if fx.objectMaps.count() != 0 {
		t.Errorf("object map rows = %d", fx.objectMaps.count())
	}
}

func TestSyncCreateUpsertByPrematch(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	engine := newTestEngine(t, fx)

	fieldmap := contactFieldmap(1)
	fieldmap.Fields[0].Prematch = true

	result, err := engine.Sync(context.Background(), "contact", record, fieldmap, TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}

	calls := fx.remote.callsFor("upsert")
	if len(calls) != 1 {
		t.Fatalf("upsert calls = %d", len(calls))
	}
	if calls[0].keyField != "Email" || calls[0].keyValue != "ada%40example.com" {
		t.Errorf("upsert key = %s:%s", calls[0].keyField, calls[0].keyValue)
	}
	if len(fx.remote.callsFor("create")) != 0 {
		t.Error("plain create issued despite prematch rule")
	}
}

func TestSyncCreateUpsertNoContentRefetchesID(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.remote.responses["upsert"] = RemoteResponse{StatusCode: 204}
	fx.remote.responses["read_external"] = RemoteResponse{StatusCode: 200, Data: map[string]any{"id": "SF777"}}
	engine := newTestEngine(t, fx)

	fieldmap := contactFieldmap(1)
	fieldmap.Fields[0].Key = true

	result, err := engine.Sync(context.Background(), "contact", record, fieldmap, TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	if len(fx.remote.callsFor("read_external")) != 1 {
		t.Fatal("expected an external-id read after the 204 upsert")
	}
	maps, _ := fx.objectMaps.GetObjectMapsByLocal(context.Background(), "contact", 7)
	if id, ok := maps[0].Remote.ID(); !ok || id != "SF777" {
		t.Errorf("remote ref = %+v", maps[0].Remote)
	}
}

func TestSyncCreateUpsertAmbiguousMatch(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.remote.responses["upsert"] = RemoteResponse{StatusCode: 300}
	engine := newTestEngine(t, fx)

	fieldmap := contactFieldmap(1)
	fieldmap.Fields[0].Prematch = true

	result, err := engine.Sync(context.Background(), "contact", record, fieldmap, TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusError {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Message, "(Email:ada%40example.com)") {
		t.Errorf("message missing match criteria: %q", result.Message)
	}
	maps, _ := fx.objectMaps.GetObjectMapsByLocal(context.Background(), "contact", 7)
	if maps[0].LastSyncStatus != StatusError {
		t.Errorf("map row status = %s", maps[0].LastSyncStatus)
	}
	if !maps[0].Remote.Pending() {
		t.Error("remote ref confirmed despite failed upsert")
	}
}

func TestSyncCreateMissingRequiredDataSetsFlag(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.remote.responses["create"] = RemoteResponse{
		StatusCode: 400,
		ErrorCode:  "REQUIRED_FIELD_MISSING",
		Message:    "Required fields are missing: [LastName]",
	}
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerCreate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusError {
		t.Fatalf("result = %+v", result)
	}
	if fx.flags.setCalls != 1 {
		t.Errorf("flag set calls = %d", fx.flags.setCalls)
	}
	flagged, _ := fx.flags.MissingRequiredData(context.Background(), "contact", 7)
	if !flagged {
		t.Error("missing-required-data flag not set")
	}
}

func TestSyncFlaggedRecordRetriesCreateAndClearsFlag(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	_ = fx.flags.SetMissingRequiredData(context.Background(), "contact", 7)
	existing := fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          NewPendingRef(),
		PendingAction:   PendingActionCreated,
	})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerUpdate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	if len(fx.remote.callsFor("create")) != 1 {
		t.Fatal("flagged record did not take the create branch")
	}
	if len(fx.remote.callsFor("update")) != 0 {
		t.Fatal("flagged record hit the update branch")
	}
	if flagged, _ := fx.flags.MissingRequiredData(context.Background(), "contact", 7); flagged {
		t.Error("flag not cleared after successful retry")
	}
	row, _ := fx.objectMaps.get(existing.ID)
	if id, ok := row.Remote.ID(); !ok || id != "SF001" {
		t.Errorf("remote ref = %+v", row.Remote)
	}
}

func TestSyncUpdateSuccess(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, testClock.Add(-time.Hour))
	seeded := fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
		LastSync:        testClock.Add(-2 * time.Hour),
	})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerUpdate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}

	calls := fx.remote.callsFor("update")
	if len(calls) != 1 || calls[0].remoteID != "SF001" {
		t.Fatalf("update calls = %+v", calls)
	}
	row, _ := fx.objectMaps.get(seeded.ID)
	if row.LastSyncStatus != StatusSuccess || !row.LastSync.Equal(testClock) {
		t.Errorf("bookkeeping = %+v", row)
	}
	if active, _ := engine.Guard().Active(context.Background(), DirectionPush, "SF001"); !active {
		t.Error("push lock missing after update")
	}
}

func TestSyncUpdatePendingRefYieldsNotice(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          NewPendingRef(),
		PendingAction:   PendingActionCreated,
	})
	engine := newTestEngine(t, fx)

	// No missing-required-data flag, so the pending mapping routes the
	// update to the notice path rather than a second create.
	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerUpdate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusNotice {
		t.Fatalf("result = %+v", result)
	}
	if len(fx.remote.calls) != 0 {
		t.Errorf("remote calls = %d", len(fx.remote.calls))
	}
}

func TestSyncUpdateStaleWriteSkipped(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, testClock.Add(-time.Hour))
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
		LastSync:        testClock.Add(-time.Minute),
	})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerUpdate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusNotice {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Title, "stale") {
		t.Errorf("title = %q", result.Title)
	}
	if len(fx.remote.callsFor("update")) != 0 {
		t.Error("stale write still pushed")
	}
}

func TestSyncUpdateFailureStillRefreshesBookkeeping(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, testClock.Add(-time.Hour))
	seeded := fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
		LastSync:        testClock.Add(-2 * time.Hour),
	})
	fx.remote.errs["update"] = errors.New("remote transport failure")
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerUpdate)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusError {
		t.Fatalf("result = %+v", result)
	}

	row, _ := fx.objectMaps.get(seeded.ID)
	if row.LastSyncStatus != StatusError || !row.LastSync.Equal(testClock) {
		t.Errorf("bookkeeping = %+v", row)
	}
	if row.LastSyncMessage != "remote transport failure" {
		t.Errorf("message = %q", row.LastSyncMessage)
	}
	if active, _ := engine.Guard().Active(context.Background(), DirectionPush, "SF001"); !active {
		t.Error("push lock not refreshed after failed update")
	}
}

func TestSyncDeleteWithoutMappingIsNoop(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerDelete)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !result.IsZero() {
		t.Fatalf("result = %+v", result)
	}
	if len(fx.remote.calls) != 0 {
		t.Errorf("remote calls = %d", len(fx.remote.calls))
	}
}

func TestSyncDeletePendingMappingRemovesRowOnly(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          NewPendingRef(),
		PendingAction:   PendingActionCreated,
	})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerDelete)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !result.IsZero() {
		t.Fatalf("result = %+v", result)
	}
	if fx.objectMaps.count() != 0 {
		t.Error("pending mapping row survived delete")
	}
	if len(fx.remote.callsFor("delete")) != 0 {
		t.Error("remote delete issued for a pending ref")
	}
}

func TestSyncDeleteFanInKeepsRemoteRecord(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	own := fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
	})
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         9,
		FieldmapID:      2,
		Remote:          ConfirmedRef("SF001"),
	})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerDelete)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusNotice {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Message, "9") {
		t.Errorf("message missing sibling id: %q", result.Message)
	}
	if len(fx.remote.callsFor("delete")) != 0 {
		t.Error("remote delete issued while other records still map to it")
	}
	if _, ok := fx.objectMaps.get(own.ID); ok {
		t.Error("own mapping row survived")
	}
	if fx.objectMaps.count() != 1 {
		t.Errorf("rows = %d", fx.objectMaps.count())
	}
}

func TestSyncDeleteSuccess(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
	})
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerDelete)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	calls := fx.remote.callsFor("delete")
	if len(calls) != 1 || calls[0].remoteID != "SF001" {
		t.Fatalf("delete calls = %+v", calls)
	}
	if fx.objectMaps.count() != 0 {
		t.Error("mapping row survived successful delete")
	}
	if active, _ := engine.Guard().Active(context.Background(), DirectionPush, "SF001"); !active {
		t.Error("push lock missing for delete")
	}
}

func TestSyncDeleteRemoteFailureStillRemovesRow(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
	})
	fx.remote.responses["delete"] = RemoteResponse{StatusCode: 404, ErrorCode: "NOT_FOUND", Message: "entity is deleted"}
	engine := newTestEngine(t, fx)

	result, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerDelete)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusError {
		t.Fatalf("result = %+v", result)
	}
	if fx.objectMaps.count() != 0 {
		t.Error("mapping row survived failed delete")
	}
}

func TestSyncUnauthorizedRemote(t *testing.T) {
	fx := newFixtures()
	record := seedContact(fx, 7, time.Time{})
	fx.remote.unauthorized = true
	engine := newTestEngine(t, fx)

	_, err := engine.Sync(context.Background(), "contact", record, contactFieldmap(1), TriggerCreate)
	if !errors.Is(err, ErrRemoteUnauthorized) {
		t.Fatalf("err = %v", err)
	}
}

func TestSyncRecordByID(t *testing.T) {
	fx := newFixtures()
	seedContact(fx, 7, time.Time{})
	fx.fieldmaps.fieldmaps = []Fieldmap{contactFieldmap(1)}
	engine := newTestEngine(t, fx)

	result, err := engine.SyncRecordByID(context.Background(), "contact", 7, 1, TriggerCreate)
	if err != nil {
		t.Fatalf("SyncRecordByID: %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("result = %+v", result)
	}

	if _, err := engine.SyncRecordByID(context.Background(), "contact", 7, 99, TriggerCreate); err == nil {
		t.Fatal("expected an error for an unknown fieldmap")
	}
}
