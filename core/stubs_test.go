package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

var testClock = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type stubLocalStore struct {
	structures map[string]TableStructure
	records    map[string]Record
	err        error
}

func newStubLocalStore() *stubLocalStore {
	return &stubLocalStore{
		structures: map[string]TableStructure{},
		records:    map[string]Record{},
	}
}

func (s *stubLocalStore) addRecord(objectType string, localID int64, record Record) {
	if _, ok := s.structures[objectType]; !ok {
		s.structures[objectType] = TableStructure{ObjectType: objectType, IDField: "id"}
	}
	record.ObjectType = objectType
	if record.Fields == nil {
		record.Fields = map[string]any{}
	}
	record.Fields["id"] = localID
	s.records[recordKey(objectType, localID)] = record
}

func (s *stubLocalStore) TableStructure(_ context.Context, objectType string) (TableStructure, error) {
	if s.err != nil {
		return TableStructure{}, s.err
	}
	if structure, ok := s.structures[objectType]; ok {
		return structure, nil
	}
	return TableStructure{ObjectType: objectType, IDField: "id"}, nil
}

func (s *stubLocalStore) GetRecord(_ context.Context, objectType string, localID int64, includeDeleted bool) (Record, error) {
	if s.err != nil {
		return Record{}, s.err
	}
	record, ok := s.records[recordKey(objectType, localID)]
	if !ok {
		return Record{}, fmt.Errorf("record %s %d not found", objectType, localID)
	}
	if record.Deleted && !includeDeleted {
		return Record{}, fmt.Errorf("record %s %d not found", objectType, localID)
	}
	return record, nil
}

func recordKey(objectType string, localID int64) string {
	return fmt.Sprintf("%s:%d", objectType, localID)
}

type stubFieldmapStore struct {
	fieldmaps []Fieldmap
	err       error
}

func (s *stubFieldmapStore) GetFieldmap(_ context.Context, id int64) (Fieldmap, error) {
	if s.err != nil {
		return Fieldmap{}, s.err
	}
	for _, fieldmap := range s.fieldmaps {
		if fieldmap.ID == id {
			return fieldmap, nil
		}
	}
	return Fieldmap{}, ErrFieldmapNotFound
}

func (s *stubFieldmapStore) ListFieldmaps(_ context.Context, filter FieldmapFilter) ([]Fieldmap, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []Fieldmap{}
	for _, fieldmap := range s.fieldmaps {
		if filter.LocalObjectType == "" || fieldmap.LocalObjectType == filter.LocalObjectType {
			out = append(out, fieldmap)
		}
	}
	return out, nil
}

type memoryObjectMapStore struct {
	mu   sync.Mutex
	seq  int
	rows map[string]MappingObject
	err  error
}

func newMemoryObjectMapStore() *memoryObjectMapStore {
	return &memoryObjectMapStore{rows: map[string]MappingObject{}}
}

func (s *memoryObjectMapStore) CreateObjectMap(_ context.Context, in CreateObjectMapInput) (MappingObject, error) {
	if s.err != nil {
		return MappingObject{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	row := MappingObject{
		ID:              fmt.Sprintf("map-%d", s.seq),
		LocalObjectType: in.LocalObjectType,
		LocalID:         in.LocalID,
		FieldmapID:      in.FieldmapID,
		Remote:          in.Remote,
		LastSync:        testClock,
		LastSyncAction:  in.LastSyncAction,
		LastSyncStatus:  in.LastSyncStatus,
		LastSyncMessage: in.LastSyncMessage,
		PendingAction:   in.PendingAction,
		CreatedAt:       testClock,
		UpdatedAt:       testClock,
	}
	s.rows[row.ID] = row
	return row, nil
}

func (s *memoryObjectMapStore) UpdateObjectMap(_ context.Context, objectMap MappingObject) (MappingObject, error) {
	if s.err != nil {
		return MappingObject{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[objectMap.ID]; !ok {
		return MappingObject{}, ErrObjectMapNotFound
	}
	objectMap.UpdatedAt = testClock
	s.rows[objectMap.ID] = objectMap
	return objectMap, nil
}

func (s *memoryObjectMapStore) DeleteObjectMap(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrObjectMapNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memoryObjectMapStore) GetObjectMapsByLocal(_ context.Context, objectType string, localID int64) ([]MappingObject, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []MappingObject{}
	for _, row := range s.rows {
		if row.LocalObjectType == objectType && row.LocalID == localID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memoryObjectMapStore) GetObjectMapsByRemote(_ context.Context, remoteValue string) ([]MappingObject, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []MappingObject{}
	for _, row := range s.rows {
		if row.Remote.Value() == remoteValue {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memoryObjectMapStore) seed(row MappingObject) MappingObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if row.ID == "" {
		row.ID = fmt.Sprintf("map-%d", s.seq)
	}
	s.rows[row.ID] = row
	return row
}

func (s *memoryObjectMapStore) get(id string) (MappingObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	return row, ok
}

func (s *memoryObjectMapStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type stubFlagStore struct {
	mu         sync.Mutex
	flags      map[string]bool
	setCalls   int
	clearCalls int
}

func newStubFlagStore() *stubFlagStore {
	return &stubFlagStore{flags: map[string]bool{}}
}

func (s *stubFlagStore) MissingRequiredData(_ context.Context, objectType string, localID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[recordKey(objectType, localID)], nil
}

func (s *stubFlagStore) SetMissingRequiredData(_ context.Context, objectType string, localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[recordKey(objectType, localID)] = true
	s.setCalls++
	return nil
}

func (s *stubFlagStore) ClearMissingRequiredData(_ context.Context, objectType string, localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, recordKey(objectType, localID))
	s.clearCalls++
	return nil
}

type stubQueue struct {
	mu        sync.Mutex
	payloads  []QueuePayload
	err       error
	frequency time.Duration
}

func (q *stubQueue) Enqueue(_ context.Context, payload QueuePayload) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *stubQueue) FirstFrequency(context.Context) (time.Duration, error) {
	return q.frequency, nil
}

type remoteCall struct {
	op         string
	objectType string
	remoteID   string
	keyField   string
	keyValue   string
	fields     map[string]any
}

type stubRemote struct {
	mu           sync.Mutex
	unauthorized bool
	responses    map[string]RemoteResponse
	errs         map[string]error
	calls        []remoteCall
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		responses: map[string]RemoteResponse{
			"create": {StatusCode: 201, Data: map[string]any{"id": "SF001"}},
			"update": {StatusCode: 204},
			"upsert": {StatusCode: 201, Data: map[string]any{"id": "SF001"}},
			"delete": {StatusCode: 204},
			"read":   {StatusCode: 200, Data: map[string]any{"id": "SF001"}},
		},
		errs: map[string]error{},
	}
}

func (r *stubRemote) record(call remoteCall) (RemoteResponse, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	response := r.responses[call.op]
	err := r.errs[call.op]
	r.mu.Unlock()
	return response, err
}

func (r *stubRemote) callsFor(op string) []remoteCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []remoteCall{}
	for _, call := range r.calls {
		if call.op == op {
			out = append(out, call)
		}
	}
	return out
}

func (r *stubRemote) IsAuthorized(context.Context) bool {
	return !r.unauthorized
}

func (r *stubRemote) Create(_ context.Context, objectType string, fields map[string]any) (RemoteResponse, error) {
	return r.record(remoteCall{op: "create", objectType: objectType, fields: fields})
}

func (r *stubRemote) Update(_ context.Context, objectType string, remoteID string, fields map[string]any) (RemoteResponse, error) {
	return r.record(remoteCall{op: "update", objectType: objectType, remoteID: remoteID, fields: fields})
}

func (r *stubRemote) Upsert(_ context.Context, objectType string, keyField string, keyValue string, fields map[string]any) (RemoteResponse, error) {
	return r.record(remoteCall{op: "upsert", objectType: objectType, keyField: keyField, keyValue: keyValue, fields: fields})
}

func (r *stubRemote) Delete(_ context.Context, objectType string, remoteID string) (RemoteResponse, error) {
	return r.record(remoteCall{op: "delete", objectType: objectType, remoteID: remoteID})
}

func (r *stubRemote) Read(_ context.Context, objectType string, remoteID string, _ ReadOptions) (RemoteResponse, error) {
	return r.record(remoteCall{op: "read", objectType: objectType, remoteID: remoteID})
}

func (r *stubRemote) ReadByExternalID(_ context.Context, objectType string, keyField string, keyValue string, _ ReadOptions) (RemoteResponse, error) {
	return r.record(remoteCall{op: "read_external", objectType: objectType, keyField: keyField, keyValue: keyValue})
}

type captureRecorder struct {
	mu      sync.Mutex
	results []SyncResult
	err     error
}

func (r *captureRecorder) Record(_ context.Context, result SyncResult) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func (r *captureRecorder) recorded() []SyncResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SyncResult(nil), r.results...)
}

// fixtures bundles the collaborator stubs an engine test wires together.
type fixtures struct {
	local      *stubLocalStore
	fieldmaps  *stubFieldmapStore
	objectMaps *memoryObjectMapStore
	flags      *stubFlagStore
	locks      *MemoryLockStore
	queue      *stubQueue
	remote     *stubRemote
	recorder   *captureRecorder
}

func newFixtures() *fixtures {
	return &fixtures{
		local:      newStubLocalStore(),
		fieldmaps:  &stubFieldmapStore{},
		objectMaps: newMemoryObjectMapStore(),
		flags:      newStubFlagStore(),
		locks:      NewMemoryLockStore(),
		queue:      &stubQueue{},
		remote:     newStubRemote(),
		recorder:   &captureRecorder{},
	}
}

func newTestEngine(t *testing.T, fx *fixtures, extra ...Option) *Engine {
	t.Helper()
	options := []Option{
		WithLocalStore(fx.local),
		WithFieldmapStore(fx.fieldmaps),
		WithObjectMapStore(fx.objectMaps),
		WithFlagStore(fx.flags),
		WithLockStore(fx.locks),
		WithTaskQueue(fx.queue),
		WithRemoteAPI(fx.remote),
		WithResultRecorder(fx.recorder),
		WithClock(func() time.Time { return testClock }),
	}
	options = append(options, extra...)
	engine, err := NewEngine(Config{}, options...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func contactFieldmap(id int64) Fieldmap {
	return Fieldmap{
		ID:               id,
		Label:            "contact-to-remote",
		LocalObjectType:  "contact",
		RemoteObjectType: "Contact",
		Triggers:         Triggers(TriggerCreate, TriggerUpdate, TriggerDelete),
		Fields: []FieldRule{
			{LocalField: "email", RemoteField: "Email"},
			{LocalField: "last_name", RemoteField: "LastName"},
		},
	}
}
