package core

import (
	"context"
	"fmt"
	"strings"
)

// TriggerSources names the local-store event identifiers that map onto each
// trigger for one object type. Empty entries leave that trigger unmapped.
type TriggerSources struct {
	Create string
	Update string
	Delete string
}

// Dispatcher translates raw local-store change events into pushes. It is the
// integration seam for entity-store event hooks: register the event names
// each object type emits, then feed events straight in.
type Dispatcher struct {
	engine  *Engine
	sources map[string]TriggerSources
}

func NewDispatcher(engine *Engine, sources map[string]TriggerSources) (*Dispatcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("core: engine is required")
	}
	normalized := make(map[string]TriggerSources, len(sources))
	for objectType, entry := range sources {
		objectType = strings.TrimSpace(objectType)
		if objectType == "" {
			return nil, fmt.Errorf("core: dispatcher source has an empty object type")
		}
		if strings.TrimSpace(entry.Create) == "" &&
			strings.TrimSpace(entry.Update) == "" &&
			strings.TrimSpace(entry.Delete) == "" {
			return nil, fmt.Errorf("core: dispatcher source %q maps no events", objectType)
		}
		normalized[objectType] = entry
	}
	return &Dispatcher{engine: engine, sources: normalized}, nil
}

// ResolveTrigger maps an event name onto a trigger for the object type.
func (d *Dispatcher) ResolveTrigger(objectType string, event string) (SyncTrigger, bool) {
	if d == nil {
		return 0, false
	}
	entry, ok := d.sources[strings.TrimSpace(objectType)]
	if !ok {
		return 0, false
	}
	event = strings.TrimSpace(event)
	if event == "" {
		return 0, false
	}
	switch event {
	case entry.Create:
		return TriggerCreate, true
	case entry.Update:
		return TriggerUpdate, true
	case entry.Delete:
		return TriggerDelete, true
	default:
		return 0, false
	}
}

// Dispatch pushes the record named by a change event. Unregistered events
// are ignored rather than rejected so callers can forward their full event
// stream.
func (d *Dispatcher) Dispatch(ctx context.Context, objectType string, event string, localID int64) ([]SyncResult, error) {
	if d == nil || d.engine == nil {
		return nil, fmt.Errorf("core: dispatcher is not configured")
	}
	trigger, ok := d.ResolveTrigger(objectType, event)
	if !ok {
		return nil, nil
	}
	return d.engine.PushRecordByID(ctx, objectType, localID, trigger, false)
}
