package core

import (
	"context"
	"testing"
)

func TestPushAllowedTriggerSet(t *testing.T) {
	fx := newFixtures()
	fx.local.addRecord("contact", 7, Record{})
	engine := newTestEngine(t, fx)

	fieldmap := contactFieldmap(1)
	fieldmap.Triggers = Triggers(TriggerCreate, TriggerUpdate)

	allowed, err := engine.PushAllowed(context.Background(), "contact", fx.local.records["contact:7"], TriggerUpdate, fieldmap)
	if err != nil || !allowed {
		t.Fatalf("update allowed = %v, %v", allowed, err)
	}

	allowed, err = engine.PushAllowed(context.Background(), "contact", fx.local.records["contact:7"], TriggerDelete, fieldmap)
	if err != nil {
		t.Fatalf("PushAllowed: %v", err)
	}
	if allowed {
		t.Fatal("delete allowed despite trigger not configured")
	}
}

func TestPushAllowedNoCreateRequiresMapping(t *testing.T) {
	fx := newFixtures()
	fx.local.addRecord("contact", 7, Record{})
	engine := newTestEngine(t, fx)

	fieldmap := contactFieldmap(1)
	fieldmap.Triggers = Triggers(TriggerUpdate, TriggerDelete)
	record := fx.local.records["contact:7"]

	allowed, err := engine.PushAllowed(context.Background(), "contact", record, TriggerUpdate, fieldmap)
	if err != nil {
		t.Fatalf("PushAllowed: %v", err)
	}
	if allowed {
		t.Fatal("unmapped record allowed through a no-create fieldmap")
	}

	fx.objectMaps.seed(MappingObject{
		LocalObjectType: "contact",
		LocalID:         7,
		FieldmapID:      1,
		Remote:          ConfirmedRef("SF001"),
	})
	allowed, err = engine.PushAllowed(context.Background(), "contact", record, TriggerUpdate, fieldmap)
	if err != nil || !allowed {
		t.Fatalf("mapped record allowed = %v, %v", allowed, err)
	}
}

func TestPushAllowedHookHasFinalWord(t *testing.T) {
	fx := newFixtures()
	fx.local.addRecord("contact", 7, Record{})
	engine := newTestEngine(t, fx)
	record := fx.local.records["contact:7"]
	fieldmap := contactFieldmap(1)

	engine.Hooks().OnPushAllowed(func(_ context.Context, allowed bool, _ string, _ Record, _ SyncTrigger, _ Fieldmap) bool {
		return !allowed
	})

	allowed, err := engine.PushAllowed(context.Background(), "contact", record, TriggerUpdate, fieldmap)
	if err != nil {
		t.Fatalf("PushAllowed: %v", err)
	}
	if allowed {
		t.Fatal("hook veto ignored")
	}

	fieldmap.Triggers = Triggers(TriggerCreate)
	allowed, err = engine.PushAllowed(context.Background(), "contact", record, TriggerUpdate, fieldmap)
	if err != nil || !allowed {
		t.Fatalf("hook reinstate = %v, %v", allowed, err)
	}
}
