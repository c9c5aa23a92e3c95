package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetFieldmap           = "crmsync.query.fieldmap.get"
	TypeListFieldmaps         = "crmsync.query.fieldmap.list"
	TypeGetObjectMapsByLocal  = "crmsync.query.object_map.by_local"
	TypeGetObjectMapsByRemote = "crmsync.query.object_map.by_remote"
)

type GetFieldmapMessage struct {
	FieldmapID int64
}

func (GetFieldmapMessage) Type() string { return TypeGetFieldmap }

func (m GetFieldmapMessage) Validate() error {
	if m.FieldmapID <= 0 {
		return fmt.Errorf("query: fieldmap id is required")
	}
	return nil
}

type ListFieldmapsMessage struct {
	LocalObjectType string
}

func (ListFieldmapsMessage) Type() string { return TypeListFieldmaps }

func (ListFieldmapsMessage) Validate() error { return nil }

type GetObjectMapsByLocalMessage struct {
	ObjectType string
	LocalID    int64
}

func (GetObjectMapsByLocalMessage) Type() string { return TypeGetObjectMapsByLocal }

func (m GetObjectMapsByLocalMessage) Validate() error {
	if strings.TrimSpace(m.ObjectType) == "" {
		return fmt.Errorf("query: object type is required")
	}
	if m.LocalID <= 0 {
		return fmt.Errorf("query: local id is required")
	}
	return nil
}

type GetObjectMapsByRemoteMessage struct {
	RemoteValue string
}

func (GetObjectMapsByRemoteMessage) Type() string { return TypeGetObjectMapsByRemote }

func (m GetObjectMapsByRemoteMessage) Validate() error {
	if strings.TrimSpace(m.RemoteValue) == "" {
		return fmt.Errorf("query: remote value is required")
	}
	return nil
}
