package query

import (
	"context"

	"github.com/goliatone/go-crm-sync/core"
)

type FieldmapReader interface {
	GetFieldmap(ctx context.Context, id int64) (core.Fieldmap, error)
	ListFieldmaps(ctx context.Context, filter core.FieldmapFilter) ([]core.Fieldmap, error)
}

type ObjectMapReader interface {
	GetObjectMapsByLocal(ctx context.Context, objectType string, localID int64) ([]core.MappingObject, error)
	GetObjectMapsByRemote(ctx context.Context, remoteValue string) ([]core.MappingObject, error)
}

type GetFieldmapQuery struct {
	reader FieldmapReader
}

func NewGetFieldmapQuery(reader FieldmapReader) *GetFieldmapQuery {
	return &GetFieldmapQuery{reader: reader}
}

func (q *GetFieldmapQuery) Query(ctx context.Context, msg GetFieldmapMessage) (core.Fieldmap, error) {
	if q == nil || q.reader == nil {
		return core.Fieldmap{}, queryDependencyError("query: fieldmap reader is required")
	}
	return q.reader.GetFieldmap(ctx, msg.FieldmapID)
}

type ListFieldmapsQuery struct {
	reader FieldmapReader
}

func NewListFieldmapsQuery(reader FieldmapReader) *ListFieldmapsQuery {
	return &ListFieldmapsQuery{reader: reader}
}

func (q *ListFieldmapsQuery) Query(ctx context.Context, msg ListFieldmapsMessage) ([]core.Fieldmap, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: fieldmap reader is required")
	}
	return q.reader.ListFieldmaps(ctx, core.FieldmapFilter{LocalObjectType: msg.LocalObjectType})
}

type GetObjectMapsByLocalQuery struct {
	reader ObjectMapReader
}

func NewGetObjectMapsByLocalQuery(reader ObjectMapReader) *GetObjectMapsByLocalQuery {
	return &GetObjectMapsByLocalQuery{reader: reader}
}

func (q *GetObjectMapsByLocalQuery) Query(
	ctx context.Context,
	msg GetObjectMapsByLocalMessage,
) ([]core.MappingObject, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: object map reader is required")
	}
	return q.reader.GetObjectMapsByLocal(ctx, msg.ObjectType, msg.LocalID)
}

type GetObjectMapsByRemoteQuery struct {
	reader ObjectMapReader
}

func NewGetObjectMapsByRemoteQuery(reader ObjectMapReader) *GetObjectMapsByRemoteQuery {
	return &GetObjectMapsByRemoteQuery{reader: reader}
}

func (q *GetObjectMapsByRemoteQuery) Query(
	ctx context.Context,
	msg GetObjectMapsByRemoteMessage,
) ([]core.MappingObject, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: object map reader is required")
	}
	return q.reader.GetObjectMapsByRemote(ctx, msg.RemoteValue)
}
