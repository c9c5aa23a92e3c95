package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-crm-sync/core"
)

var (
	_ gocmd.Querier[GetFieldmapMessage, core.Fieldmap]                   = (*GetFieldmapQuery)(nil)
	_ gocmd.Querier[ListFieldmapsMessage, []core.Fieldmap]               = (*ListFieldmapsQuery)(nil)
	_ gocmd.Querier[GetObjectMapsByLocalMessage, []core.MappingObject]   = (*GetObjectMapsByLocalQuery)(nil)
	_ gocmd.Querier[GetObjectMapsByRemoteMessage, []core.MappingObject]  = (*GetObjectMapsByRemoteQuery)(nil)
)
