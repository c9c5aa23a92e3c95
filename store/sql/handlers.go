package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func objectMapHandlers() repository.ModelHandlers[*objectMapRecord] {
	return repository.ModelHandlers[*objectMapRecord]{
		NewRecord: func() *objectMapRecord {
			return &objectMapRecord{}
		},
		GetID: func(record *objectMapRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *objectMapRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *objectMapRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func syncFlagHandlers() repository.ModelHandlers[*syncFlagRecord] {
	return repository.ModelHandlers[*syncFlagRecord]{
		NewRecord: func() *syncFlagRecord {
			return &syncFlagRecord{}
		},
		GetID: func(record *syncFlagRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *syncFlagRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *syncFlagRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func syncResultHandlers() repository.ModelHandlers[*syncResultRecord] {
	return repository.ModelHandlers[*syncResultRecord]{
		NewRecord: func() *syncResultRecord {
			return &syncResultRecord{}
		},
		GetID: func(record *syncResultRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *syncResultRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *syncResultRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
