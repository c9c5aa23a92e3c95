package core

import (
	"fmt"
	"net/url"
	"strings"
)

// remoteRecordTypeField is the remote record-subtype discriminator that
// RecordTypeDefault backfills when no rule produced one.
const remoteRecordTypeField = "RecordTypeId"

// TranslateParams maps a record's fields through the fieldmap rules into a
// remote payload. Match rules keep their field in the payload and also
// surface as match criteria; the first prematch rule and the first key rule
// win when a fieldmap misconfigures several.
func TranslateParams(fieldmap Fieldmap, record Record) PushParams {
	params := PushParams{Fields: map[string]any{}}
	for _, rule := range fieldmap.Fields {
		localField := strings.TrimSpace(rule.LocalField)
		remoteField := strings.TrimSpace(rule.RemoteField)
		if localField == "" || remoteField == "" {
			continue
		}
		value, ok := record.Field(localField)
		if !ok {
			continue
		}
		params.Fields[remoteField] = value
		match := &MatchRule{
			LocalField:  localField,
			RemoteField: remoteField,
			Value:       fmt.Sprint(value),
		}
		if rule.Prematch && params.Prematch == nil {
			params.Prematch = match
			continue
		}
		if rule.Key && params.Key == nil {
			params.Key = match
		}
	}
	return params
}

// EncodeMatchValue percent-encodes an upsert match value for use as a URL
// path segment. Literal periods are escaped as %2E as well, since the
// remote API treats unescaped periods in external-id values as path
// separators.
func EncodeMatchValue(value string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
	return strings.ReplaceAll(escaped, ".", "%2E")
}

func applyRecordTypeDefault(params PushParams, fieldmap Fieldmap) PushParams {
	recordType := strings.TrimSpace(fieldmap.RecordTypeDefault)
	if recordType == "" {
		return params
	}
	if params.Fields == nil {
		params.Fields = map[string]any{}
	}
	if existing, ok := params.Fields[remoteRecordTypeField]; ok {
		if text := strings.TrimSpace(fmt.Sprint(existing)); text != "" && text != "<nil>" {
			return params
		}
	}
	params.Fields[remoteRecordTypeField] = recordType
	return params
}
