package core

import "testing"

func TestTranslateParams(t *testing.T) {
	fieldmap := Fieldmap{
		Fields: []FieldRule{
			{LocalField: "email", RemoteField: "Email", Prematch: true},
			{LocalField: "member_no", RemoteField: "MemberNumber__c", Key: true},
			{LocalField: "last_name", RemoteField: "LastName"},
			{LocalField: "", RemoteField: "Ignored"},
			{LocalField: "missing", RemoteField: "AlsoIgnored"},
		},
	}
	record := Record{Fields: map[string]any{
		"email":     "ada@example.com",
		"member_no": 42,
		"last_name": "Lovelace",
	}}

	params := TranslateParams(fieldmap, record)

	if len(params.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d: %#v", len(params.Fields), params.Fields)
	}
	if params.Fields["Email"] != "ada@example.com" {
		t.Errorf("Email = %v", params.Fields["Email"])
	}
	if params.Prematch == nil || params.Prematch.RemoteField != "Email" || params.Prematch.Value != "ada@example.com" {
		t.Errorf("prematch = %+v", params.Prematch)
	}
	if params.Key == nil || params.Key.RemoteField != "MemberNumber__c" || params.Key.Value != "42" {
		t.Errorf("key = %+v", params.Key)
	}
}

func TestTranslateParamsFirstPrematchWins(t *testing.T) {
	fieldmap := Fieldmap{
		Fields: []FieldRule{
			{LocalField: "email", RemoteField: "Email", Prematch: true},
			{LocalField: "alt_email", RemoteField: "AltEmail", Prematch: true},
		},
	}
	record := Record{Fields: map[string]any{
		"email":     "first@example.com",
		"alt_email": "second@example.com",
	}}

	params := TranslateParams(fieldmap, record)
	if params.Prematch == nil || params.Prematch.RemoteField != "Email" {
		t.Fatalf("prematch = %+v", params.Prematch)
	}
}

func TestTranslateParamsEmptyRecord(t *testing.T) {
	params := TranslateParams(contactFieldmap(1), Record{})
	if !params.Empty() {
		t.Fatalf("expected empty params, got %#v", params)
	}
}

func TestEncodeMatchValue(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"ada@example.com", "ada%40example.com"},
		{"has space", "has%20space"},
		{"a+b", "a%2Bb"},
		{"v1.2.3", "v1%2E2%2E3"},
		{"mix it.up/now", "mix%20it%2Eup%2Fnow"},
	}
	for _, tc := range cases {
		if got := EncodeMatchValue(tc.in); got != tc.want {
			t.Errorf("EncodeMatchValue(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplyRecordTypeDefault(t *testing.T) {
	fieldmap := Fieldmap{RecordTypeDefault: "012000000000001"}

	params := applyRecordTypeDefault(PushParams{Fields: map[string]any{"Email": "x"}}, fieldmap)
	if params.Fields["RecordTypeId"] != "012000000000001" {
		t.Errorf("missing default: %v", params.Fields["RecordTypeId"])
	}

	params = applyRecordTypeDefault(PushParams{Fields: map[string]any{"RecordTypeId": "012999999999999"}}, fieldmap)
	if params.Fields["RecordTypeId"] != "012999999999999" {
		t.Errorf("explicit value overwritten: %v", params.Fields["RecordTypeId"])
	}

	params = applyRecordTypeDefault(PushParams{Fields: map[string]any{"RecordTypeId": " "}}, fieldmap)
	if params.Fields["RecordTypeId"] != "012000000000001" {
		t.Errorf("blank value not backfilled: %v", params.Fields["RecordTypeId"])
	}

	params = applyRecordTypeDefault(PushParams{}, Fieldmap{})
	if len(params.Fields) != 0 {
		t.Errorf("no default configured, fields = %v", params.Fields)
	}
}
