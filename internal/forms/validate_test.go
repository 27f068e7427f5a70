package forms

import (
	"encoding/json"
	"strings"
	"testing"
)

func meetingSchema() *Schema {
	return &Schema{
		FormID: "meeting_analysis_v1",
		Fields: []Field{
			{ID: "meeting_type", Name: "Meeting Type", Type: FieldSelect, Options: []string{"standup", "planning"}},
			{ID: "summary", Name: "Summary", Type: FieldText},
			{ID: "sentiment", Name: "Sentiment", Type: FieldRadio, Options: []string{"positive", "neutral", "negative"}},
		},
	}
}

func doc(t *testing.T, responses string) json.RawMessage {
	t.Helper()
	return json.RawMessage(`{"form_id":"meeting_analysis_v1","responses":` + responses + `}`)
}

func TestValidate_NoSchema(t *testing.T) {
	violations, err := Validate(json.RawMessage(`{"anything":["goes",1,true]}`), nil)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("got %d violations without schema, want 0", len(violations))
	}
}

func TestValidate_SelectMembership(t *testing.T) {
	t.Run("rejects value outside options", func(t *testing.T) {
		violations, err := Validate(doc(t, `{"meeting_type":"retrospective"}`), meetingSchema())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(violations) != 1 {
			t.Fatalf("got %d violations, want 1: %v", len(violations), violations)
		}
		if violations[0].FieldID != "meeting_type" {
			t.Errorf("violation field = %s, want meeting_type", violations[0].FieldID)
		}
	})

	t.Run("accepts member option", func(t *testing.T) {
		violations, err := Validate(doc(t, `{"meeting_type":"standup"}`), meetingSchema())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(violations) != 0 {
			t.Errorf("got violations %v, want none", violations)
		}
	})

	t.Run("match is case sensitive", func(t *testing.T) {
		violations, _ := Validate(doc(t, `{"meeting_type":"Standup"}`), meetingSchema())
		if len(violations) != 1 {
			t.Errorf("got %d violations for case mismatch, want 1", len(violations))
		}
	})
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	violations, err := Validate(doc(t, `{"meeting_type":"retro","summary":42,"sentiment":"angry"}`), meetingSchema())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(violations) != 3 {
		t.Fatalf("got %d violations, want 3: %v", len(violations), violations)
	}
}

func TestValidate_UnknownFieldsPassThrough(t *testing.T) {
	violations, err := Validate(doc(t, `{"meeting_type":"standup","extra_field":123}`), meetingSchema())
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("unknown fields should pass through, got %v", violations)
	}
}

func TestValidate_Envelope(t *testing.T) {
	t.Run("missing responses", func(t *testing.T) {
		violations, err := Validate(json.RawMessage(`{"form_id":"x"}`), meetingSchema())
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(violations) == 0 {
			t.Error("missing responses should violate the envelope")
		}
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		if _, err := Validate(json.RawMessage(`{nope`), meetingSchema()); err == nil {
			t.Error("want error for malformed JSON")
		}
	})

	t.Run("absent value is not a violation", func(t *testing.T) {
		violations, _ := Validate(doc(t, `{}`), meetingSchema())
		if len(violations) != 0 {
			t.Errorf("absent values should not violate, got %v", violations)
		}
	})
}

func TestSchemaCheck(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		wantErr string
	}{
		{
			name:   "valid",
			schema: *meetingSchema(),
		},
		{
			name:    "missing form id",
			schema:  Schema{Fields: []Field{{ID: "a", Type: FieldText}}},
			wantErr: "form_id",
		},
		{
			name: "select without options",
			schema: Schema{FormID: "f", Fields: []Field{
				{ID: "a", Type: FieldSelect},
			}},
			wantErr: "options",
		},
		{
			name: "duplicate field id",
			schema: Schema{FormID: "f", Fields: []Field{
				{ID: "a", Type: FieldText},
				{ID: "a", Type: FieldText},
			}},
			wantErr: "twice",
		},
		{
			name: "unknown type",
			schema: Schema{FormID: "f", Fields: []Field{
				{ID: "a", Type: "checkbox"},
			}},
			wantErr: "field_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Check()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Check() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Check() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
