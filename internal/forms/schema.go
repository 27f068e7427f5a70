// Package forms defines the caller-supplied field schema and validates
// structured extraction output against it.
package forms

import (
	"fmt"
)

// Field kinds supported by the flat schema format.
const (
	FieldText   = "text"
	FieldSelect = "select"
	FieldRadio  = "radio"
)

// Field declares one extractable field.
// Options is only meaningful for select and radio fields.
type Field struct {
	ID      string   `json:"field_id"`
	Name    string   `json:"field_name"`
	Type    string   `json:"field_type"`
	Options []string `json:"options,omitempty"`
}

// Schema is the flat form schema: an id plus an ordered field list.
type Schema struct {
	FormID string  `json:"form_id"`
	Fields []Field `json:"fields"`
}

// Check verifies the schema declaration itself is well formed.
func (s *Schema) Check() error {
	if s.FormID == "" {
		return fmt.Errorf("form_id is required")
	}
	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.ID == "" {
			return fmt.Errorf("field %d: field_id is required", i)
		}
		if seen[f.ID] {
			return fmt.Errorf("field %q declared twice", f.ID)
		}
		seen[f.ID] = true

		switch f.Type {
		case FieldText:
		case FieldSelect, FieldRadio:
			if len(f.Options) == 0 {
				return fmt.Errorf("field %q: %s fields require options", f.ID, f.Type)
			}
		default:
			return fmt.Errorf("field %q: unknown field_type %q", f.ID, f.Type)
		}
	}
	return nil
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	c := &Schema{FormID: s.FormID, Fields: make([]Field, len(s.Fields))}
	copy(c.Fields, s.Fields)
	for i, f := range s.Fields {
		if f.Options != nil {
			c.Fields[i].Options = append([]string(nil), f.Options...)
		}
	}
	return c
}
