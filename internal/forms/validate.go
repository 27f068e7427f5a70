package forms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// envelopeSchema constrains the top-level shape of structured output:
// a form_id string and a responses object. Field-level rules are applied
// separately so every violation can be reported, not just the first.
const envelopeSchema = `{
	"type": "object",
	"properties": {
		"form_id":   {"type": "string"},
		"responses": {"type": "object"}
	},
	"required": ["form_id", "responses"]
}`

var envelope = jsonschema.MustCompileString("envelope.json", envelopeSchema)

// Violation is one field-level validation failure.
type Violation struct {
	FieldID string `json:"field_id"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.FieldID == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.FieldID, v.Message)
}

// JoinViolations renders violations as a single diagnostic string.
func JoinViolations(vs []Violation) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// Validate checks structured output data against the schema.
//
// With a nil schema any well-formed JSON document passes unchanged.
// With a schema, the envelope must be {form_id, responses} and every
// declared field is checked by its kind: text values must be strings,
// select and radio values must be members of the declared options
// (exact, case-sensitive). Keys in responses that the schema does not
// declare pass through untouched. All violations are collected.
func Validate(data json.RawMessage, schema *Schema) ([]Violation, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("structured output is not valid JSON: %w", err)
	}
	if schema == nil {
		return nil, nil
	}

	if err := envelope.Validate(doc); err != nil {
		return envelopeViolations(err), nil
	}

	obj := doc.(map[string]any)
	responses, _ := obj["responses"].(map[string]any)

	var violations []Violation
	for _, f := range schema.Fields {
		value, ok := responses[f.ID]
		if !ok || value == nil {
			// Required-ness is not part of the schema format; absent
			// values are only checked for type shape when present.
			continue
		}
		if v, bad := checkField(f, value); bad {
			violations = append(violations, v)
		}
	}
	return violations, nil
}

func checkField(f Field, value any) (Violation, bool) {
	switch f.Type {
	case FieldText:
		if _, ok := value.(string); !ok {
			return Violation{FieldID: f.ID, Message: fmt.Sprintf("expected a string, got %T", value)}, true
		}
	case FieldSelect, FieldRadio:
		s, ok := value.(string)
		if !ok {
			return Violation{FieldID: f.ID, Message: fmt.Sprintf("expected a string option, got %T", value)}, true
		}
		for _, opt := range f.Options {
			if s == opt {
				return Violation{}, false
			}
		}
		return Violation{
			FieldID: f.ID,
			Message: fmt.Sprintf("value %q is not one of [%s]", s, strings.Join(f.Options, ", ")),
		}, true
	}
	return Violation{}, false
}

// envelopeViolations flattens a jsonschema validation error into
// field-less violations.
func envelopeViolations(err error) []Violation {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Violation{{Message: err.Error()}}
	}
	leaves := ve.Causes
	if len(leaves) == 0 {
		leaves = []*jsonschema.ValidationError{ve}
	}
	out := make([]Violation, 0, len(leaves))
	for _, c := range leaves {
		out = append(out, Violation{Message: c.Message})
	}
	return out
}
