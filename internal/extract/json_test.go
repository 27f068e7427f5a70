package extract

import (
	"strings"
	"testing"

	"github.com/intakehq/intake/internal/forms"
)

func TestParseModelJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain object",
			input: `{"form_id":"f","responses":{}}`,
			want:  `{"form_id":"f","responses":{}}`,
		},
		{
			name:  "fenced json",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "fenced without language",
			input: "```\n{\"a\": 1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "surrounding prose",
			input: "Here is the extraction:\n{\"a\": 1}\nLet me know if you need more.",
			want:  `{"a":1}`,
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "no json at all",
			input:   "I could not extract anything.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseModelJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseModelJSON() = %s, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseModelJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("parseModelJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	schema := &forms.Schema{
		FormID: "meeting_v1",
		Fields: []forms.Field{
			{ID: "meeting_type", Type: forms.FieldSelect, Options: []string{"standup", "planning"}},
		},
	}

	prompt, err := buildPrompt("the transcript", schema)
	if err != nil {
		t.Fatalf("buildPrompt() error = %v", err)
	}
	for _, want := range []string{"meeting_v1", "meeting_type", "standup", "the transcript"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	prompt, err = buildPrompt("the transcript", nil)
	if err != nil {
		t.Fatalf("buildPrompt(nil schema) error = %v", err)
	}
	if !strings.Contains(prompt, "freeform_v1") {
		t.Error("schemaless prompt should request the freeform envelope")
	}
}
