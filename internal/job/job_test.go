package job

import (
	"testing"

	"github.com/intakehq/intake/internal/forms"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"created to initializing", StatusCreated, StatusInitializing, true},
		{"initializing to analysis pending", StatusInitializing, StatusAnalysisPending, true},
		{"analysis pending to extracting", StatusAnalysisPending, StatusExtractingResults, true},
		{"extracting to processing", StatusExtractingResults, StatusProcessingData, true},
		{"processing to validating", StatusProcessingData, StatusValidating, true},
		{"validating to completed", StatusValidating, StatusCompleted, true},
		{"created to failed", StatusCreated, StatusFailed, true},
		{"analysis pending to failed", StatusAnalysisPending, StatusFailed, true},
		{"validating to failed", StatusValidating, StatusFailed, true},
		{"skipping a stage", StatusCreated, StatusAnalysisPending, false},
		{"backwards", StatusValidating, StatusProcessingData, false},
		{"created straight to completed", StatusCreated, StatusCompleted, false},
		{"out of completed", StatusCompleted, StatusFailed, false},
		{"out of failed", StatusFailed, StatusInitializing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusCreated, StatusInitializing, StatusAnalysisPending, StatusExtractingResults, StatusProcessingData, StatusValidating} {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestNew(t *testing.T) {
	j := New("owner-1", "uploads/x/a.mp3", nil)

	if j.ID == "" {
		t.Error("expected a generated id")
	}
	if j.Status != StatusCreated {
		t.Errorf("expected status %s, got %s", StatusCreated, j.Status)
	}
	if j.Version != 1 {
		t.Errorf("expected version 1, got %d", j.Version)
	}
	if j.CreatedAt.IsZero() || j.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestSetRef(t *testing.T) {
	j := New("owner-1", "uploads/x/a.mp3", nil)

	j.SetRef(RefTranscript, "results/1/transcript.txt")
	j.SetRef(RefTranscript, "results/1/other.txt")

	if got := j.ResultRefs[RefTranscript]; got != "results/1/transcript.txt" {
		t.Errorf("first ref must win, got %s", got)
	}

	// Works on a record loaded without refs.
	bare := &Job{}
	bare.SetRef(RefStructuredData, "results/1/structured-data.json")
	if bare.ResultRefs[RefStructuredData] == "" {
		t.Error("expected ref on a bare record")
	}
}

func TestClone(t *testing.T) {
	schema := &forms.Schema{
		FormID: "f1",
		Fields: []forms.Field{{ID: "summary", Name: "Summary", Type: forms.FieldText}},
	}
	j := New("owner-1", "uploads/x/a.mp3", schema)
	j.SetRef(RefTranscript, "results/1/transcript.txt")
	j.Error = &Failure{Kind: KindAnalysisError, Message: "boom", Stage: "TriggerAnalysis"}

	c := j.Clone()
	c.ResultRefs[RefTranscript] = "mutated"
	c.Error.Message = "mutated"
	c.FormSchema.Fields[0].ID = "mutated"

	if j.ResultRefs[RefTranscript] != "results/1/transcript.txt" {
		t.Error("clone shares the result refs map")
	}
	if j.Error.Message != "boom" {
		t.Error("clone shares the failure record")
	}
	if j.FormSchema.Fields[0].ID != "summary" {
		t.Error("clone shares the schema")
	}
}
