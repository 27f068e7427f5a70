package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/intakehq/intake/internal/forms"
)

// Status represents the workflow state of a job.
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusInitializing      Status = "INITIALIZING"
	StatusAnalysisPending   Status = "ANALYSIS_PENDING"
	StatusExtractingResults Status = "EXTRACTING_RESULTS"
	StatusProcessingData    Status = "PROCESSING_STRUCTURED_DATA"
	StatusValidating        Status = "VALIDATING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
)

// transitions is the directed graph of valid status changes.
// FAILED is reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusCreated:           {StatusInitializing},
	StatusInitializing:      {StatusAnalysisPending},
	StatusAnalysisPending:   {StatusExtractingResults},
	StatusExtractingResults: {StatusProcessingData},
	StatusProcessingData:    {StatusValidating},
	StatusValidating:        {StatusCompleted},
}

// CanTransition reports whether moving from s to next is a valid edge.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Result ref keys. Transcript and structured data are the externally
// visible artifacts; the others track intermediate pipeline output.
const (
	RefAnalysisOutput = "analysis_output"
	RefTranscript     = "transcript"
	RefStructuredRaw  = "structured_raw"
	RefStructuredData = "structured_data"
)

// Error kinds recorded on failed jobs.
const (
	KindValidationError    = "ValidationError"
	KindAnalysisError      = "AnalysisError"
	KindBackendUnavailable = "BackendUnavailable"
	KindTimeout            = "Timeout"
)

// Failure is the structured diagnostic recorded when a job fails.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Stage   string `json:"stage"`
}

// Job is the central record tracked through the workflow.
//
// OwnerID and SourceRef are immutable after creation. Status is mutated
// only by the workflow engine, always through a version-gated update.
// CorrelationToken is present exactly while the job is suspended waiting
// for the external analysis to complete.
type Job struct {
	ID               string            `json:"job_id"`
	OwnerID          string            `json:"owner_id"`
	Status           Status            `json:"status"`
	SourceRef        string            `json:"source_ref"`
	CorrelationToken string            `json:"correlation_token,omitempty"`
	ResultRefs       map[string]string `json:"result_refs,omitempty"`
	FormSchema       *forms.Schema     `json:"form_schema,omitempty"`
	Error            *Failure          `json:"error,omitempty"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// New creates a CREATED job for the given owner and source artifact.
func New(ownerID, sourceRef string, schema *forms.Schema) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Status:     StatusCreated,
		SourceRef:  sourceRef,
		ResultRefs: make(map[string]string),
		FormSchema: schema,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SetRef records a result artifact reference. A ref set by an earlier
// run of the same stage is never overwritten, which keeps stage
// re-invocation idempotent.
func (j *Job) SetRef(name, ref string) {
	if j.ResultRefs == nil {
		j.ResultRefs = make(map[string]string)
	}
	if _, ok := j.ResultRefs[name]; ok {
		return
	}
	j.ResultRefs[name] = ref
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	if j.ResultRefs != nil {
		c.ResultRefs = make(map[string]string, len(j.ResultRefs))
		for k, v := range j.ResultRefs {
			c.ResultRefs[k] = v
		}
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	if j.FormSchema != nil {
		c.FormSchema = j.FormSchema.Clone()
	}
	return &c
}
