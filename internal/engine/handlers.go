package engine

import (
	"context"
	"fmt"

	"github.com/intakehq/intake/internal/forms"
	"github.com/intakehq/intake/internal/job"
)

// Artifact layout under the blob store.
func transcriptKey(jobID string) string {
	return fmt.Sprintf("results/%s/transcript.txt", jobID)
}

func structuredRawKey(jobID string) string {
	return fmt.Sprintf("results/%s/structured-raw.json", jobID)
}

func structuredDataKey(jobID string) string {
	return fmt.Sprintf("results/%s/structured-data.json", jobID)
}

// initialize moves a freshly created job into the pipeline. No data is
// attached; the stage exists so creation and execution stay decoupled.
func (e *Engine) initialize(_ context.Context, _ *job.Job) (step, error) {
	return step{stage: StageInitialize, next: job.StatusInitializing}, nil
}

// triggerAnalysis starts the external analysis and suspends the job.
// The backend's correlation handle becomes the job's token; the job id
// doubles as the backend idempotency key, so a re-invocation after a
// crash yields the same handle instead of a second analysis.
func (e *Engine) triggerAnalysis(ctx context.Context, j *job.Job) (step, error) {
	handle, err := e.analysis.Start(ctx, j.ID, j.SourceRef)
	if err != nil {
		return step{stage: StageTriggerAnalysis}, failKind(job.KindBackendUnavailable, fmt.Errorf("start analysis: %w", err))
	}
	if handle == "" {
		return step{stage: StageTriggerAnalysis}, failKind(job.KindBackendUnavailable, fmt.Errorf("analysis backend returned empty handle"))
	}
	return step{
		stage:   StageTriggerAnalysis,
		next:    job.StatusAnalysisPending,
		suspend: true,
		token:   handle,
	}, nil
}

// extractResults retrieves the analysis output recorded by the
// correlator and publishes it as the job's transcript. Blob writes are
// keyed by job id, so re-running the stage rewrites the same object.
func (e *Engine) extractResults(ctx context.Context, j *job.Job) (step, error) {
	outputRef, ok := j.ResultRefs[job.RefAnalysisOutput]
	if !ok {
		return step{stage: StageExtractResults}, failKind(job.KindAnalysisError, fmt.Errorf("job has no analysis output ref"))
	}

	output, err := e.blobs.Get(ctx, outputRef)
	if err != nil {
		return step{stage: StageExtractResults}, failKind(job.KindBackendUnavailable, fmt.Errorf("fetch analysis output: %w", err))
	}

	ref, err := e.blobs.Put(ctx, transcriptKey(j.ID), output)
	if err != nil {
		return step{stage: StageExtractResults}, failKind(job.KindBackendUnavailable, fmt.Errorf("store transcript: %w", err))
	}

	return step{
		stage: StageExtractResults,
		next:  job.StatusProcessingData,
		apply: func(row *job.Job) { row.SetRef(job.RefTranscript, ref) },
	}, nil
}

// structuredExtract sends the transcript (and the form schema, when
// present) to the extraction backend and stores the raw model output.
func (e *Engine) structuredExtract(ctx context.Context, j *job.Job) (step, error) {
	transcriptRef, ok := j.ResultRefs[job.RefTranscript]
	if !ok {
		return step{stage: StageStructuredExtract}, failKind(job.KindAnalysisError, fmt.Errorf("job has no transcript ref"))
	}

	transcript, err := e.blobs.Get(ctx, transcriptRef)
	if err != nil {
		return step{stage: StageStructuredExtract}, failKind(job.KindBackendUnavailable, fmt.Errorf("fetch transcript: %w", err))
	}

	raw, err := e.extractor.Extract(ctx, string(transcript), j.FormSchema)
	if err != nil {
		return step{stage: StageStructuredExtract}, failKind(job.KindBackendUnavailable, fmt.Errorf("structured extraction: %w", err))
	}

	ref, err := e.blobs.Put(ctx, structuredRawKey(j.ID), raw)
	if err != nil {
		return step{stage: StageStructuredExtract}, failKind(job.KindBackendUnavailable, fmt.Errorf("store raw structured output: %w", err))
	}

	return step{
		stage: StageStructuredExtract,
		next:  job.StatusValidating,
		apply: func(row *job.Job) { row.SetRef(job.RefStructuredRaw, ref) },
	}, nil
}

// validate checks the raw structured output against the job's schema
// and publishes the validated document. Validation failures carry the
// complete list of violations.
func (e *Engine) validate(ctx context.Context, j *job.Job) (step, error) {
	rawRef, ok := j.ResultRefs[job.RefStructuredRaw]
	if !ok {
		return step{stage: StageValidate}, failKind(job.KindValidationError, fmt.Errorf("job has no structured output ref"))
	}

	raw, err := e.blobs.Get(ctx, rawRef)
	if err != nil {
		return step{stage: StageValidate}, failKind(job.KindBackendUnavailable, fmt.Errorf("fetch structured output: %w", err))
	}

	violations, err := forms.Validate(raw, j.FormSchema)
	if err != nil {
		return step{stage: StageValidate}, failKind(job.KindValidationError, err)
	}
	if len(violations) > 0 {
		return step{stage: StageValidate}, failKind(job.KindValidationError,
			fmt.Errorf("structured data failed validation: %s", forms.JoinViolations(violations)))
	}

	ref, err := e.blobs.Put(ctx, structuredDataKey(j.ID), raw)
	if err != nil {
		return step{stage: StageValidate}, failKind(job.KindBackendUnavailable, fmt.Errorf("store structured data: %w", err))
	}

	return step{
		stage: StageValidate,
		next:  job.StatusCompleted,
		apply: func(row *job.Job) { row.SetRef(job.RefStructuredData, ref) },
	}, nil
}
