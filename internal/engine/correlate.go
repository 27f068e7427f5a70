package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/intakehq/intake/internal/analysis"
	"github.com/intakehq/intake/internal/job"
)

// HandleEvent is the correlator entry point: it matches a completion
// event to its suspended job and resumes the engine.
//
// Events are idempotent against duplicate and out-of-order delivery: an
// unknown or stale correlation handle, or a job no longer suspended, is
// a no-op. Two events for the same job cannot both resume it; the
// version check on the transition out of ANALYSIS_PENDING admits only
// the first.
func (e *Engine) HandleEvent(ctx context.Context, ev analysis.CompletionEvent) error {
	if ev.CorrelationHandle == "" {
		e.logger.Warn("completion event without correlation handle dropped")
		return nil
	}

	j, err := e.store.GetByToken(ctx, ev.CorrelationHandle)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			// Already resumed, already failed, or never ours.
			e.logger.Info("completion event did not match a suspended job",
				"correlation_handle", ev.CorrelationHandle)
			return nil
		}
		return fmt.Errorf("resolve correlation handle: %w", err)
	}

	if j.Status != job.StatusAnalysisPending || j.CorrelationToken != ev.CorrelationHandle {
		e.logger.Info("completion event ignored, job not suspended",
			"job_id", j.ID, "status", j.Status)
		return nil
	}

	if !ev.Succeeded() {
		return e.failFromEvent(ctx, j, ev)
	}

	resumed, err := e.store.Update(ctx, j.ID, j.Version, func(row *job.Job) error {
		if row.Status != job.StatusAnalysisPending || row.CorrelationToken != ev.CorrelationHandle {
			return errSuperseded
		}
		row.Status = job.StatusExtractingResults
		row.CorrelationToken = ""
		row.SetRef(job.RefAnalysisOutput, ev.OutputRef)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSuperseded) || errors.Is(err, job.ErrVersionConflict) {
			// A concurrent delivery won the race; nothing left to do.
			e.logger.Info("duplicate completion event ignored", "job_id", j.ID)
			return nil
		}
		return fmt.Errorf("resume job %s: %w", j.ID, err)
	}

	e.logger.Info("job resumed", "job_id", resumed.ID, "output_ref", ev.OutputRef)
	return e.run(ctx, resumed)
}

// failFromEvent settles a suspended job whose analysis reported failure.
func (e *Engine) failFromEvent(ctx context.Context, j *job.Job, ev analysis.CompletionEvent) error {
	reason := ev.Reason
	if reason == "" {
		reason = "analysis backend reported failure"
	}

	_, err := e.store.Update(ctx, j.ID, j.Version, func(row *job.Job) error {
		if row.Status != job.StatusAnalysisPending || row.CorrelationToken != ev.CorrelationHandle {
			return errSuperseded
		}
		row.Status = job.StatusFailed
		row.CorrelationToken = ""
		row.Error = &job.Failure{
			Kind:    job.KindAnalysisError,
			Message: reason,
			Stage:   StageExtractResults,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errSuperseded) || errors.Is(err, job.ErrVersionConflict) {
			return nil
		}
		return fmt.Errorf("fail job %s from event: %w", j.ID, err)
	}

	e.logger.Info("job failed by completion event", "job_id", j.ID, "reason", reason)
	return nil
}
