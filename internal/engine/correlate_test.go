package engine

import (
	"context"
	"testing"

	"github.com/intakehq/intake/internal/analysis"
	"github.com/intakehq/intake/internal/job"
)

func TestHandleEventResumesToCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	j := env.startJob(t, nil)
	env.deliverSuccess(t, j, "hello from the analysis backend")

	done, err := env.store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if done.Status != job.StatusCompleted {
		t.Fatalf("expected status %s, got %s", job.StatusCompleted, done.Status)
	}
	if done.CorrelationToken != "" {
		t.Error("expected the correlation token to be cleared")
	}
	if done.Error != nil {
		t.Errorf("completed job must not carry a failure, got %+v", done.Error)
	}

	for _, key := range []string{job.RefAnalysisOutput, job.RefTranscript, job.RefStructuredRaw, job.RefStructuredData} {
		if done.ResultRefs[key] == "" {
			t.Errorf("expected result ref %q to be set", key)
		}
	}

	transcript, err := env.blobs.Get(ctx, done.ResultRefs[job.RefTranscript])
	if err != nil {
		t.Fatalf("failed to fetch transcript: %v", err)
	}
	if string(transcript) != "hello from the analysis backend" {
		t.Errorf("unexpected transcript content %q", transcript)
	}
}

func TestHandleEventDuplicateDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	j := env.startJob(t, nil)
	token := j.CorrelationToken
	env.deliverSuccess(t, j, "transcript text")

	done, err := env.store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	extractCalls := env.extractor.Calls()

	// Redelivery of the same event after completion.
	err = env.engine.HandleEvent(ctx, analysis.CompletionEvent{
		CorrelationHandle: token,
		Outcome:           analysis.OutcomeSuccess,
		OutputRef:         done.ResultRefs[job.RefAnalysisOutput],
	})
	if err != nil {
		t.Fatalf("duplicate delivery must not error: %v", err)
	}

	fresh, err := env.store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if fresh.Version != done.Version {
		t.Errorf("duplicate event changed the job: version %d -> %d", done.Version, fresh.Version)
	}
	if env.extractor.Calls() != extractCalls {
		t.Errorf("duplicate event re-ran extraction: %d -> %d calls", extractCalls, env.extractor.Calls())
	}
}

func TestHandleEventUnknownHandle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	j := env.startJob(t, nil)

	err := env.engine.HandleEvent(ctx, analysis.CompletionEvent{
		CorrelationHandle: "corr-never-issued",
		Outcome:           analysis.OutcomeSuccess,
		OutputRef:         "analysis/x/output.txt",
	})
	if err != nil {
		t.Fatalf("unknown handle must not error: %v", err)
	}

	fresh, err := env.store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if fresh.Status != job.StatusAnalysisPending {
		t.Errorf("job must stay suspended, got %s", fresh.Status)
	}
}

func TestHandleEventEmptyHandle(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.HandleEvent(context.Background(), analysis.CompletionEvent{
		Outcome: analysis.OutcomeSuccess,
	})
	if err != nil {
		t.Fatalf("empty handle must not error: %v", err)
	}
}

func TestHandleEventAnalysisFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	j := env.startJob(t, nil)

	err := env.engine.HandleEvent(ctx, analysis.CompletionEvent{
		CorrelationHandle: j.CorrelationToken,
		Outcome:           analysis.OutcomeFailure,
		Reason:            "audio track unreadable",
	})
	if err != nil {
		t.Fatalf("failed to handle failure event: %v", err)
	}

	failed, err := env.store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if failed.Status != job.StatusFailed {
		t.Fatalf("expected status %s, got %s", job.StatusFailed, failed.Status)
	}
	if failed.Error == nil {
		t.Fatal("expected a failure diagnostic")
	}
	if failed.Error.Kind != job.KindAnalysisError {
		t.Errorf("expected kind %s, got %s", job.KindAnalysisError, failed.Error.Kind)
	}
	if failed.Error.Message != "audio track unreadable" {
		t.Errorf("expected the backend reason, got %q", failed.Error.Message)
	}
	if failed.CorrelationToken != "" {
		t.Error("expected the correlation token to be cleared")
	}
	if env.extractor.Calls() != 0 {
		t.Error("failed analysis must not reach extraction")
	}
}

func TestHandleEventFailureDefaultReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	j := env.startJob(t, nil)

	err := env.engine.HandleEvent(ctx, analysis.CompletionEvent{
		CorrelationHandle: j.CorrelationToken,
		Outcome:           analysis.OutcomeFailure,
	})
	if err != nil {
		t.Fatalf("failed to handle failure event: %v", err)
	}

	failed, err := env.store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if failed.Error == nil || failed.Error.Message == "" {
		t.Fatal("expected a default failure reason")
	}
}
