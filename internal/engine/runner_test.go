package engine

import (
	"context"
	"testing"
	"time"

	"github.com/intakehq/intake/internal/job"
)

func TestRunnerProcessesJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRunner(RunnerConfig{Engine: env.engine})
	r.RunWorkers(ctx, 2)

	j, err := env.engine.CreateJob(ctx, "owner-1", "uploads/src/a.mp4", nil)
	if err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
	r.Enqueue(j.ID)

	deadline := time.After(2 * time.Second)
	for {
		fresh, err := env.store.Get(ctx, j.ID)
		if err != nil {
			t.Fatalf("failed to reload job: %v", err)
		}
		if fresh.Status == job.StatusAnalysisPending {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached %s, stuck at %s", job.StatusAnalysisPending, fresh.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunnerDropsWhenQueueFull(t *testing.T) {
	env := newTestEnv(t)

	// No workers running, queue size 1.
	r := NewRunner(RunnerConfig{Engine: env.engine, QueueSize: 1})
	r.Enqueue("job-1")
	r.Enqueue("job-2")

	if r.Pending() != 1 {
		t.Errorf("expected 1 pending task, got %d", r.Pending())
	}
}
