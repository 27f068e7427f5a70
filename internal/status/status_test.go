package status

import (
	"context"
	"errors"
	"testing"

	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/job"
)

func seedJob(t *testing.T, store *job.MemoryStore, ownerID string) *job.Job {
	t.Helper()
	j := job.New(ownerID, "uploads/"+ownerID+"/recording.mp4", nil)
	if err := store.Create(context.Background(), j); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	return j
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("owner sees their job", func(t *testing.T) {
		store := job.NewMemoryStore()
		svc := NewService(store)
		j := seedJob(t, store, "owner-a")

		snap, err := svc.GetStatus(ctx, j.ID, "owner-a")
		if err != nil {
			t.Fatalf("failed to get status: %v", err)
		}
		if snap.JobID != j.ID {
			t.Errorf("expected job id %s, got %s", j.ID, snap.JobID)
		}
		if snap.Status != job.StatusCreated {
			t.Errorf("expected status %s, got %s", job.StatusCreated, snap.Status)
		}
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		store := job.NewMemoryStore()
		svc := NewService(store)

		_, err := svc.GetStatus(ctx, "no-such-job", "owner-a")
		if !errors.Is(err, job.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("another owner's job is forbidden", func(t *testing.T) {
		store := job.NewMemoryStore()
		svc := NewService(store)
		j := seedJob(t, store, "owner-a")

		_, err := svc.GetStatus(ctx, j.ID, "owner-b")
		if !errors.Is(err, auth.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("snapshot hides the correlation token", func(t *testing.T) {
		store := job.NewMemoryStore()
		svc := NewService(store)
		j := seedJob(t, store, "owner-a")

		_, err := store.Update(ctx, j.ID, j.Version, func(row *job.Job) error {
			row.Status = job.StatusInitializing
			row.CorrelationToken = "corr-secret"
			return nil
		})
		if err != nil {
			t.Fatalf("failed to update job: %v", err)
		}

		snap, err := svc.GetStatus(ctx, j.ID, "owner-a")
		if err != nil {
			t.Fatalf("failed to get status: %v", err)
		}
		if snap.Status != job.StatusInitializing {
			t.Errorf("expected status %s, got %s", job.StatusInitializing, snap.Status)
		}
		// The snapshot type has no token field; check the failure and
		// refs round-trip instead.
		if snap.Error != nil {
			t.Errorf("unexpected failure on a healthy job: %+v", snap.Error)
		}
	})

	t.Run("snapshot carries failure diagnostics", func(t *testing.T) {
		store := job.NewMemoryStore()
		svc := NewService(store)
		j := seedJob(t, store, "owner-a")

		_, err := store.Update(ctx, j.ID, j.Version, func(row *job.Job) error {
			row.Status = job.StatusFailed
			row.Error = &job.Failure{Kind: job.KindAnalysisError, Message: "boom", Stage: "TriggerAnalysis"}
			return nil
		})
		if err != nil {
			t.Fatalf("failed to update job: %v", err)
		}

		snap, err := svc.GetStatus(ctx, j.ID, "owner-a")
		if err != nil {
			t.Fatalf("failed to get status: %v", err)
		}
		if snap.Error == nil || snap.Error.Kind != job.KindAnalysisError {
			t.Fatalf("expected analysis failure in snapshot, got %+v", snap.Error)
		}
	})
}

func TestListJobs(t *testing.T) {
	ctx := context.Background()
	store := job.NewMemoryStore()
	svc := NewService(store)

	seedJob(t, store, "owner-a")
	seedJob(t, store, "owner-a")
	seedJob(t, store, "owner-b")

	snaps, err := svc.ListJobs(ctx, "owner-a", 10)
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 jobs for owner-a, got %d", len(snaps))
	}

	snaps, err = svc.ListJobs(ctx, "owner-c", 10)
	if err != nil {
		t.Fatalf("failed to list jobs: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected no jobs for owner-c, got %d", len(snaps))
	}
}
