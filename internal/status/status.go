// Package status answers owner-scoped job status queries.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/job"
)

// Snapshot is the externally visible view of a job. Internal bookkeeping
// like the correlation token and the record version stays out of it.
type Snapshot struct {
	JobID      string            `json:"job_id"`
	Status     job.Status        `json:"status"`
	SourceRef  string            `json:"source_ref"`
	ResultRefs map[string]string `json:"result_refs,omitempty"`
	Error      *job.Failure      `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Service serves status queries against the job store.
type Service struct {
	store job.Store
}

// NewService creates a Service.
func NewService(store job.Store) *Service {
	return &Service{store: store}
}

// GetStatus returns the snapshot of a job owned by ownerID.
//
// An unknown job id yields job.ErrNotFound; a job owned by someone else
// yields auth.ErrForbidden. The two are distinct so the API can answer
// 404 and 403 respectively.
func (s *Service) GetStatus(ctx context.Context, jobID, ownerID string) (*Snapshot, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id is required: %w", job.ErrNotFound)
	}

	j, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.OwnerID != ownerID {
		return nil, fmt.Errorf("job %s: %w", jobID, auth.ErrForbidden)
	}
	return snapshot(j), nil
}

// ListJobs returns snapshots of the owner's jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, ownerID string, limit int) ([]*Snapshot, error) {
	jobs, err := s.store.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs for owner %s: %w", ownerID, err)
	}
	out := make([]*Snapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, snapshot(j))
	}
	return out, nil
}

func snapshot(j *job.Job) *Snapshot {
	snap := &Snapshot{
		JobID:     j.ID,
		Status:    j.Status,
		SourceRef: j.SourceRef,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if len(j.ResultRefs) > 0 {
		snap.ResultRefs = make(map[string]string, len(j.ResultRefs))
		for k, v := range j.ResultRefs {
			snap.ResultRefs[k] = v
		}
	}
	if j.Error != nil {
		f := *j.Error
		snap.Error = &f
	}
	return snap
}
