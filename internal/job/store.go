package job

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the job id is unknown.
	ErrNotFound = errors.New("job not found")

	// ErrConflict indicates a create collided with an existing id.
	ErrConflict = errors.New("job already exists")

	// ErrVersionConflict indicates a version-gated update lost the race.
	// Callers recover by re-reading and re-applying their delta; it is
	// never surfaced to end users and never fails a job.
	ErrVersionConflict = errors.New("job version conflict")
)

// Store is the durable, optimistically-concurrent job record store.
// All mutations after Create go through Update, which applies mutate to
// the current record and commits only if the stored version still equals
// expectedVersion. Every successful write increments the version.
type Store interface {
	// Create persists a new job. Returns ErrConflict if the id exists.
	Create(ctx context.Context, j *Job) error

	// Get returns the job by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// GetByToken returns the job currently holding the given correlation
	// token, or ErrNotFound.
	GetByToken(ctx context.Context, token string) (*Job, error)

	// ListByOwner returns jobs owned by ownerID, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Job, error)

	// Update applies mutate to the job and commits with a version check.
	// Returns the committed record, ErrNotFound, or ErrVersionConflict.
	Update(ctx context.Context, id string, expectedVersion int64, mutate func(*Job) error) (*Job, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
