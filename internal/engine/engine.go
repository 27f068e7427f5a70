// Package engine drives jobs through the analysis workflow.
//
// The engine is a state machine over the job record store: it executes
// the stage handler bound to the job's current status, applies the
// handler's delta through a version-gated update, and advances. The
// only suspension point is the transition into ANALYSIS_PENDING; resuming
// is a fresh invocation triggered by a correlated completion event, not
// a blocked goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/intakehq/intake/internal/analysis"
	"github.com/intakehq/intake/internal/blob"
	"github.com/intakehq/intake/internal/extract"
	"github.com/intakehq/intake/internal/forms"
	"github.com/intakehq/intake/internal/job"
)

// updateAttempts bounds version-conflict retries within one invocation.
// Conflicts mean another invocation is driving the same job; after a few
// re-reads the loser abandons.
const updateAttempts = 3

// Stage names recorded in failure diagnostics.
const (
	StageInitialize        = "Initialize"
	StageTriggerAnalysis   = "TriggerAnalysis"
	StageExtractResults    = "ExtractResults"
	StageStructuredExtract = "StructuredExtract"
	StageValidate          = "Validate"
)

// Engine executes stage handlers and owns all job status mutations.
type Engine struct {
	store     job.Store
	blobs     blob.Store
	analysis  analysis.Backend
	extractor extract.Backend
	logger    *slog.Logger

	handlers map[job.Status]handler
}

// Config assembles an Engine.
type Config struct {
	Store     job.Store
	Blobs     blob.Store
	Analysis  analysis.Backend
	Extractor extract.Backend
	Logger    *slog.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Analysis == nil {
		return nil, fmt.Errorf("analysis backend is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extraction backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		store:     cfg.Store,
		blobs:     cfg.Blobs,
		analysis:  cfg.Analysis,
		extractor: cfg.Extractor,
		logger:    cfg.Logger,
	}
	e.handlers = map[job.Status]handler{
		job.StatusCreated:           e.initialize,
		job.StatusInitializing:      e.triggerAnalysis,
		job.StatusExtractingResults: e.extractResults,
		job.StatusProcessingData:    e.structuredExtract,
		job.StatusValidating:        e.validate,
	}
	return e, nil
}

// CreateJob seeds a CREATED job. The caller schedules the first Run.
func (e *Engine) CreateJob(ctx context.Context, ownerID, sourceRef string, schema *forms.Schema) (*job.Job, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if sourceRef == "" {
		return nil, fmt.Errorf("source ref is required")
	}
	if schema != nil {
		if err := schema.Check(); err != nil {
			return nil, fmt.Errorf("invalid form schema: %w", err)
		}
	}

	j := job.New(ownerID, sourceRef, schema)
	if err := e.store.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	e.logger.Info("job created", "job_id", j.ID, "owner_id", ownerID, "source_ref", sourceRef)
	return j, nil
}

// Run drives the job from its current state until it suspends, reaches
// a terminal state, or loses a write race to a concurrent invocation.
func (e *Engine) Run(ctx context.Context, jobID string) error {
	j, err := e.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	return e.run(ctx, j)
}

func (e *Engine) run(ctx context.Context, j *job.Job) error {
	for {
		if j.Status.Terminal() || j.Status == job.StatusAnalysisPending {
			return nil
		}

		h, ok := e.handlers[j.Status]
		if !ok {
			return fmt.Errorf("no handler for status %s", j.Status)
		}

		st, err := h(ctx, j)
		if err != nil {
			return e.fail(ctx, j, st.stage, err)
		}

		next, err := e.advance(ctx, j, st)
		if err != nil {
			if errors.Is(err, errSuperseded) {
				// Another invocation committed this transition first.
				// Its engine run owns the job now.
				e.logger.Debug("transition superseded", "job_id", j.ID, "stage", st.stage)
				return nil
			}
			return err
		}
		j = next

		e.logger.Info("stage complete", "job_id", j.ID, "stage", st.stage, "status", j.Status)

		if st.suspend {
			e.logger.Info("job suspended", "job_id", j.ID)
			return nil
		}
	}
}

// handler executes the stage bound to the job's current status and
// describes the resulting transition. Handlers must be idempotent: the
// execution environment may re-invoke them after a crash between the
// side effect and the persisted transition.
type handler func(ctx context.Context, j *job.Job) (step, error)

// step is a stage handler outcome: the delta to apply and the state to
// advance to, or a suspension carrying a freshly minted token.
type step struct {
	stage   string
	next    job.Status
	apply   func(*job.Job)
	suspend bool
	token   string
}

// errSuperseded marks a transition that was abandoned because another
// writer already moved the job.
var errSuperseded = errors.New("transition superseded")

// advance commits a step through the conditional-update contract.
// On version conflict it re-reads: observing the post-transition state
// is treated as success (the transition is already applied); observing
// the pre-transition state retries; anything else abandons.
func (e *Engine) advance(ctx context.Context, j *job.Job, st step) (*job.Job, error) {
	from := j.Status
	if !from.CanTransition(st.next) {
		return nil, fmt.Errorf("invalid transition %s -> %s for job %s", from, st.next, j.ID)
	}

	cur := j
	for attempt := 0; attempt < updateAttempts; attempt++ {
		updated, err := e.store.Update(ctx, cur.ID, cur.Version, func(row *job.Job) error {
			if row.Status != from {
				return errSuperseded
			}
			if st.apply != nil {
				st.apply(row)
			}
			row.Status = st.next
			if st.suspend {
				row.CorrelationToken = st.token
			} else {
				row.CorrelationToken = ""
			}
			return nil
		})
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, errSuperseded) {
			return nil, errSuperseded
		}
		if !errors.Is(err, job.ErrVersionConflict) {
			return nil, fmt.Errorf("commit %s for job %s: %w", st.stage, cur.ID, err)
		}

		// Lost the race: re-read and decide.
		fresh, gerr := e.store.Get(ctx, cur.ID)
		if gerr != nil {
			return nil, fmt.Errorf("reload job %s: %w", cur.ID, gerr)
		}
		switch fresh.Status {
		case st.next:
			// Already applied by a concurrent invocation; not an error.
			return fresh, errSuperseded
		case from:
			cur = fresh
		default:
			return nil, errSuperseded
		}
	}
	return nil, fmt.Errorf("commit %s for job %s: %w", st.stage, cur.ID, job.ErrVersionConflict)
}

// fail transitions the job to FAILED with a structured diagnostic.
// Version conflicts here mean someone else already settled the job.
func (e *Engine) fail(ctx context.Context, j *job.Job, stage string, cause error) error {
	kind := job.KindBackendUnavailable
	var staged *stageError
	if errors.As(cause, &staged) {
		kind = staged.kind
	}

	e.logger.Error("stage failed", "job_id", j.ID, "stage", stage, "kind", kind, "error", cause)

	cur := j
	for attempt := 0; attempt < updateAttempts; attempt++ {
		_, err := e.store.Update(ctx, cur.ID, cur.Version, func(row *job.Job) error {
			if row.Status.Terminal() {
				return errSuperseded
			}
			row.Status = job.StatusFailed
			row.CorrelationToken = ""
			row.Error = &job.Failure{Kind: kind, Message: cause.Error(), Stage: stage}
			return nil
		})
		if err == nil || errors.Is(err, errSuperseded) {
			return nil
		}
		if !errors.Is(err, job.ErrVersionConflict) {
			return fmt.Errorf("record failure for job %s: %w", cur.ID, err)
		}
		fresh, gerr := e.store.Get(ctx, cur.ID)
		if gerr != nil {
			return fmt.Errorf("reload job %s: %w", cur.ID, gerr)
		}
		if fresh.Status.Terminal() {
			return nil
		}
		cur = fresh
	}
	return fmt.Errorf("record failure for job %s: %w", cur.ID, job.ErrVersionConflict)
}

// stageError carries an error kind for the failure diagnostic.
type stageError struct {
	kind string
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failKind(kind string, err error) error {
	return &stageError{kind: kind, err: err}
}
