package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/intakehq/intake/internal/analysis"
)

// task is one schedulable engine invocation: either the first run of a
// job or a resumption driven by a completion event.
type task struct {
	jobID string
	event *analysis.CompletionEvent
}

// Runner executes engine invocations on a small worker pool. Each
// invocation runs to the next suspension or terminal state and returns;
// nothing holds a worker across the suspension point.
type Runner struct {
	engine *Engine
	logger *slog.Logger
	queue  chan task
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Engine    *Engine
	Logger    *slog.Logger
	QueueSize int // buffered queue size (default 256)
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Runner{
		engine: cfg.Engine,
		logger: logger,
		queue:  make(chan task, queueSize),
	}
}

// Enqueue schedules the first engine run for a job.
func (r *Runner) Enqueue(jobID string) {
	r.submit(task{jobID: jobID})
}

// EnqueueEvent schedules correlation of a completion event.
func (r *Runner) EnqueueEvent(ev analysis.CompletionEvent) {
	r.submit(task{event: &ev})
}

func (r *Runner) submit(t task) {
	select {
	case r.queue <- t:
	default:
		r.logger.Warn("runner queue full, dropping task", "job_id", t.jobID)
	}
}

// RunWorkers starts numWorkers goroutines that process the queue until
// ctx is cancelled. Call this once at startup.
func (r *Runner) RunWorkers(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	r.logger.Info("starting engine workers", "count", numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			r.workerLoop(ctx, workerNum)
		}(i)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		r.logger.Info("engine workers stopped")
	}()
}

func (r *Runner) workerLoop(ctx context.Context, workerNum int) {
	logger := r.logger.With("worker_num", workerNum)
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopping")
			return

		case t := <-r.queue:
			r.process(ctx, t)
		}
	}
}

func (r *Runner) process(ctx context.Context, t task) {
	var err error
	if t.event != nil {
		err = r.engine.HandleEvent(ctx, *t.event)
	} else {
		err = r.engine.Run(ctx, t.jobID)
	}
	if err != nil {
		r.logger.Error("engine invocation failed", "job_id", t.jobID, "error", err)
	}
}

// Pending returns the number of queued tasks.
func (r *Runner) Pending() int {
	return len(r.queue)
}
