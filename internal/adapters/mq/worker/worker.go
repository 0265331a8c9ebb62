// Package worker runs asynchronous curve fits off the job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/phytokit/screen/internal/domain/doseresponse"
	"github.com/phytokit/screen/internal/domain/model"
	"github.com/phytokit/screen/pkg/logger"
	"github.com/phytokit/screen/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU(); fits are CPU-bound
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.FitJob

// Outcome is a completed fit delivered to the recorder.
type Outcome struct {
	JobID   string
	CurveID string
	Result  doseresponse.FitResult
}

// Recorder persists completed fit outcomes.
type Recorder interface {
	RecordOutcome(ctx context.Context, out Outcome) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes fit jobs and delivers outcomes to the recorder.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing fit jobs.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing fit job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob fits a single curve and records the outcome.
func (w *InMemoryWorker) processJob(ctx context.Context, job Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
	}()

	prefer := doseresponse.ParsePreference(job.Prefer)
	res, err := doseresponse.AutoFit(ctx, job.Conc, job.Resp, prefer,
		doseresponse.WithSelectLogger(w.logger))
	metrics.RecordFitDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordFitFailure(failureKind(err))
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "fit failed for job",
			logger.String("jobID", job.JobID),
			logger.String("curveID", job.CurveID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to fit curve %s: %w", job.CurveID, err)
	}

	metrics.RecordFit(string(res.Model))
	metrics.RecordFitR2(res.R2)

	out := Outcome{JobID: job.JobID, CurveID: job.CurveID, Result: res}
	if err := w.recorder.RecordOutcome(ctx, out); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "recording outcome failed for job",
			logger.String("jobID", job.JobID),
			logger.Error(err),
		)
		return fmt.Errorf("recording outcome failed: %w", err)
	}
	return nil
}

func failureKind(err error) string {
	var conv *doseresponse.ConvergenceError
	switch {
	case errors.Is(err, doseresponse.ErrInsufficientData):
		return "insufficient_data"
	case errors.As(err, &conv):
		return "convergence"
	default:
		return "other"
	}
}

// Pool manages multiple workers reading from one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	recorder Recorder

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount sizes the
// pool from the CPU count.
func NewPool(workerCount int, queue Queue, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		recorder: recorder,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, recorder,
			WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for all workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
