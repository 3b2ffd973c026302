package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heimdex/gifforge/internal/faults"
)

// Executor runs the pipeline for one job. report is called on every stage
// change with one of the Status* values.
type Executor interface {
	Execute(ctx context.Context, job *Job, report func(status string)) ([]Clip, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, job *Job, report func(status string)) ([]Clip, error)

func (f ExecutorFunc) Execute(ctx context.Context, job *Job, report func(status string)) ([]Clip, error) {
	return f(ctx, job, report)
}

// Ticket tracks a submitted job until it reaches a terminal state.
type Ticket struct {
	JobID string

	done  chan struct{}
	clips []Clip
	err   error
}

// Done is closed once the job finished, successfully or not.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Result is valid after Done is closed.
func (t *Ticket) Result() ([]Clip, error) { return t.clips, t.err }

type task struct {
	job    *Job
	ticket *Ticket
}

type RunnerOptions struct {
	Workers   int
	QueueSize int
	// JobTimeout bounds a single job; zero disables the deadline.
	JobTimeout time.Duration
}

// Runner is a fixed-size worker pool fed by a bounded queue.
type Runner struct {
	repo   Repository
	exec   Executor
	logger *slog.Logger
	opts   RunnerOptions

	queue   chan task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	running atomic.Bool
	active  atomic.Int32
}

func NewRunner(repo Repository, exec Executor, opts RunnerOptions, logger *slog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	return &Runner{
		repo:   repo,
		exec:   exec,
		logger: logger,
		opts:   opts,
		queue:  make(chan task, opts.QueueSize),
	}
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks
// until they have.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started", "workers", r.opts.Workers, "queue_size", r.opts.QueueSize)

	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
	}()
}

// Wait blocks until every worker has exited and drains jobs left queued.
func (r *Runner) Wait() {
	r.wg.Wait()
	for {
		select {
		case t := <-r.queue:
			r.finish(t, nil, faults.Wrap(faults.ErrBusy, "queue", "drain", "service shutting down", nil))
		default:
			r.running.Store(false)
			r.logger.Info("job runner stopped")
			return
		}
	}
}

// Submit registers job and queues it. A full queue fails fast with
// faults.ErrBusy and the job is recorded as failed.
func (r *Runner) Submit(ctx context.Context, job *Job) (*Ticket, error) {
	if job.Status == "" {
		job.Status = StatusPending
	}
	if err := r.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	t := task{job: job, ticket: &Ticket{JobID: job.ID, done: make(chan struct{})}}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped || !r.running.Load() {
		err := faults.Wrap(faults.ErrBusy, "queue", "submit", "job runner is not accepting work", nil)
		r.markFailed(job.ID, err)
		return nil, err
	}

	select {
	case r.queue <- t:
		r.logger.Info("job queued", "job_id", job.ID, "source_kind", job.SourceKind)
		return t.ticket, nil
	default:
		err := faults.Wrap(faults.ErrBusy, "queue", "submit", "job queue is full", nil)
		r.markFailed(job.ID, err)
		return nil, err
	}
}

// ActiveJobs is the number of jobs currently executing.
func (r *Runner) ActiveJobs() int {
	return int(r.active.Load())
}

// QueuedJobs is the number of jobs waiting for a worker.
func (r *Runner) QueuedJobs() int {
	return len(r.queue)
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			r.run(ctx, t, id)
		}
	}
}

func (r *Runner) run(parent context.Context, t task, worker int) {
	r.active.Add(1)
	defer r.active.Add(-1)

	ctx := parent
	if r.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.opts.JobTimeout)
		defer cancel()
	}

	job := t.job
	logger := r.logger.With("job_id", job.ID, "worker", worker)
	logger.Info("processing job", "source_kind", job.SourceKind)
	started := time.Now()

	report := func(status string) {
		job.Status = status
		if err := r.repo.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, status, ""); err != nil {
			logger.Warn("failed to update job status", "status", status, "error", err)
		}
	}

	clips, err := r.execute(ctx, job, report)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("job timed out after %s: %w", r.opts.JobTimeout, err)
	}

	if err != nil {
		logger.Error("job failed", "error", err, "duration", time.Since(started))
	} else {
		logger.Info("job completed", "clips", len(clips), "duration", time.Since(started))
	}
	r.finish(t, clips, err)
}

func (r *Runner) execute(ctx context.Context, job *Job, report func(string)) (clips []Clip, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return r.exec.Execute(ctx, job, report)
}

func (r *Runner) finish(t task, clips []Clip, err error) {
	ctx := context.Background()
	if err != nil {
		r.markFailed(t.job.ID, err)
	} else {
		if storeErr := r.repo.ReplaceClips(ctx, t.job.ID, clips); storeErr != nil {
			err = fmt.Errorf("store clips: %w", storeErr)
			r.markFailed(t.job.ID, err)
		} else if storeErr := r.repo.UpdateJobStatus(ctx, t.job.ID, StatusDone, ""); storeErr != nil {
			r.logger.Warn("failed to mark job done", "job_id", t.job.ID, "error", storeErr)
		}
	}
	if err != nil {
		clips = nil
	}
	t.ticket.clips = clips
	t.ticket.err = err
	close(t.ticket.done)
}

func (r *Runner) markFailed(id string, cause error) {
	if err := r.repo.UpdateJobStatus(context.Background(), id, StatusFailed, cause.Error()); err != nil {
		r.logger.Warn("failed to mark job failed", "job_id", id, "error", err)
	}
}
