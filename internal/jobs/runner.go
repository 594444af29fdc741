package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Yates-Labs/folio/internal/logging"
)

// Func is the work of a job. It returns the number of documents produced.
type Func func(ctx context.Context) (int, error)

// Observer is told when a job reaches a terminal state.
type Observer interface {
	JobFinished(kind string, status Status, elapsed time.Duration)
}

// Runner executes jobs on their own goroutines, detached from the request
// that submitted them, and records every status change in a Store.
type Runner struct {
	store    Store
	timeout  time.Duration
	observer Observer
	logger   zerolog.Logger

	wg sync.WaitGroup
}

// NewRunner creates a runner. A zero timeout lets jobs run unbounded.
func NewRunner(store Store, timeout time.Duration) *Runner {
	return &Runner{
		store:   store,
		timeout: timeout,
		logger:  logging.Component("jobs"),
	}
}

// SetObserver installs o to be told about finished jobs.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

// Submit records job as pending and starts fn in the background. ID, Kind
// and CreatedAt are filled in when empty. ctx bounds only the initial save.
func (r *Runner) Submit(ctx context.Context, job Job, fn Func) (Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Kind == "" {
		job.Kind = KindIndexBook
	}
	job.Status = StatusPending
	job.CreatedAt = time.Now().UTC()

	if err := r.store.Save(ctx, job); err != nil {
		return Job{}, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(job, fn)
	}()

	r.logger.Info().Str("job_id", job.ID).Str("index", job.IndexName).Msg("Job submitted")
	return job, nil
}

// Get returns the current record of job id.
func (r *Runner) Get(ctx context.Context, id string) (Job, error) {
	return r.store.Get(ctx, id)
}

// Wait blocks until every submitted job has finished or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(job Job, fn Func) {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &started
	r.save(job)

	n, err := safeCall(ctx, fn)

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.Documents = n
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		r.logger.Error().Err(err).Str("job_id", job.ID).Str("index", job.IndexName).Msg("Job failed")
	} else {
		job.Status = StatusSucceeded
		r.logger.Info().Str("job_id", job.ID).Str("index", job.IndexName).Int("documents", n).
			Msg("Job succeeded")
	}
	r.save(job)

	if r.observer != nil {
		r.observer.JobFinished(job.Kind, job.Status, finished.Sub(started))
	}
}

// save records job with a fresh context; a failure is logged only.
func (r *Runner) save(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, job); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Str("status", string(job.Status)).Msg("Failed to record job status")
	}
}

func safeCall(ctx context.Context, fn Func) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return fn(ctx)
}
