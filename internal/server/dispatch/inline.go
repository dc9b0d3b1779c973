package dispatch

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mindwell/internal/logging"
	"golang.org/x/sync/semaphore"
)

// Inline runs jobs in goroutines of the current process. At most
// concurrency jobs run at once; the rest wait for a slot.
type Inline struct {
	base   context.Context
	runner Runner
	logger logging.Logger
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// NewInline binds job lifetimes to base rather than to the submitting
// request, which ends as soon as the job is accepted.
func NewInline(base context.Context, runner Runner, logger logging.Logger, concurrency int) *Inline {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Inline{
		base:   base,
		runner: runner,
		logger: logger.With("module", "dispatch"),
		sem:    semaphore.NewWeighted(int64(concurrency)),
	}
}

func (d *Inline) Dispatch(_ context.Context, jobID string) error {
	if d.base.Err() != nil {
		return ErrStopped
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.sem.Acquire(d.base, 1); err != nil {
			d.logger.Warn(d.base, "job not started before shutdown", "job_id", jobID)
			return
		}
		defer d.sem.Release(1)

		if err := d.runner.Run(d.base, jobID); err != nil {
			d.logger.Debug(d.base, "job ended with error", "job_id", jobID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has returned.
func (d *Inline) Wait() {
	d.wg.Wait()
}
