package qec

import (
	"time"
)

// Worker processes jobs
type Worker struct {
	pool *Q
	jobs chan Job
}

func (w *Worker) run() {
	ctx := w.pool.ctx
	for {
		select {
		case w.pool.workers <- w.jobs:
		case <-ctx.Done():
			return
		}

		select {
		case job := <-w.jobs:
			job.result <- w.processJob(job)
		case <-ctx.Done():
			return
		}
	}
}

// processJob runs the job on the caller's context. Panics are not recovered:
// they signal a broken invariant, not a failed trial.
func (w *Worker) processJob(job Job) Result {
	started := time.Now()
	res := Result{JobID: job.ID}

	if err := job.ctx.Err(); err != nil {
		res.Error = err
	} else {
		res.Value, res.Error = job.Fn(job.ctx)
	}

	res.CreatedAt = time.Now()
	res.Duration = res.CreatedAt.Sub(started)
	w.pool.metrics.recordCall(job.StartTime, res.Error == nil)

	if res.Error != nil {
		w.pool.log.Debug().Str("job", job.ID).Err(res.Error).Msg("job failed")
	}
	return res
}
