package qec

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Q is a fixed-size worker pool for independent trials
type Q struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	workers    chan chan Job
	jobs       chan Job
	metrics    *Metrics
	workerMu   sync.Mutex
	workerList []*Worker
	log        zerolog.Logger
}

// NewQ starts a pool with the given number of workers; n <= 0 uses one per CPU
func NewQ(ctx context.Context, n int, log zerolog.Logger) *Q {
	if n <= 0 {
		n = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	q := &Q{
		ctx:        ctx,
		cancel:     cancel,
		workerList: make([]*Worker, 0, n),
		jobs:       make(chan Job, n*10),
		workers:    make(chan chan Job, n),
		metrics:    NewMetrics(),
		log:        log,
	}

	for i := 0; i < n; i++ {
		q.startWorker()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.manage()
	}()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.collectMetrics()
	}()

	return q
}

// Pool management
func (q *Q) manage() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			select {
			case <-q.ctx.Done():
				job.result <- Result{JobID: job.ID, Error: fmt.Errorf("pool closed: %w", q.ctx.Err()), CreatedAt: time.Now()}
				return
			case workerChan := <-q.workers:
				select {
				case workerChan <- job:
				case <-q.ctx.Done():
					job.result <- Result{JobID: job.ID, Error: fmt.Errorf("pool closed: %w", q.ctx.Err()), CreatedAt: time.Now()}
					return
				}
			}
		}
	}
}

func (q *Q) collectMetrics() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.metrics.mu.Lock()
			q.metrics.JobQueueSize = len(q.jobs)
			q.metrics.IdleWorkers = len(q.workers)
			q.metrics.mu.Unlock()
		}
	}
}

/*
Schedule queues fn and returns a channel that receives exactly one Result.
The job runs with ctx, so cancelling ctx cancels the oracle calls inside it.
If ctx or the pool ends before the job is queued, the Result carries the
cancellation error instead.
*/
func (q *Q) Schedule(ctx context.Context, id string, fn func(ctx context.Context) (any, error)) chan Result {
	job := Job{
		ID:        id,
		Fn:        fn,
		StartTime: time.Now(),
		ctx:       ctx,
		result:    make(chan Result, 1),
	}

	select {
	case q.jobs <- job:
		return job.result
	case <-ctx.Done():
		job.result <- Result{JobID: id, Error: fmt.Errorf("job scheduling cancelled: %w", ctx.Err()), CreatedAt: time.Now()}
	case <-q.ctx.Done():
		job.result <- Result{JobID: id, Error: fmt.Errorf("pool closed: %w", q.ctx.Err()), CreatedAt: time.Now()}
	}

	q.metrics.mu.Lock()
	q.metrics.SchedulingFailures++
	q.metrics.mu.Unlock()
	return job.result
}

// Metrics returns the pool's job metrics.
func (q *Q) Metrics() *Metrics {
	return q.metrics
}

// Helper functions
func (q *Q) startWorker() {
	worker := &Worker{
		pool: q,
		jobs: make(chan Job),
	}
	q.workerMu.Lock()
	q.workerList = append(q.workerList, worker)
	q.workerMu.Unlock()

	q.metrics.mu.Lock()
	q.metrics.WorkerCount++
	count := q.metrics.WorkerCount
	q.metrics.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		worker.run()
	}()
	q.log.Debug().Int("workers", count).Msg("started worker")
}

// Close stops the workers and waits for running jobs to return.
func (q *Q) Close() {
	if q == nil {
		return
	}

	q.cancel()
	q.wg.Wait()

	q.workerMu.Lock()
	q.workerList = nil
	q.workerMu.Unlock()

	q.log.Debug().Msg("pool closed")
}
