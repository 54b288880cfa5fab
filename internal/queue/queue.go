// Package queue serializes generation jobs against the single-GPU backend.
//
// Producers call Submit concurrently; exactly one worker goroutine drains the
// FIFO and invokes the backend, so two jobs are never in flight at once. The
// worker is also the only writer of the latency statistics, which keeps
// snapshot reads cheap.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"psyched/internal/backend"
	"psyched/internal/stats"
	"psyched/pkg/types"
)

// Job is one unit of work owned by the queue from Submit until completion.
type Job struct {
	ID          uint64
	Image       []byte
	Prompt      string
	Params      backend.Params
	Count       int // 0 or 1 means single-image
	SubmittedAt time.Time
}

// Result carries the backend output back to the submitter.
type Result struct {
	Images  [][]byte
	Elapsed time.Duration
}

type task struct {
	job  Job
	res  chan Result
	fail chan error
}

// Queue is the FIFO admission queue plus its running statistics.
type Queue struct {
	gen     backend.Generator
	log     zerolog.Logger
	tasks   chan *task
	maxWait time.Duration

	mu     sync.Mutex
	mean   stats.Mean
	active int

	startOnce sync.Once
	done      chan struct{}
}

// Config holds queue tunables.
type Config struct {
	MaxDepth int
	MaxWait  time.Duration
}

const (
	defaultMaxDepth = 32
	defaultMaxWait  = 30 * time.Second
)

// New constructs a Queue. Start must be called before Submit is useful.
func New(gen backend.Generator, cfg Config, log zerolog.Logger) *Queue {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	return &Queue{
		gen:     gen,
		log:     log,
		tasks:   make(chan *task, cfg.MaxDepth),
		maxWait: cfg.MaxWait,
		done:    make(chan struct{}),
	}
}

// Start launches the single worker goroutine. It exits when ctx is canceled.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		go q.run(ctx)
	})
}

// Done is closed once the worker goroutine has exited.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Submit enqueues a job and blocks until its result, its failure, or ctx.
// Enqueueing waits at most maxWait for a queue slot before failing fast with
// a too-busy error. A caller that goes away mid-flight does not cancel the
// backend call; the orphaned result is discarded by the worker.
func (q *Queue) Submit(ctx context.Context, job Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	t := &task{job: job, res: make(chan Result, 1), fail: make(chan error, 1)}
	timer := time.NewTimer(q.maxWait)
	defer timer.Stop()
	select {
	case q.tasks <- t:
		queueDepth.Set(float64(len(q.tasks)))
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
		queueRejectsTotal.Inc()
		return Result{}, ErrTooBusy()
	}

	select {
	case r := <-t.res:
		return r, nil
	case err := <-t.fail:
		return Result{}, err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			queueDepth.Set(float64(len(q.tasks)))
			q.process(ctx, t)
		}
	}
}

// process runs one job to completion. Backend failures are delivered to the
// owning submitter only and never update the latency mean.
func (q *Queue) process(ctx context.Context, t *task) {
	q.setActive(1)
	defer q.setActive(0)

	start := time.Now()
	images, err := q.invoke(ctx, t.job)
	elapsed := time.Since(start)

	if err != nil {
		jobsTotal.WithLabelValues("error").Inc()
		q.log.Error().Uint64("job_id", t.job.ID).Dur("elapsed", elapsed).Err(err).Msg("generation failed")
		t.fail <- err
		return
	}

	q.mu.Lock()
	q.mean.Observe(float64(elapsed.Milliseconds()))
	q.mu.Unlock()

	jobsTotal.WithLabelValues("ok").Inc()
	jobDuration.Observe(elapsed.Seconds())
	q.log.Debug().Uint64("job_id", t.job.ID).Dur("elapsed", elapsed).Int("images", len(images)).Msg("generation complete")
	t.res <- Result{Images: images, Elapsed: elapsed}
}

func (q *Queue) invoke(ctx context.Context, job Job) ([][]byte, error) {
	if job.Count > 1 {
		return q.gen.GenerateBatch(ctx, job.Image, job.Prompt, job.Count, job.Params)
	}
	img, err := q.gen.Generate(ctx, job.Image, job.Prompt, job.Params)
	if err != nil {
		return nil, err
	}
	return [][]byte{img}, nil
}

func (q *Queue) setActive(n int) {
	q.mu.Lock()
	q.active = n
	q.mu.Unlock()
}

// Stats returns a consistent snapshot of queue health. Non-blocking beyond
// a brief mutex hold; safe to call concurrently with the worker.
func (q *Queue) Stats() types.QueueStatusResponse {
	depth := len(q.tasks)
	q.mu.Lock()
	defer q.mu.Unlock()
	avg := q.mean.Value()
	return types.QueueStatusResponse{
		QueueLength:         depth,
		ActiveRequests:      q.active,
		AvgProcessingTimeMs: avg,
		EstimatedWaitTimeMs: avg * float64(depth),
		CompletedJobs:       q.mean.Count(),
	}
}
