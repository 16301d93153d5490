package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mapposter/internal/domain"
	"mapposter/internal/lifecycle"
	"mapposter/internal/metrics"
	"mapposter/internal/render"
)

type task struct {
	jobID string
	req   domain.PosterRequest
}

// Dispatcher runs renders off the request path on a bounded worker pool.
// Submissions queue FIFO in a bounded channel; a full queue is reported to
// the caller instead of growing without bound.
type Dispatcher struct {
	manager       *lifecycle.Manager
	renderer      render.Renderer
	queue         chan task
	slots         chan struct{}
	renderTimeout time.Duration
	logger        zerolog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

func New(manager *lifecycle.Manager, renderer render.Renderer, workers, queueSize int, renderTimeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if renderTimeout <= 0 {
		renderTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:       manager,
		renderer:      renderer,
		queue:         make(chan task, queueSize),
		slots:         make(chan struct{}, queueSize),
		renderTimeout: renderTimeout,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Info().Int("workers", workers).Int("queue_size", queueSize).Msg("dispatcher started")
	return d
}

// Dispatch admits a validated request: it reserves a queue slot, creates
// the pending job record and schedules the render, returning the job
// without waiting on the renderer. A full queue fails with ErrQueueFull
// before any record is created.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.PosterRequest) (*domain.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.reserveLocked(); err != nil {
		return nil, err
	}
	job, err := d.manager.CreateJob(ctx, req)
	if err != nil {
		<-d.slots
		return nil, err
	}
	d.enqueueLocked(task{jobID: job.ID, req: req})
	return job, nil
}

// Submit schedules a render for a job record that already exists (pending).
// Never blocks on the renderer; a full queue fails with ErrQueueFull.
func (d *Dispatcher) Submit(jobID string, req domain.PosterRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.reserveLocked(); err != nil {
		return err
	}
	d.enqueueLocked(task{jobID: jobID, req: req})
	return nil
}

// reserveLocked claims one queue slot without blocking. Slots are released
// as workers dequeue, so a successful reservation guarantees the later
// channel send cannot block.
func (d *Dispatcher) reserveLocked() error {
	if d.stopped {
		return fmt.Errorf("dispatcher stopped: %w", domain.ErrQueueFull)
	}
	select {
	case d.slots <- struct{}{}:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

func (d *Dispatcher) enqueueLocked(t task) {
	d.queue <- t
	metrics.QueueDepth.Set(float64(len(d.queue)))
}

// Stop drains in-flight work. Queued tasks that have not started are still
// executed; no new submissions are accepted.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.queue)
	d.wg.Wait()
	d.cancel()
	d.logger.Info().Msg("dispatcher stopped")
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for t := range d.queue {
		<-d.slots
		metrics.QueueDepth.Set(float64(len(d.queue)))
		d.run(id, t)
	}
}

// run executes one render task. Every failure mode, including a panic in
// the renderer, resolves to a failed transition; nothing escapes to crash
// the pool.
func (d *Dispatcher) run(workerID int, t task) {
	log := d.logger.With().Int("worker_id", workerID).Str("job_id", t.jobID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("render task panicked")
			d.fail(t.jobID, fmt.Sprintf("render task panicked: %v", r))
		}
	}()

	if err := d.manager.MarkProcessing(d.ctx, t.jobID); err != nil {
		log.Error().Err(err).Msg("cannot mark job processing")
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.renderTimeout)
	defer cancel()

	start := time.Now()
	path, err := d.renderer.Render(ctx, t.jobID, t.req)
	metrics.RenderDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Warn().Err(err).Msg("render failed")
		d.fail(t.jobID, err.Error())
		return
	}

	if err := d.manager.MarkCompleted(d.ctx, t.jobID, path); err != nil {
		log.Error().Err(err).Msg("cannot mark job completed")
	}
}

func (d *Dispatcher) fail(jobID, reason string) {
	// Transition errors here mean the job already reached a terminal state;
	// log and move on, one job's trouble never takes down the pool.
	if err := d.manager.MarkFailed(d.ctx, jobID, reason); err != nil {
		d.logger.Error().Err(err).Str("job_id", jobID).Msg("cannot mark job failed")
	}
}
