package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mapposter/internal/domain"
	"mapposter/internal/lifecycle"
	"mapposter/internal/store"
)

type fakeRenderer struct {
	mu      sync.Mutex
	fn      func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error)
	active  int32
	maxSeen int32
}

func (f *fakeRenderer) Render(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, jobID, req)
	}
	return "/posters/" + jobID + ".png", nil
}

type fixture struct {
	store   *store.SQLite
	manager *lifecycle.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &fixture{store: s, manager: lifecycle.NewManager(s, zerolog.Nop())}
}

func (f *fixture) createJob(t *testing.T) *domain.Job {
	t.Helper()
	req := domain.PosterRequest{City: "Paris", Country: "France"}
	req.ApplyDefaults()
	job, err := f.manager.CreateJob(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

func (f *fixture) waitTerminal(t *testing.T, jobID string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.Get(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return nil
}

func TestSuccessfulRender(t *testing.T) {
	fx := newFixture(t)
	renderer := &fakeRenderer{}
	d := New(fx.manager, renderer, 2, 8, time.Minute, zerolog.Nop())
	defer d.Stop()

	job := fx.createJob(t)
	if err := d.Submit(job.ID, job.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := fx.waitTerminal(t, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("status = %q, want completed (error=%q)", got.Status, got.Error)
	}
	if got.PosterPath == "" || got.CompletedAt == nil {
		t.Errorf("completed job missing terminal fields: %+v", got)
	}
}

func TestRendererErrorBecomesFailedJob(t *testing.T) {
	fx := newFixture(t)
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		return "", fmt.Errorf("%w: simulated OSM outage", domain.ErrRenderFailed)
	}}
	d := New(fx.manager, renderer, 1, 8, time.Minute, zerolog.Nop())
	defer d.Stop()

	job := fx.createJob(t)
	if err := d.Submit(job.ID, job.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := fx.waitTerminal(t, job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error == "" || got.CompletedAt == nil {
		t.Errorf("failed job missing error/completed_at: %+v", got)
	}
}

func TestPanicIsIsolated(t *testing.T) {
	fx := newFixture(t)
	var calls int32
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("renderer blew up")
		}
		return "/posters/" + jobID + ".png", nil
	}}
	d := New(fx.manager, renderer, 1, 8, time.Minute, zerolog.Nop())
	defer d.Stop()

	bad := fx.createJob(t)
	good := fx.createJob(t)
	if err := d.Submit(bad.ID, bad.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.Submit(good.ID, good.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	gotBad := fx.waitTerminal(t, bad.ID)
	if gotBad.Status != domain.JobStatusFailed || gotBad.Error == "" {
		t.Errorf("panicked job = %q (%q), want failed with message", gotBad.Status, gotBad.Error)
	}
	// The worker that recovered must keep serving the queue.
	gotGood := fx.waitTerminal(t, good.ID)
	if gotGood.Status != domain.JobStatusCompleted {
		t.Errorf("job after panic = %q, want completed", gotGood.Status)
	}
}

func TestRenderTimeoutFailsJob(t *testing.T) {
	fx := newFixture(t)
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		<-ctx.Done()
		return "", fmt.Errorf("%w: render timed out", domain.ErrRenderFailed)
	}}
	d := New(fx.manager, renderer, 1, 8, 50*time.Millisecond, zerolog.Nop())
	defer d.Stop()

	job := fx.createJob(t)
	if err := d.Submit(job.ID, job.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got := fx.waitTerminal(t, job.ID)
	if got.Status != domain.JobStatusFailed {
		t.Errorf("status = %q, want failed after timeout", got.Status)
	}
}

func TestConcurrencyBound(t *testing.T) {
	fx := newFixture(t)
	gate := make(chan struct{})
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		<-gate
		return "/posters/" + jobID + ".png", nil
	}}
	const workers = 2
	d := New(fx.manager, renderer, workers, 16, time.Minute, zerolog.Nop())
	defer d.Stop()

	var jobs []*domain.Job
	for i := 0; i < 6; i++ {
		job := fx.createJob(t)
		jobs = append(jobs, job)
		if err := d.Submit(job.ID, job.Request); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	time.Sleep(100 * time.Millisecond)
	close(gate)
	for _, job := range jobs {
		fx.waitTerminal(t, job.ID)
	}

	if max := atomic.LoadInt32(&renderer.maxSeen); max > workers {
		t.Errorf("observed %d concurrent renders, bound is %d", max, workers)
	}
}

func TestQueueFullBackpressure(t *testing.T) {
	fx := newFixture(t)
	gate := make(chan struct{})
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		<-gate
		return "/posters/" + jobID + ".png", nil
	}}
	d := New(fx.manager, renderer, 1, 1, time.Minute, zerolog.Nop())
	defer func() {
		close(gate)
		d.Stop()
	}()

	// First submission occupies the worker, second fills the queue. Give the
	// worker a moment to pick the first one up so the state is deterministic.
	first := fx.createJob(t)
	if err := d.Submit(first.ID, first.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	second := fx.createJob(t)
	if err := d.Submit(second.ID, second.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	third := fx.createJob(t)
	if err := d.Submit(third.ID, third.Request); !errors.Is(err, domain.ErrQueueFull) {
		t.Errorf("Submit on full queue = %v, want ErrQueueFull", err)
	}
}

func TestIndependentJobsDoNotCrossContaminate(t *testing.T) {
	fx := newFixture(t)
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		if req.City == "Atlantis" {
			return "", fmt.Errorf("%w: no match for Atlantis", domain.ErrGeocodeFailed)
		}
		return "/posters/" + jobID + ".png", nil
	}}
	d := New(fx.manager, renderer, 4, 16, time.Minute, zerolog.Nop())
	defer d.Stop()

	good := fx.createJob(t)

	badReq := domain.PosterRequest{City: "Atlantis", Country: "Nowhere"}
	badReq.ApplyDefaults()
	bad, err := fx.manager.CreateJob(context.Background(), badReq)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := d.Submit(good.ID, good.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.Submit(bad.ID, bad.Request); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	gotGood := fx.waitTerminal(t, good.ID)
	gotBad := fx.waitTerminal(t, bad.ID)

	if gotGood.Status != domain.JobStatusCompleted || gotGood.Error != "" {
		t.Errorf("good job contaminated: %+v", gotGood)
	}
	if gotGood.PosterPath != "/posters/"+good.ID+".png" {
		t.Errorf("good job poster path = %q", gotGood.PosterPath)
	}
	if gotBad.Status != domain.JobStatusFailed || gotBad.PosterPath != "" {
		t.Errorf("bad job contaminated: %+v", gotBad)
	}
}

func TestDispatchCreatesPendingJobAndRuns(t *testing.T) {
	fx := newFixture(t)
	d := New(fx.manager, &fakeRenderer{}, 1, 4, time.Minute, zerolog.Nop())
	defer d.Stop()

	req := domain.PosterRequest{City: "Paris", Country: "France"}
	req.ApplyDefaults()
	job, err := d.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("dispatched job status = %q, want pending", job.Status)
	}
	got := fx.waitTerminal(t, job.ID)
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestDispatchFullQueueCreatesNoJob(t *testing.T) {
	fx := newFixture(t)
	gate := make(chan struct{})
	renderer := &fakeRenderer{fn: func(ctx context.Context, jobID string, req domain.PosterRequest) (string, error) {
		<-gate
		return "/posters/" + jobID + ".png", nil
	}}
	d := New(fx.manager, renderer, 1, 1, time.Minute, zerolog.Nop())
	defer func() {
		close(gate)
		d.Stop()
	}()

	req := domain.PosterRequest{City: "Paris", Country: "France"}
	req.ApplyDefaults()
	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := d.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if _, err := d.Dispatch(context.Background(), req); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("Dispatch on full queue = %v, want ErrQueueFull", err)
	}

	// The rejected request must leave no orphan record behind.
	jobs, err := fx.store.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("store holds %d jobs after rejection, want 2", len(jobs))
	}
}

func TestSubmitAfterStop(t *testing.T) {
	fx := newFixture(t)
	d := New(fx.manager, &fakeRenderer{}, 1, 4, time.Minute, zerolog.Nop())
	d.Stop()

	job := fx.createJob(t)
	if err := d.Submit(job.ID, job.Request); !errors.Is(err, domain.ErrQueueFull) {
		t.Errorf("Submit after Stop = %v, want ErrQueueFull", err)
	}
}
