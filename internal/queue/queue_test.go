package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"psyched/internal/backend"
)

// fakeGenerator counts concurrent entries and fails on demand.
type fakeGenerator struct {
	inFlight  int32
	violation atomic.Bool
	delay     time.Duration
	gate      chan struct{} // when set, Generate blocks until the gate is fed
	failNext  atomic.Bool
}

func (f *fakeGenerator) enter() {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		f.violation.Store(true)
	}
}

func (f *fakeGenerator) exit() { atomic.AddInt32(&f.inFlight, -1) }

func (f *fakeGenerator) Generate(ctx context.Context, image []byte, prompt string, p backend.Params) ([]byte, error) {
	f.enter()
	defer f.exit()
	if f.gate != nil {
		<-f.gate
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failNext.Swap(false) {
		return nil, errors.New("device lost")
	}
	return []byte("img:" + prompt), nil
}

func (f *fakeGenerator) GenerateBatch(ctx context.Context, image []byte, prompt string, count int, p backend.Params) ([][]byte, error) {
	f.enter()
	defer f.exit()
	if f.failNext.Swap(false) {
		return nil, errors.New("device lost")
	}
	out := make([][]byte, count)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("img:%s:%d", prompt, i))
	}
	return out, nil
}

func newTestQueue(t *testing.T, gen backend.Generator, cfg Config) (*Queue, context.CancelFunc) {
	t.Helper()
	q := New(gen, cfg, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(cancel)
	return q, cancel
}

func TestSubmitReturnsBackendResult(t *testing.T) {
	gen := &fakeGenerator{}
	q, _ := newTestQueue(t, gen, Config{})
	res, err := q.Submit(context.Background(), Job{ID: 1, Prompt: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Images) != 1 || string(res.Images[0]) != "img:hi" {
		t.Fatalf("unexpected result: %v", res.Images)
	}
	if res.Elapsed < 0 {
		t.Fatalf("negative elapsed: %v", res.Elapsed)
	}
}

func TestBackendNeverEnteredConcurrently(t *testing.T) {
	gen := &fakeGenerator{delay: 2 * time.Millisecond}
	q, _ := newTestQueue(t, gen, Config{MaxDepth: 64})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if _, err := q.Submit(context.Background(), Job{ID: id, Prompt: "p"}); err != nil {
				t.Errorf("submit %d: %v", id, err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	if gen.violation.Load() {
		t.Fatalf("backend entered by two jobs simultaneously")
	}
	if got := q.Stats().CompletedJobs; got != 16 {
		t.Fatalf("completed=%d want 16", got)
	}
}

func TestFailedJobDoesNotTouchStats(t *testing.T) {
	gen := &fakeGenerator{}
	q, _ := newTestQueue(t, gen, Config{})
	ctx := context.Background()

	if _, err := q.Submit(ctx, Job{ID: 1, Prompt: "a"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	before := q.Stats()
	if before.CompletedJobs != 1 {
		t.Fatalf("completed=%d want 1", before.CompletedJobs)
	}

	gen.failNext.Store(true)
	if _, err := q.Submit(ctx, Job{ID: 2, Prompt: "b"}); err == nil {
		t.Fatalf("expected failure")
	}
	after := q.Stats()
	if after.CompletedJobs != before.CompletedJobs {
		t.Fatalf("failed job bumped completed count: %d -> %d", before.CompletedJobs, after.CompletedJobs)
	}
	if after.AvgProcessingTimeMs != before.AvgProcessingTimeMs {
		t.Fatalf("failed job moved the mean: %v -> %v", before.AvgProcessingTimeMs, after.AvgProcessingTimeMs)
	}

	// The worker keeps draining after a failure.
	if _, err := q.Submit(ctx, Job{ID: 3, Prompt: "c"}); err != nil {
		t.Fatalf("submit after failure: %v", err)
	}
	if got := q.Stats().CompletedJobs; got != 2 {
		t.Fatalf("completed=%d want 2", got)
	}
}

func TestFailureDeliveredToOwningSubmitterOnly(t *testing.T) {
	gen := &fakeGenerator{}
	q, _ := newTestQueue(t, gen, Config{})
	gen.failNext.Store(true)
	_, err1 := q.Submit(context.Background(), Job{ID: 1})
	_, err2 := q.Submit(context.Background(), Job{ID: 2})
	if err1 == nil {
		t.Fatalf("expected first submit to fail")
	}
	if err2 != nil {
		t.Fatalf("second submit caught the first job's failure: %v", err2)
	}
}

func TestSubmitTooBusy(t *testing.T) {
	gen := &fakeGenerator{}
	// No worker started: the queue slot never frees up.
	q := New(gen, Config{MaxDepth: 1, MaxWait: 20 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Submit(ctx, Job{ID: 1}) // occupies the only slot

	// Wait for the first submission to take the slot.
	deadline := time.Now().Add(time.Second)
	for len(q.tasks) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first submission never enqueued")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := q.Submit(context.Background(), Job{ID: 2})
	if !IsTooBusy(err) {
		t.Fatalf("expected too-busy error, got %v", err)
	}
}

func TestSubmitRespectsCanceledContext(t *testing.T) {
	gen := &fakeGenerator{}
	q, _ := newTestQueue(t, gen, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Submit(ctx, Job{ID: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStatsSnapshotDuringExecution(t *testing.T) {
	gen := &fakeGenerator{gate: make(chan struct{})}
	q, _ := newTestQueue(t, gen, Config{MaxDepth: 8})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			q.Submit(context.Background(), Job{ID: id})
		}(uint64(i + 1))
	}

	// One job executing, two queued behind it.
	deadline := time.Now().Add(time.Second)
	for {
		st := q.Stats()
		if st.ActiveRequests == 1 && st.QueueLength == 2 {
			if st.EstimatedWaitTimeMs != st.AvgProcessingTimeMs*float64(st.QueueLength) {
				t.Fatalf("estimated wait mismatch: %+v", st)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never observed active=1 queued=2, last: %+v", st)
		}
		time.Sleep(time.Millisecond)
	}

	close(gen.gate)
	wg.Wait()

	st := q.Stats()
	if st.ActiveRequests != 0 || st.QueueLength != 0 {
		t.Fatalf("expected idle queue, got %+v", st)
	}
	if st.CompletedJobs != 3 {
		t.Fatalf("completed=%d want 3", st.CompletedJobs)
	}
	if st.EstimatedWaitTimeMs != 0 {
		t.Fatalf("estimated wait should be 0 on empty queue, got %v", st.EstimatedWaitTimeMs)
	}
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	gen := &fakeGenerator{}
	q, cancel := newTestQueue(t, gen, Config{})
	cancel()
	select {
	case <-q.Done():
	case <-time.After(time.Second):
		t.Fatalf("worker did not exit on cancel")
	}
}

func TestBatchJob(t *testing.T) {
	gen := &fakeGenerator{}
	q, _ := newTestQueue(t, gen, Config{})
	res, err := q.Submit(context.Background(), Job{ID: 1, Prompt: "p", Count: 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Images) != 3 {
		t.Fatalf("images=%d want 3", len(res.Images))
	}
}
