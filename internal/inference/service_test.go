package inference

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"psyched/internal/backend"
	"psyched/internal/queue"
)

type scriptedBackend struct {
	mu     sync.Mutex
	params []backend.Params
	delay  time.Duration
	gate   chan struct{}
	err    error
}

func (b *scriptedBackend) record(p backend.Params) {
	b.mu.Lock()
	b.params = append(b.params, p)
	b.mu.Unlock()
}

func (b *scriptedBackend) Generate(ctx context.Context, image []byte, prompt string, p backend.Params) ([]byte, error) {
	b.record(p)
	if b.gate != nil {
		<-b.gate
	}
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.err != nil {
		return nil, b.err
	}
	return []byte("out"), nil
}

func (b *scriptedBackend) GenerateBatch(ctx context.Context, image []byte, prompt string, count int, p backend.Params) ([][]byte, error) {
	b.record(p)
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]byte, count)
	for i := range out {
		out[i] = []byte("out")
	}
	return out, nil
}

func newTestService(t *testing.T, b backend.Generator, d Defaults) *Service {
	t.Helper()
	q := queue.New(b, queue.Config{MaxDepth: 64}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(cancel)
	return New(q, d, zerolog.Nop())
}

func TestCorrelationIDsStrictlyIncreasing(t *testing.T) {
	svc := newTestService(t, &scriptedBackend{}, Defaults{NumImages: 2})
	const n = 20
	ids := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, id, _, err := svc.Generate(context.Background(), "p", []byte("i"), backend.Params{})
			if err != nil {
				t.Errorf("generate: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	got := make([]uint64, 0, n)
	for id := range ids {
		got = append(got, id)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != n {
		t.Fatalf("got %d ids want %d", len(got), n)
	}
	for i, id := range got {
		if id != uint64(i+1) {
			t.Fatalf("ids have gaps or duplicates: %v", got)
		}
	}
}

func TestGenerateReportsBackendLatency(t *testing.T) {
	b := &scriptedBackend{delay: 20 * time.Millisecond}
	svc := newTestService(t, b, Defaults{})
	out, id, ms, err := svc.Generate(context.Background(), "p", []byte("i"), backend.Params{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != "out" || id == 0 {
		t.Fatalf("unexpected result out=%q id=%d", out, id)
	}
	if ms < 15 {
		t.Fatalf("processing time %dms shorter than backend delay", ms)
	}
}

func TestGenerateBatchUsesDefaultCount(t *testing.T) {
	b := &scriptedBackend{}
	svc := newTestService(t, b, Defaults{NumImages: 4})
	images, _, _, err := svc.GenerateBatch(context.Background(), "p", []byte("i"), 0, backend.Params{})
	if err != nil {
		t.Fatalf("generate batch: %v", err)
	}
	if len(images) != 4 {
		t.Fatalf("images=%d want 4 (default count)", len(images))
	}
}

func TestDefaultsFillUnsetParams(t *testing.T) {
	b := &scriptedBackend{}
	svc := newTestService(t, b, Defaults{Steps: 2, Strength: 0.8})
	if _, _, _, err := svc.Generate(context.Background(), "p", []byte("i"), backend.Params{}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.params) != 1 {
		t.Fatalf("backend calls=%d want 1", len(b.params))
	}
	if b.params[0].Steps != 2 || b.params[0].Strength != 0.8 {
		t.Fatalf("defaults not applied: %+v", b.params[0])
	}
}

func TestExplicitParamsWin(t *testing.T) {
	b := &scriptedBackend{}
	svc := newTestService(t, b, Defaults{Steps: 2, Strength: 0.8})
	p := backend.Params{Steps: 7, Strength: 0.3, Seed: 42}
	if _, _, _, err := svc.Generate(context.Background(), "p", []byte("i"), p); err != nil {
		t.Fatalf("generate: %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.params[0].Steps != 7 || b.params[0].Strength != 0.3 || b.params[0].Seed != 42 {
		t.Fatalf("explicit params clobbered: %+v", b.params[0])
	}
}

func TestBackendFailurePropagatesWithID(t *testing.T) {
	b := &scriptedBackend{err: errors.New("boom")}
	svc := newTestService(t, b, Defaults{})
	_, id, _, err := svc.Generate(context.Background(), "p", []byte("i"), backend.Params{})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if id == 0 {
		t.Fatalf("failed request should still carry its correlation id")
	}
}

func TestStatusNonBlockingWhileBackendBusy(t *testing.T) {
	b := &scriptedBackend{gate: make(chan struct{})}
	svc := newTestService(t, b, Defaults{})
	go svc.Generate(context.Background(), "p", []byte("i"), backend.Params{})

	deadline := time.Now().Add(time.Second)
	for svc.Status().ActiveRequests != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("backend never became active")
		}
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		svc.Status()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Status blocked behind an executing job")
	}
	close(b.gate)
}

func TestReady(t *testing.T) {
	b := &scriptedBackend{}
	q := queue.New(b, queue.Config{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	svc := New(q, Defaults{}, zerolog.Nop())
	if !svc.Ready() {
		t.Fatalf("expected ready while worker runs")
	}
	cancel()
	<-q.Done()
	if svc.Ready() {
		t.Fatalf("expected not ready after worker exit")
	}
}
