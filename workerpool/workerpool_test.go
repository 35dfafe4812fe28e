package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

type fakeWorker struct {
	id       int
	disposed int32
	failWith error
}

func (w *fakeWorker) Dispose(ctx context.Context) error {
	atomic.AddInt32(&w.disposed, 1)
	return w.failWith
}

func newCountingFactory() (func(ctx context.Context) (Worker, error), *int32) {
	var n int32
	return func(ctx context.Context) (Worker, error) {
		id := int(atomic.AddInt32(&n, 1))
		return &fakeWorker{id: id}, nil
	}, &n
}

func TestAcquireCreatesWorkersLazilyUpToMax(t *testing.T) {
	factory, created := newCountingFactory()
	p := New(Options{MaxWorkers: 2, Factory: factory})

	w1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	w2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if w1 == w2 {
		t.Fatalf("expected two distinct workers")
	}
	if *created != 2 {
		t.Errorf("created = %d, want 2", *created)
	}
}

func TestAcquireReusesWorkerWithSpareCapacity(t *testing.T) {
	factory, created := newCountingFactory()
	p := New(Options{MaxWorkers: 2, MaxConcurrentPerWorker: 2, Factory: factory})

	w1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	w2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if w1 != w2 {
		t.Errorf("expected the same worker reused under MaxConcurrentPerWorker=2")
	}
	if *created != 1 {
		t.Errorf("created = %d, want 1", *created)
	}
}

func TestAcquireBlocksThenSucceedsAfterRelease(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 1, Factory: factory})

	w1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}

	done := make(chan Worker, 1)
	go func() {
		w, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("acquire 2: %v", err)
			return
		}
		done <- w
	}()

	time.Sleep(15 * time.Millisecond)
	p.Release(w1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("second acquire never unblocked after release")
	}
}

func TestAcquireTimesOutWhenPoolIsFull(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 1, QueueTimeoutMs: 20, Factory: factory})

	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire 1: %v", err)
	}

	_, err := p.Acquire(context.Background())
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Timeout {
		t.Fatalf("expected Timeout error, got %v", err)
	}
}

func TestAcquireRejectsOnDisposedPool(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 1, Factory: factory})
	if err := p.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	_, err := p.Acquire(context.Background())
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Disposed {
		t.Fatalf("expected Disposed error, got %v", err)
	}
}

func TestDisposeRejectsWaitersWithExecutionError(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 1, QueueTimeoutMs: 5000, Factory: factory})

	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire 1: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		errCh <- err
	}()
	time.Sleep(15 * time.Millisecond)

	if err := p.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	select {
	case err := <-errCh:
		be, ok := bridgeerr.As(err)
		if !ok || be.Kind != bridgeerr.Execution {
			t.Fatalf("expected Execution error for rejected waiter, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter never rejected after dispose")
	}
}

func TestDisposeDisposesAllWorkersAndAggregatesFailures(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 3, Factory: factory})

	var got []Worker
	for i := 0; i < 3; i++ {
		w, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		got = append(got, w)
	}
	for _, w := range got {
		p.Release(w)
	}
	got[0].(*fakeWorker).failWith = errors.New("fail-0")
	got[2].(*fakeWorker).failWith = errors.New("fail-2")

	err := p.Dispose(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if !containsAll(err.Error(), "fail-0", "fail-2") {
		t.Errorf("aggregated error missing a cause: %v", err)
	}
	for i, w := range got {
		if atomic.LoadInt32(&w.(*fakeWorker).disposed) != 1 {
			t.Errorf("worker %d disposed %d times, want 1", i, w.(*fakeWorker).disposed)
		}
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !stringsContains(s, sub) {
			return false
		}
	}
	return true
}

func stringsContains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func TestDisposeIsIdempotent(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 1, Factory: factory})
	if err := p.Dispose(context.Background()); err != nil {
		t.Fatalf("first dispose: %v", err)
	}
	if err := p.Dispose(context.Background()); err != nil {
		t.Fatalf("second dispose: %v", err)
	}
}

func TestWithWorkerReleasesEvenOnError(t *testing.T) {
	factory, _ := newCountingFactory()
	p := New(Options{MaxWorkers: 1, Factory: factory})

	_, err := p.WithWorker(context.Background(), func(w Worker) (any, error) {
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	// If WithWorker failed to release, this Acquire would block forever.
	done := make(chan struct{})
	go func() {
		w, err := p.Acquire(context.Background())
		if err == nil {
			p.Release(w)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker was not released after WithWorker returned an error")
	}
}

func TestConcurrentAcquireRespectsTotalCapacity(t *testing.T) {
	factory, created := newCountingFactory()
	p := New(Options{MaxWorkers: 3, MaxConcurrentPerWorker: 1, QueueTimeoutMs: 2000, Factory: factory})

	var wg sync.WaitGroup
	var maxSeen int32
	var current int32
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := p.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			p.Release(w)
		}()
	}
	wg.Wait()

	if maxSeen > 3 {
		t.Errorf("observed %d concurrent in-flight, want <= 3", maxSeen)
	}
	if *created > 3 {
		t.Errorf("created %d workers, want <= 3", *created)
	}
}
