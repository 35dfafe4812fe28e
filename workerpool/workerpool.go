// Package workerpool implements WorkerPool (spec.md §4.7): a bounded set
// of lazily-created workers handed out to callers under a capacity limit
// and a FIFO wait queue. The pool only hands out workers; it never calls
// into them itself (spec.md §4.7 "Non-goal").
package workerpool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

const (
	// DefaultMaxConcurrentPerWorker is strict ownership: one in-flight
	// call per worker.
	DefaultMaxConcurrentPerWorker = 1
	// DefaultQueueTimeout bounds how long a caller waits for a worker.
	DefaultQueueTimeout = 30 * time.Second
)

// Worker is anything the pool can hand out and eventually dispose of.
// In tywrap a Worker wraps one *transport.Transport (one subprocess).
type Worker interface {
	Dispose(ctx context.Context) error
}

// Options configures a Pool.
type Options struct {
	// MaxWorkers bounds how many workers are ever created.
	MaxWorkers int
	// MaxConcurrentPerWorker bounds in-flight calls per worker. Zero
	// uses DefaultMaxConcurrentPerWorker.
	MaxConcurrentPerWorker int
	// QueueTimeoutMs bounds how long Acquire waits for capacity. Zero
	// uses DefaultQueueTimeout.
	QueueTimeoutMs int
	// Factory lazily constructs one worker.
	Factory func(ctx context.Context) (Worker, error)
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentPerWorker <= 0 {
		o.MaxConcurrentPerWorker = DefaultMaxConcurrentPerWorker
	}
	if o.QueueTimeoutMs <= 0 {
		o.QueueTimeoutMs = int(DefaultQueueTimeout / time.Millisecond)
	}
	return o
}

type managedWorker struct {
	worker   Worker
	inFlight int
}

// Pool is a bounded, lazily-populated set of workers.
//
// Total capacity (MaxWorkers * MaxConcurrentPerWorker) is enforced by a
// semaphore.Weighted, which also gives the wait queue FIFO ordering for
// free; which concrete Worker a given Acquire call receives is decided
// separately by a mutex-guarded scan for the first worker with spare
// capacity (grounded on generator/registry.go's mutex-guarded-map
// pattern). Callers never observe or depend on which worker instance
// they get, only that the pool's bounds hold, so the two concerns don't
// need to be the same piece of code.
type Pool struct {
	opts Options
	sem  *semaphore.Weighted

	disposeCh chan struct{}

	mu       sync.Mutex
	workers  []*managedWorker
	disposed bool
}

// New constructs a Pool. Use New rather than a zero-value Pool: the
// semaphore and dispose channel must be initialized.
func New(opts Options) *Pool {
	opts = opts.withDefaults()
	return &Pool{
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.MaxWorkers * opts.MaxConcurrentPerWorker)),
		disposeCh: make(chan struct{}),
	}
}

// withQueueBound derives a context that cancels on: the caller's own
// ctx, QueueTimeoutMs elapsing, or the pool disposing.
func (p *Pool) withQueueBound(ctx context.Context) (context.Context, context.CancelFunc) {
	qctx, cancel := context.WithTimeout(ctx, time.Duration(p.opts.QueueTimeoutMs)*time.Millisecond)
	go func() {
		select {
		case <-p.disposeCh:
			cancel()
		case <-qctx.Done():
		}
	}()
	return qctx, cancel
}

// Acquire returns a worker with spare capacity, creating one lazily if
// under MaxWorkers, else waiting in FIFO order up to QueueTimeoutMs
// (spec.md §4.7 "Selection").
func (p *Pool) Acquire(ctx context.Context) (Worker, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, bridgeerr.NewDisposed("acquire called on a disposed pool")
	}
	p.mu.Unlock()

	qctx, cancel := p.withQueueBound(ctx)
	defer cancel()

	if err := p.sem.Acquire(qctx, 1); err != nil {
		p.mu.Lock()
		disposed := p.disposed
		p.mu.Unlock()
		if disposed {
			return nil, bridgeerr.NewExecution("PoolDisposed", "worker pool disposed before acquire completed", "", false)
		}
		return nil, bridgeerr.NewTimeout("acquire timed out waiting for an available worker", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.workers {
		if m.inFlight < p.opts.MaxConcurrentPerWorker {
			m.inFlight++
			return m.worker, nil
		}
	}

	w, err := p.opts.Factory(ctx)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}
	p.workers = append(p.workers, &managedWorker{worker: w, inFlight: 1})
	return w, nil
}

// Release returns w's capacity to the pool, handing it to the next
// waiter (if any) by way of the semaphore's own FIFO release order.
func (p *Pool) Release(w Worker) {
	p.mu.Lock()
	for _, m := range p.workers {
		if m.worker == w {
			if m.inFlight > 0 {
				m.inFlight--
			}
			break
		}
	}
	p.mu.Unlock()
	p.sem.Release(1)
}

// WithWorker acquires a worker, runs fn, and releases it even if fn
// panics or returns an error.
func (p *Pool) WithWorker(ctx context.Context, fn func(Worker) (any, error)) (any, error) {
	w, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(w)
	return fn(w)
}

// Dispose rejects every waiter with a classified execution error, then
// disposes every created worker concurrently, aggregating failures
// (spec.md §4.7 "Disposal"). Workers are independent subprocesses, so
// there's no ordering constraint to give up by tearing them down in
// parallel rather than one at a time.
func (p *Pool) Dispose(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	p.disposed = true
	workers := p.workers
	p.workers = nil
	p.mu.Unlock()

	close(p.disposeCh)

	var eg errgroup.Group
	errs := make([]error, len(workers))
	for i, m := range workers {
		i, m := i, m
		eg.Go(func() error {
			errs[i] = m.worker.Dispose(ctx)
			return nil
		})
	}
	eg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return bridgeerr.Aggregate(failed)
}
