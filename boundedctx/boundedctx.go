// Package boundedctx implements BoundedContext (spec.md §4.5): the shared
// lifecycle, resource-ownership, and bounded-execution capability that
// Transport and WorkerPool both build on. Rather than a base class or
// mixin hierarchy, it is one polymorphic type configured with subclass
// hooks (spec.md §9 "one polymorphic type providing lifecycle, validation,
// classification, execution; no deep hierarchies needed").
package boundedctx

import (
	"context"
	"sync"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// State is one of the five lifecycle states (spec.md §3 "Bounded context
// state"). disposed is terminal: no transition leads out of it.
type State string

const (
	Idle         State = "idle"
	Initializing State = "initializing"
	Ready        State = "ready"
	Disposing    State = "disposing"
	Disposed     State = "disposed"
)

// Resource is anything BoundedContext can own and dispose of on shutdown.
type Resource interface {
	Dispose(ctx context.Context) error
}

// Hooks are the subclass-supplied lifecycle callbacks. Either may be nil,
// in which case that phase is a no-op.
type Hooks struct {
	// Init runs once per successful initialization.
	Init func(ctx context.Context) error

	// Dispose runs after every tracked Resource has been disposed.
	Dispose func(ctx context.Context) error
}

// initCall dedupes concurrent Init callers onto a single in-flight
// initialization (spec.md §4.5 "deduplicates concurrent callers (single
// in-flight promise)").
type initCall struct {
	done chan struct{}
	err  error
}

// disposeCall dedupes concurrent Dispose callers the same way.
type disposeCall struct {
	done chan struct{}
	err  error
}

// Context is a BoundedContext instance. The zero value is not usable;
// construct with New.
type Context struct {
	mu    sync.Mutex
	state State
	hooks Hooks

	resources []Resource

	initPending    *initCall
	disposePending *disposeCall
}

// New constructs a Context in the idle state.
func New(hooks Hooks) *Context {
	return &Context{state: Idle, hooks: hooks}
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Init transitions idle -> initializing -> ready. It is a no-op when
// already ready, dedupes concurrent callers onto one in-flight attempt,
// resets to idle on failure to allow retry, and rejects immediately with a
// Disposed error when the context is disposing or disposed (spec.md
// §4.5).
func (c *Context) Init(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Ready:
		c.mu.Unlock()
		return nil

	case Disposing, Disposed:
		c.mu.Unlock()
		return bridgeerr.NewDisposed("init called on a disposing or disposed context")

	case Initializing:
		pending := c.initPending
		c.mu.Unlock()
		return waitInit(ctx, pending)

	default: // Idle
		pending := &initCall{done: make(chan struct{})}
		c.initPending = pending
		c.state = Initializing
		c.mu.Unlock()

		err := runHook(ctx, c.hooks.Init)

		c.mu.Lock()
		// A dispose issued during initializing wins regardless of the
		// init outcome (spec.md §4.5).
		if c.state != Disposing && c.state != Disposed {
			if err != nil {
				c.state = Idle
			} else {
				c.state = Ready
			}
		}
		pending.err = err
		c.initPending = nil
		close(pending.done)
		c.mu.Unlock()

		return err
	}
}

func waitInit(ctx context.Context, pending *initCall) error {
	select {
	case <-pending.done:
		return pending.err
	case <-ctx.Done():
		return bridgeerr.NewTimeout("init wait aborted", ctx.Err())
	}
}

func runHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}

// TrackResource registers r for disposal when the context disposes.
func (c *Context) TrackResource(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, r)
}

// UntrackResource removes r from the tracked set, if present.
func (c *Context) UntrackResource(r Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, res := range c.resources {
		if res == r {
			c.resources = append(c.resources[:i], c.resources[i+1:]...)
			return
		}
	}
}

// Dispose is idempotent and dedupes concurrent callers. It disposes
// tracked resources in reverse-insertion order, then runs the subclass
// Dispose hook, aggregating every failure into one error (spec.md §4.5).
func (c *Context) Dispose(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Disposed:
		c.mu.Unlock()
		return nil

	case Disposing:
		pending := c.disposePending
		c.mu.Unlock()
		return waitDispose(ctx, pending)

	default:
		pending := &disposeCall{done: make(chan struct{})}
		c.disposePending = pending
		c.state = Disposing
		resources := make([]Resource, len(c.resources))
		copy(resources, c.resources)
		c.resources = nil
		c.mu.Unlock()

		var errs []error
		for i := len(resources) - 1; i >= 0; i-- {
			if err := resources[i].Dispose(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := runHook(ctx, c.hooks.Dispose); err != nil {
			errs = append(errs, err)
		}

		aggregated := bridgeerr.Aggregate(errs)

		c.mu.Lock()
		c.state = Disposed
		pending.err = aggregated
		c.disposePending = nil
		close(pending.done)
		c.mu.Unlock()

		return aggregated
	}
}

func waitDispose(ctx context.Context, pending *disposeCall) error {
	select {
	case <-pending.done:
		return pending.err
	case <-ctx.Done():
		return bridgeerr.NewTimeout("dispose wait aborted", ctx.Err())
	}
}
