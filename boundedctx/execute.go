package boundedctx

import (
	"context"
	"fmt"
	"time"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// ExecuteOptions configures one Execute call (spec.md §4.5 "execute(op,
// {timeoutMs?, retries?, retryDelayMs?, signal?, validate?})"). The abort
// signal itself is the ctx passed to Execute: Go models cancellation
// through context.Context rather than a separate signal value, following
// the context.WithTimeout + exec.CommandContext pattern the teacher uses
// throughout internal/fetch/fetch.go and cmd/lspls/main.go.
type ExecuteOptions struct {
	// TimeoutMs bounds a single attempt. Zero disables the per-attempt
	// timer, but ctx's own cancellation is still honored.
	TimeoutMs int

	// Retries is the number of additional attempts after the first.
	// Only errors bridgeerr.IsRetryable reports are retried.
	Retries int

	// RetryDelayMs is the initial backoff delay; it doubles after each
	// retried attempt.
	RetryDelayMs int

	// Validate, when set, runs on a successful result before Execute
	// returns it. A non-nil return is reported as a Protocol error.
	Validate func(result any) error
}

// Op is one bounded operation. It receives a context carrying both the
// caller's cancellation and, when TimeoutMs is set, a derived deadline.
type Op func(ctx context.Context) (any, error)

// Execute runs op under the context's bounded-execution contract: auto
// init when idle, per-attempt timeout, retry-with-backoff on retryable
// failures, and result validation (spec.md §4.5).
func (c *Context) Execute(ctx context.Context, op Op, opts ExecuteOptions) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, bridgeerr.NewTimeout("execute aborted before start", err)
	}

	if c.State() == Idle {
		if err := c.Init(ctx); err != nil {
			return nil, err
		}
	}

	delay := opts.RetryDelayMs
	for attempt := 0; ; attempt++ {
		result, err := c.executeOnce(ctx, op, opts.TimeoutMs)
		if err == nil {
			if opts.Validate != nil {
				if verr := opts.Validate(result); verr != nil {
					return nil, bridgeerr.NewProtocol(fmt.Sprintf("result validation failed: %v", verr), verr)
				}
			}
			return result, nil
		}

		if c.State() == Disposed {
			return nil, bridgeerr.NewDisposed("context disposed during execute")
		}
		if attempt >= opts.Retries || !bridgeerr.IsRetryable(err) {
			return nil, err
		}

		if err := sleepOrAbort(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

func (c *Context) executeOnce(ctx context.Context, op Op, timeoutMs int) (any, error) {
	runCtx := ctx
	if timeoutMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(runCtx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && runCtx.Err() != nil {
			// op observed the same cancellation/deadline race executeOnce
			// did; classify it as Timeout instead of leaking a bare
			// context error.
			return nil, bridgeerr.NewTimeout("operation timed out or was aborted", runCtx.Err())
		}
		return o.value, o.err
	case <-runCtx.Done():
		return nil, bridgeerr.NewTimeout("operation timed out or was aborted", runCtx.Err())
	}
}

func sleepOrAbort(ctx context.Context, delayMs int) error {
	if delayMs <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return bridgeerr.NewTimeout("retry backoff aborted", ctx.Err())
	}
}
