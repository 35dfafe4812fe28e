// Package transport implements the subprocess JSONL transport (spec.md
// §4.6): spawn the Python bridge process, frame newline-delimited JSON
// over its stdio, and correlate requests to responses by numeric id.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tywrap-go/tywrap/boundedctx"
	"github.com/tywrap-go/tywrap/bridgeerr"
)

const (
	// DefaultMaxLineLength bounds one stdout line (spec.md §4.6).
	DefaultMaxLineLength = 100 * 1024 * 1024

	// DefaultWriteTimeout is not read by this package: Send writes each
	// line to the subprocess's stdin directly and blocks until the pipe
	// accepts it, with no write queue and no per-write deadline.
	DefaultWriteTimeout = 30 * time.Second

	killGrace = 1 * time.Second
)

// Options configures one Transport (spec.md §4.6 "Subprocess").
type Options struct {
	// PythonExecutable is the interpreter to spawn.
	PythonExecutable string
	// BridgeScriptPath is the Python bridge script passed as argv[1].
	BridgeScriptPath string
	// WorkingDir is the subprocess's working directory.
	WorkingDir string
	// Env is merged on top of the parent process environment, last, and
	// MUST NOT carry dangerous keys.
	Env map[string]string
	// VirtualEnv, when set, exports VIRTUAL_ENV and prepends its bin/
	// directory to PATH.
	VirtualEnv string
	// MaxLineLength bounds one stdout line. Zero uses DefaultMaxLineLength.
	MaxLineLength int
	// RestartAfterRequests recycles the subprocess after this many sends.
	// Zero disables the policy.
	RestartAfterRequests int

	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxLineLength <= 0 {
		o.MaxLineLength = DefaultMaxLineLength
	}
	return o
}

// idPattern extracts a top-level numeric "id" field cheaply, without a
// full JSON parse (spec.md §4.6 "extracts it with a cheap regex").
var idPattern = regexp.MustCompile(`"id"\s*:\s*(-?\d+)`)

func extractID(line string) string {
	m := idPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

type pendingResult struct {
	line string
	err  error
}

// Transport owns one Python subprocess and its JSONL framing.
type Transport struct {
	bc   *boundedctx.Context
	opts Options

	procCancel context.CancelFunc

	mu          sync.Mutex
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	pending     map[string]chan pendingResult
	sendCount   int
	restartArmed bool

	tail *stderrTail
}

// New constructs a Transport. The subprocess is spawned lazily on first
// Send (via BoundedContext's auto-init), or explicitly via Init.
func New(opts Options) *Transport {
	t := &Transport{
		opts:    opts.withDefaults(),
		pending: make(map[string]chan pendingResult),
		tail:    newStderrTail(8 * 1024),
	}
	t.bc = boundedctx.New(boundedctx.Hooks{
		Init:    t.start,
		Dispose: t.stop,
	})
	return t
}

// Init spawns the subprocess if not already running.
func (t *Transport) Init(ctx context.Context) error {
	return t.bc.Init(ctx)
}

// Dispose terminates the subprocess and rejects every pending request.
func (t *Transport) Dispose(ctx context.Context) error {
	return t.bc.Dispose(ctx)
}

// State exposes the underlying lifecycle state for diagnostics.
func (t *Transport) State() boundedctx.State {
	return t.bc.State()
}

func (t *Transport) start(ctx context.Context) error {
	procCtx, cancel := context.WithCancel(context.Background())
	env, err := buildEnv(t.opts.Env, t.opts.VirtualEnv)
	if err != nil {
		cancel()
		return err
	}

	cmd := exec.CommandContext(procCtx, t.opts.PythonExecutable, t.opts.BridgeScriptPath)
	cmd.Dir = t.opts.WorkingDir
	cmd.Env = env
	cmd.Stderr = t.tail

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return bridgeerr.NewProtocol(fmt.Sprintf("create stdin pipe: %v", err), err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return bridgeerr.NewProtocol(fmt.Sprintf("create stdout pipe: %v", err), err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return bridgeerr.NewProtocol(fmt.Sprintf("spawn subprocess: %v", err), err)
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.procCancel = cancel
	t.sendCount = 0
	t.restartArmed = false
	t.mu.Unlock()

	go t.readLoop(bufio.NewReaderSize(stdout, 64*1024))
	go t.waitLoop(cmd)

	return nil
}

func (t *Transport) stop(ctx context.Context) error {
	t.mu.Lock()
	cmd := t.cmd
	stdin := t.stdin
	cancel := t.procCancel
	t.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd.Process != nil {
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(killGrace):
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	}
	if cancel != nil {
		cancel()
	}

	t.rejectAllPending(bridgeerr.NewProtocol("transport disposed", nil))
	return nil
}

func (t *Transport) waitLoop(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err == nil {
		return
	}
	msg := fmt.Sprintf("subprocess exited: %v; stderr tail: %s", err, t.tail.String())
	t.rejectAllPending(bridgeerr.NewProtocol(msg, err))
	t.armRestart()
}

// Send writes line to the subprocess and waits for the correlated
// response, up to timeoutMs (0 disables the timer but ctx cancellation
// still applies). A timeout never triggers a restart: it only removes the
// pending entry and rejects the caller (spec.md §4.6 "Failure").
func (t *Transport) Send(ctx context.Context, line string, timeoutMs int) (string, error) {
	if t.bc.State() == boundedctx.Idle {
		if err := t.bc.Init(ctx); err != nil {
			return "", err
		}
	}
	if t.bc.State() == boundedctx.Disposed {
		return "", bridgeerr.NewDisposed("send called on a disposed transport")
	}

	if t.restartIsArmed() {
		if err := t.restart(ctx); err != nil {
			return "", err
		}
	}

	id := extractID(line)
	if id == "" {
		return "", bridgeerr.NewProtocol("message missing a numeric top-level id field", nil)
	}

	respCh := make(chan pendingResult, 1)
	t.mu.Lock()
	t.pending[id] = respCh
	stdin := t.stdin
	t.mu.Unlock()

	if _, err := io.WriteString(stdin, line+"\n"); err != nil {
		t.removePending(id)
		t.armRestart()
		return "", bridgeerr.NewProtocol(fmt.Sprintf("write failed: %v; stderr tail: %s", err, t.tail.String()), err)
	}

	t.mu.Lock()
	t.sendCount++
	count := t.sendCount
	t.mu.Unlock()
	if t.opts.RestartAfterRequests > 0 && count >= t.opts.RestartAfterRequests {
		t.armRestart()
	}

	var timeoutCh <-chan time.Time
	if timeoutMs > 0 {
		timer := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-respCh:
		return res.line, res.err
	case <-timeoutCh:
		t.removePending(id)
		return "", bridgeerr.NewTimeout(fmt.Sprintf("send timed out after %dms", timeoutMs), nil)
	case <-ctx.Done():
		t.removePending(id)
		return "", bridgeerr.NewTimeout("send aborted", ctx.Err())
	}
}

func (t *Transport) removePending(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *Transport) rejectAllPending(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]chan pendingResult)
	t.mu.Unlock()

	for _, ch := range pending {
		select {
		case ch <- pendingResult{err: err}:
		default:
		}
	}
}

func (t *Transport) armRestart() {
	t.mu.Lock()
	t.restartArmed = true
	t.mu.Unlock()
}

func (t *Transport) restartIsArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restartArmed
}

// restart performs the kill-then-respawn policy (spec.md §4.6 "Restart
// policy"): end the old subprocess, reject its pending requests, spawn a
// fresh one.
func (t *Transport) restart(ctx context.Context) error {
	if err := t.stop(ctx); err != nil {
		return err
	}
	return t.start(ctx)
}

// readLoop reads newline-delimited JSON from stdout, correlating each
// line by its numeric id. Responses for unknown ids (late arrivals after
// their timer already fired) are silently dropped (spec.md §4.6 "Request
// tracking").
func (t *Transport) readLoop(r *bufio.Reader) {
	lr := &lineReader{r: r, maxLen: t.opts.MaxLineLength}
	for {
		line, err := lr.ReadLine()
		if err != nil {
			if err == io.EOF {
				return
			}
			t.opts.Logger.Warn().Err(err).Msg("transport: stdout framing error")
			t.rejectAllPending(bridgeerr.NewProtocol(fmt.Sprintf("stdout framing error: %v; stderr tail: %s", err, t.tail.String()), err))
			t.armRestart()
			return
		}
		if line == "" {
			continue
		}
		id := extractID(line)
		if id == "" {
			continue
		}
		t.mu.Lock()
		ch, ok := t.pending[id]
		if ok {
			delete(t.pending, id)
		}
		t.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case ch <- pendingResult{line: line}:
		default:
		}
	}
}
