// Package protocol implements Protocol (spec.md §4.8): the thin
// orchestration layer that turns call/instantiate/callMethod/
// disposeInstance into one request envelope each, round-trips it through
// Transport, and decodes the result.
package protocol

import (
	"context"
	"sync/atomic"

	"github.com/tywrap-go/tywrap/bridgeerr"
	"github.com/tywrap-go/tywrap/codec"
)

// Sender is the subset of *transport.Transport that Protocol needs.
// Depending on this instead of the concrete type keeps Protocol testable
// against an in-memory fake without spawning a subprocess.
type Sender interface {
	Init(ctx context.Context) error
	Dispose(ctx context.Context) error
	Send(ctx context.Context, line string, timeoutMs int) (string, error)
}

const (
	methodCall            = "call"
	methodInstantiate     = "instantiate"
	methodCallMethod      = "call_method"
	methodDisposeInstance = "dispose_instance"
)

// request mirrors the wire request envelope (spec.md §6).
type request struct {
	ID       int64  `json:"id"`
	Protocol string `json:"protocol"`
	Method   string `json:"method"`
	Params   any    `json:"params"`
}

// Options configures a Protocol.
type Options struct {
	// DefaultTimeoutMs bounds each Transport.Send call. Zero disables
	// the timer (still honors ctx cancellation).
	DefaultTimeoutMs int
	// Decoders are applied to decoded results depth-first (spec.md
	// §4.4's TabularDecoder hook).
	Decoders []codec.TabularDecoder
	// Codec configures encode/decode validation policy (bytes handling,
	// payload size cap, spec.md §4.4). Zero value uses Codec's own
	// defaults.
	Codec codec.Options
}

// Protocol orchestrates Codec + Transport. Transport already owns its
// own BoundedContext (spec.md §4.6), so Protocol just forwards
// Init/Dispose rather than layering a second lifecycle state machine on
// top of it.
type Protocol struct {
	sender Sender
	opts   Options
	nextID int64
}

// New constructs a Protocol over an existing Sender (normally a
// *transport.Transport).
func New(sender Sender, opts Options) *Protocol {
	return &Protocol{sender: sender, opts: opts}
}

// Init starts the underlying transport.
func (p *Protocol) Init(ctx context.Context) error {
	return p.sender.Init(ctx)
}

// Dispose tears down the underlying transport.
func (p *Protocol) Dispose(ctx context.Context) error {
	return p.sender.Dispose(ctx)
}

// nextRequestID returns a monotonic, unique-per-process id (spec.md
// §4.8 "Generates monotonic unique numeric ids per process instance").
// Ids start at 1: 0 is reserved so a zero-value request is never
// mistaken for a real one.
func (p *Protocol) nextRequestID() int64 {
	return atomic.AddInt64(&p.nextID, 1)
}

func (p *Protocol) roundTrip(ctx context.Context, method string, params any) (any, error) {
	req := request{
		ID:       p.nextRequestID(),
		Protocol: codec.ProtocolVersion,
		Method:   method,
		Params:   params,
	}

	line, err := codec.EncodeRequest(req, p.opts.Codec)
	if err != nil {
		return nil, err
	}

	raw, err := p.sender.Send(ctx, line, p.opts.DefaultTimeoutMs)
	if err != nil {
		return nil, err
	}

	var result any
	if err := codec.DecodeResponseAsync(raw, &result, p.opts.Codec, p.opts.Decoders...); err != nil {
		return nil, err
	}
	return result, nil
}

// Call invokes a module-level function (spec.md §6 method=call).
func (p *Protocol) Call(ctx context.Context, module, functionName string, args []any, kwargs map[string]any) (any, error) {
	return p.roundTrip(ctx, methodCall, map[string]any{
		"module":       module,
		"functionName": functionName,
		"args":         args,
		"kwargs":       kwargs,
	})
}

// Instantiate constructs a Python-side object and returns its opaque
// handle (spec.md §6 method=instantiate; the handle itself is minted
// and owned entirely by the Python side — Protocol only ever carries it
// as an opaque string).
func (p *Protocol) Instantiate(ctx context.Context, module, className string, args []any, kwargs map[string]any) (string, error) {
	result, err := p.roundTrip(ctx, methodInstantiate, map[string]any{
		"module":    module,
		"className": className,
		"args":      args,
		"kwargs":    kwargs,
	})
	if err != nil {
		return "", err
	}
	handle, ok := result.(string)
	if !ok {
		return "", bridgeerr.NewProtocol("instantiate result was not an opaque handle string", nil)
	}
	return handle, nil
}

// CallMethod invokes an instance method by handle (spec.md §6
// method=call_method).
func (p *Protocol) CallMethod(ctx context.Context, handle, methodName string, args []any, kwargs map[string]any) (any, error) {
	return p.roundTrip(ctx, methodCallMethod, map[string]any{
		"handle":     handle,
		"methodName": methodName,
		"args":       args,
		"kwargs":     kwargs,
	})
}

// DisposeInstance releases a Python-side instance by handle (spec.md §6
// method=dispose_instance).
func (p *Protocol) DisposeInstance(ctx context.Context, handle string) error {
	_, err := p.roundTrip(ctx, methodDisposeInstance, map[string]any{
		"handle": handle,
	})
	return err
}
