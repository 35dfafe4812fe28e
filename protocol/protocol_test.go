package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tywrap-go/tywrap/bridgeerr"
	"github.com/tywrap-go/tywrap/codec"
)

// fakeSender stands in for a *transport.Transport: it decodes whatever
// request line Protocol sends and hands back a canned or computed
// response, so Protocol's envelope construction and method names can be
// verified without a subprocess.
type fakeSender struct {
	mu          sync.Mutex
	lastLine    string
	respond     func(req map[string]any) string
	initCalls   int
	disposeCalls int
}

func (f *fakeSender) Init(ctx context.Context) error {
	f.initCalls++
	return nil
}

func (f *fakeSender) Dispose(ctx context.Context) error {
	f.disposeCalls++
	return nil
}

func (f *fakeSender) Send(ctx context.Context, line string, timeoutMs int) (string, error) {
	f.mu.Lock()
	f.lastLine = line
	f.mu.Unlock()

	var req map[string]any
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return "", err
	}
	return f.respond(req), nil
}

func TestCallEncodesMethodAndParams(t *testing.T) {
	var seen map[string]any
	fs := &fakeSender{respond: func(req map[string]any) string {
		seen = req
		id := req["id"].(float64)
		return fmt.Sprintf(`{"id":%d,"result":42}`, int64(id))
	}}
	p := New(fs, Options{})

	result, err := p.Call(context.Background(), "mymod", "myfunc", []any{1, 2}, map[string]any{"x": true})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result != float64(42) {
		t.Errorf("result = %v, want 42", result)
	}

	if seen["method"] != "call" {
		t.Errorf("method = %v, want call", seen["method"])
	}
	if seen["protocol"] != codec.ProtocolVersion {
		t.Errorf("protocol = %v, want %v", seen["protocol"], codec.ProtocolVersion)
	}
	params := seen["params"].(map[string]any)
	if params["module"] != "mymod" || params["functionName"] != "myfunc" {
		t.Errorf("params = %v", params)
	}
}

func TestInstantiateReturnsHandle(t *testing.T) {
	fs := &fakeSender{respond: func(req map[string]any) string {
		if req["method"] != "instantiate" {
			t.Errorf("method = %v, want instantiate", req["method"])
		}
		id := int64(req["id"].(float64))
		return fmt.Sprintf(`{"id":%d,"result":"handle-123"}`, id)
	}}
	p := New(fs, Options{})

	handle, err := p.Instantiate(context.Background(), "mymod", "MyClass", nil, nil)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if handle != "handle-123" {
		t.Errorf("handle = %q, want handle-123", handle)
	}
}

func TestInstantiateRejectsNonStringResult(t *testing.T) {
	fs := &fakeSender{respond: func(req map[string]any) string {
		id := int64(req["id"].(float64))
		return fmt.Sprintf(`{"id":%d,"result":123}`, id)
	}}
	p := New(fs, Options{})

	_, err := p.Instantiate(context.Background(), "m", "C", nil, nil)
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Protocol {
		t.Fatalf("expected Protocol error, got %v", err)
	}
}

func TestCallMethodSendsHandleAndMethodName(t *testing.T) {
	var seen map[string]any
	fs := &fakeSender{respond: func(req map[string]any) string {
		seen = req
		id := int64(req["id"].(float64))
		return fmt.Sprintf(`{"id":%d,"result":"ok"}`, id)
	}}
	p := New(fs, Options{})

	_, err := p.CallMethod(context.Background(), "handle-1", "doThing", []any{1}, nil)
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	params := seen["params"].(map[string]any)
	if params["handle"] != "handle-1" || params["methodName"] != "doThing" {
		t.Errorf("params = %v", params)
	}
}

func TestDisposeInstanceSendsHandle(t *testing.T) {
	var seen map[string]any
	fs := &fakeSender{respond: func(req map[string]any) string {
		seen = req
		id := int64(req["id"].(float64))
		return fmt.Sprintf(`{"id":%d,"result":null}`, id)
	}}
	p := New(fs, Options{})

	if err := p.DisposeInstance(context.Background(), "handle-2"); err != nil {
		t.Fatalf("DisposeInstance: %v", err)
	}
	if seen["method"] != "dispose_instance" {
		t.Errorf("method = %v, want dispose_instance", seen["method"])
	}
	params := seen["params"].(map[string]any)
	if params["handle"] != "handle-2" {
		t.Errorf("params = %v", params)
	}
}

func TestRequestIDsAreMonotonicAndUnique(t *testing.T) {
	var ids []int64
	fs := &fakeSender{respond: func(req map[string]any) string {
		id := int64(req["id"].(float64))
		ids = append(ids, id)
		return fmt.Sprintf(`{"id":%d,"result":null}`, id)
	}}
	p := New(fs, Options{})

	for i := 0; i < 5; i++ {
		if _, err := p.Call(context.Background(), "m", "f", nil, nil); err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not strictly increasing: %v", ids)
		}
	}
}

func TestInitAndDisposeForwardToSender(t *testing.T) {
	fs := &fakeSender{}
	p := New(fs, Options{})

	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := p.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if fs.initCalls != 1 || fs.disposeCalls != 1 {
		t.Errorf("initCalls=%d disposeCalls=%d, want 1/1", fs.initCalls, fs.disposeCalls)
	}
}

func TestCallPropagatesExecutionError(t *testing.T) {
	fs := &fakeSender{respond: func(req map[string]any) string {
		id := int64(req["id"].(float64))
		return fmt.Sprintf(`{"id":%d,"error":{"type":"ValueError","message":"bad arg"}}`, id)
	}}
	p := New(fs, Options{})

	_, err := p.Call(context.Background(), "m", "f", nil, nil)
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Execution {
		t.Fatalf("expected Execution error, got %v", err)
	}
	if !strings.Contains(be.PyType, "ValueError") {
		t.Errorf("PyType = %q, want ValueError", be.PyType)
	}
}
