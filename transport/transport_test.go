package transport

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/tywrap-go/tywrap/boundedctx"
	"github.com/tywrap-go/tywrap/bridgeerr"
)

// newTestTransport wires a Transport directly to in-memory pipes,
// standing in for a subprocess's stdin/stdout without actually spawning
// one, so Send/readLoop/pending-map logic can be exercised in isolation.
func newTestTransport(t *testing.T) (*Transport, *io.PipeReader, *io.PipeWriter) {
	t.Helper()
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()

	tr := &Transport{
		opts:    Options{}.withDefaults(),
		pending: make(map[string]chan pendingResult),
		tail:    newStderrTail(8 * 1024),
		stdin:   stdinW,
	}
	tr.bc = boundedctx.New(boundedctx.Hooks{})
	if err := tr.bc.Init(context.Background()); err != nil {
		t.Fatalf("bc.Init: %v", err)
	}

	go tr.readLoop(bufio.NewReaderSize(stdoutR, 4096))

	return tr, stdinR, stdoutW
}

func TestExtractIDFindsTopLevelNumericID(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{`{"id":1,"result":2}`, "1"},
		{`{"id": 42, "result": "x"}`, "42"},
		{`{"result":"no id here"}`, ""},
		{`{"id":-3}`, "-3"},
	}
	for _, c := range cases {
		if got := extractID(c.line); got != c.want {
			t.Errorf("extractID(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestSendCorrelatesResponseByID(t *testing.T) {
	tr, stdinR, stdoutW := newTestTransport(t)
	go func() {
		r := bufio.NewReader(stdinR)
		line, _ := r.ReadString('\n')
		if strings.Contains(line, `"id":7`) {
			io.WriteString(stdoutW, `{"id":7,"result":"ok"}`+"\n")
		}
	}()

	out, err := tr.Send(context.Background(), `{"id":7,"method":"call"}`, 0)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out != `{"id":7,"result":"ok"}` {
		t.Errorf("out = %q", out)
	}
}

func TestSendTimesOutWithoutResponse(t *testing.T) {
	tr, stdinR, _ := newTestTransport(t)
	go io.Copy(io.Discard, stdinR)

	_, err := tr.Send(context.Background(), `{"id":1}`, 20)
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Timeout {
		t.Fatalf("expected Timeout error, got %v", err)
	}

	tr.mu.Lock()
	_, stillPending := tr.pending["1"]
	tr.mu.Unlock()
	if stillPending {
		t.Errorf("pending entry for timed-out id was not removed")
	}
}

func TestSendRejectsMessageWithoutID(t *testing.T) {
	tr, stdinR, _ := newTestTransport(t)
	go io.Copy(io.Discard, stdinR)

	_, err := tr.Send(context.Background(), `{"method":"call"}`, 0)
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Protocol {
		t.Fatalf("expected Protocol error, got %v", err)
	}
}

func TestSendAbortsOnContextCancel(t *testing.T) {
	tr, stdinR, _ := newTestTransport(t)
	go io.Copy(io.Discard, stdinR)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Send(ctx, `{"id":9}`, 0)
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Timeout {
		t.Fatalf("expected Timeout error for cancellation, got %v", err)
	}
}

func TestLateResponseForUnknownIDIsDroppedSilently(t *testing.T) {
	tr, stdinR, stdoutW := newTestTransport(t)
	go io.Copy(io.Discard, stdinR)

	// No pending entry for id 99: readLoop must not panic or block.
	io.WriteString(stdoutW, `{"id":99,"result":"late"}`+"\n")
	time.Sleep(10 * time.Millisecond)

	tr.mu.Lock()
	n := len(tr.pending)
	tr.mu.Unlock()
	if n != 0 {
		t.Errorf("pending map = %d entries, want 0", n)
	}
}

func TestReadLoopSkipsEmptyLines(t *testing.T) {
	tr, stdinR, stdoutW := newTestTransport(t)
	go func() {
		r := bufio.NewReader(stdinR)
		r.ReadString('\n')
		io.WriteString(stdoutW, "\n")
		io.WriteString(stdoutW, `{"id":1,"result":1}`+"\n")
	}()

	out, err := tr.Send(context.Background(), `{"id":1}`, 1000)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out != `{"id":1,"result":1}` {
		t.Errorf("out = %q", out)
	}
}

func TestLineReaderRejectsOversizedLine(t *testing.T) {
	big := strings.Repeat("x", 200)
	lr := &lineReader{r: bufio.NewReaderSize(strings.NewReader(big+"\n"), 16), maxLen: 50}
	_, err := lr.ReadLine()
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Protocol {
		t.Fatalf("expected Protocol error for oversized line, got %v", err)
	}
}

func TestLineReaderReadsNormalLine(t *testing.T) {
	lr := &lineReader{r: bufio.NewReaderSize(strings.NewReader("hello\nworld\n"), 16), maxLen: 1000}
	line, err := lr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "hello" {
		t.Errorf("line = %q, want hello", line)
	}
}

func TestStderrTailRetainsOnlyLastNBytes(t *testing.T) {
	tail := newStderrTail(10)
	tail.Write([]byte("0123456789ABCDEFGHIJ"))
	if got := tail.String(); got != "ABCDEFGHIJ" {
		t.Errorf("tail = %q, want last 10 bytes", got)
	}
}

func TestStderrTailStripsANSIAndControlBytes(t *testing.T) {
	tail := newStderrTail(1024)
	tail.Write([]byte("\x1b[31mred text\x1b[0m\x01\x02 plain\n"))
	got := tail.String()
	if strings.Contains(got, "\x1b") || strings.Contains(got, "\x01") {
		t.Errorf("tail still contains escape/control bytes: %q", got)
	}
	if !strings.Contains(got, "red text") || !strings.Contains(got, "plain") {
		t.Errorf("tail lost readable content: %q", got)
	}
}

func TestBuildEnvRejectsDangerousKeys(t *testing.T) {
	_, err := buildEnv(map[string]string{"__proto__": "x"}, "")
	be, ok := bridgeerr.As(err)
	if !ok || be.Kind != bridgeerr.Protocol {
		t.Fatalf("expected Protocol error, got %v", err)
	}
}

func TestBuildEnvInjectsUTF8Vars(t *testing.T) {
	env, err := buildEnv(nil, "")
	if err != nil {
		t.Fatalf("buildEnv: %v", err)
	}
	want := map[string]string{
		"PYTHONUTF8":       "1",
		"PYTHONIOENCODING": "UTF-8",
		"PYTHONUNBUFFERED": "1",
	}
	for k, v := range want {
		if !containsKV(env, k, v) {
			t.Errorf("env missing %s=%s", k, v)
		}
	}
}

func TestBuildEnvExportsVirtualEnvAndPrependsPath(t *testing.T) {
	env, err := buildEnv(map[string]string{"PATH": "/usr/bin"}, "/opt/venv")
	if err != nil {
		t.Fatalf("buildEnv: %v", err)
	}
	if !containsKV(env, "VIRTUAL_ENV", "/opt/venv") {
		t.Errorf("env missing VIRTUAL_ENV")
	}
	var path string
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			path = kv[len("PATH="):]
		}
	}
	if !strings.HasPrefix(path, "/opt/venv/bin") {
		t.Errorf("PATH = %q, want prefixed with venv bin dir", path)
	}
}

func containsKV(env []string, key, val string) bool {
	for _, kv := range env {
		if kv == key+"="+val {
			return true
		}
	}
	return false
}

func TestSendWriteFailureArmsRestart(t *testing.T) {
	tr, stdinR, _ := newTestTransport(t)
	stdinR.Close() // breaks the pipe so the next write to stdinW fails

	_, err := tr.Send(context.Background(), `{"id":1}`, 0)
	if err == nil {
		t.Fatalf("expected write error")
	}
	if !tr.restartIsArmed() {
		t.Errorf("expected restart to be armed after write failure")
	}
}
