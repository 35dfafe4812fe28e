package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tywrap-go/tywrap/bridgeerr"
	"github.com/tywrap-go/tywrap/protocol"
	"github.com/tywrap-go/tywrap/transport"
	"github.com/tywrap-go/tywrap/workerpool"
)

func serveUsage() {
	fmt.Fprintf(os.Stderr, `tywrap serve - run the boundary runtime as a long-lived process

Reads newline-delimited JSON commands from stdin and writes
newline-delimited JSON results to stdout, one line in, one line out. Each
command acquires a pooled Python subprocess for the duration of the call.

Usage:
  tywrap serve [flags]

Command shape (stdin):
  {"id":1,"op":"call","module":"m","function":"f","args":[],"kwargs":{}}
  {"id":2,"op":"instantiate","module":"m","className":"C","args":[]}
  {"id":3,"op":"call_method","handle":"h","methodName":"f","args":[]}
  {"id":4,"op":"dispose_instance","handle":"h"}

Flags:
  -python string        Python executable to spawn (default: python3)
  -bridge string        Path to the Python bridge script
  -venv string          Virtualenv directory to activate
  -config string        Path to tywrap.config.yaml
  -max-workers int       Max concurrent Python subprocesses (default: 4)
  -verbose               Verbose output
`)
}

// runtimeWorker pairs one Transport (one subprocess) with the Protocol
// that speaks to it. Pool owns the Transport lifecycle through this
// Worker; Protocol never reaches back into the Pool (spec.md §8 "Cyclic
// references ... resolved by strict ownership").
type runtimeWorker struct {
	transport *transport.Transport
	protocol  *protocol.Protocol
}

func (w *runtimeWorker) Dispose(ctx context.Context) error {
	return w.protocol.Dispose(ctx)
}

type command struct {
	ID         int64          `json:"id"`
	Op         string         `json:"op"`
	Module     string         `json:"module"`
	Function   string         `json:"function"`
	ClassName  string         `json:"className"`
	Handle     string         `json:"handle"`
	MethodName string         `json:"methodName"`
	Args       []any          `json:"args"`
	Kwargs     map[string]any `json:"kwargs"`
}

type response struct {
	ID     int64    `json:"id"`
	Result any      `json:"result,omitempty"`
	Error  *wireErr `json:"error,omitempty"`
}

type wireErr struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = serveUsage

	pythonExe := fs.String("python", "", "Python executable to spawn (default: python3)")
	bridgeScript := fs.String("bridge", "", "Path to the Python bridge script")
	venv := fs.String("venv", "", "Virtualenv directory to activate")
	configPath := fs.String("config", "", "Path to tywrap.config.yaml")
	maxWorkers := fs.Int("max-workers", 0, "Max concurrent Python subprocesses (default: 4)")
	verbose := fs.Bool("verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	workers := firstNonZero(*maxWorkers, cfg.Pool.MaxWorkers, 4)
	codecOpts := cfg.codecOptions()

	transportOpts := transport.Options{
		PythonExecutable: firstNonEmpty(*pythonExe, cfg.Python.Executable, "python3"),
		BridgeScriptPath: firstNonEmpty(*bridgeScript, cfg.Python.BridgeScript),
		VirtualEnv:       firstNonEmpty(*venv, cfg.Python.VirtualEnv),
		Logger:           logger,
	}

	pool := workerpool.New(workerpool.Options{
		MaxWorkers:             workers,
		MaxConcurrentPerWorker: cfg.Pool.MaxConcurrentPerWorker,
		QueueTimeoutMs:         cfg.Pool.QueueTimeoutMs,
		Factory: func(ctx context.Context) (workerpool.Worker, error) {
			tr := transport.New(transportOpts)
			p := protocol.New(tr, protocol.Options{Codec: codecOpts})
			if err := p.Init(ctx); err != nil {
				return nil, err
			}
			return &runtimeWorker{transport: tr, protocol: p}, nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *verbose {
		fmt.Fprintln(os.Stderr, "tywrap serve: ready, reading commands from stdin")
	}

	serveLoop(ctx, pool)

	return pool.Dispose(context.Background())
}

func serveLoop(ctx context.Context, pool *workerpool.Pool) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 100*1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}

		var cmd command
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			writeResponse(out, response{Error: &wireErr{Kind: "protocol", Message: err.Error()}})
			continue
		}

		result, err := dispatch(ctx, pool, cmd)
		if err != nil {
			writeResponse(out, response{ID: cmd.ID, Error: classifyForWire(err)})
			continue
		}
		writeResponse(out, response{ID: cmd.ID, Result: result})
	}
}

func dispatch(ctx context.Context, pool *workerpool.Pool, cmd command) (any, error) {
	switch cmd.Op {
	case "call":
		return pool.WithWorker(ctx, func(w workerpool.Worker) (any, error) {
			return w.(*runtimeWorker).protocol.Call(ctx, cmd.Module, cmd.Function, cmd.Args, cmd.Kwargs)
		})
	case "instantiate":
		return pool.WithWorker(ctx, func(w workerpool.Worker) (any, error) {
			return w.(*runtimeWorker).protocol.Instantiate(ctx, cmd.Module, cmd.ClassName, cmd.Args, cmd.Kwargs)
		})
	case "call_method":
		return pool.WithWorker(ctx, func(w workerpool.Worker) (any, error) {
			return w.(*runtimeWorker).protocol.CallMethod(ctx, cmd.Handle, cmd.MethodName, cmd.Args, cmd.Kwargs)
		})
	case "dispose_instance":
		return pool.WithWorker(ctx, func(w workerpool.Worker) (any, error) {
			return nil, w.(*runtimeWorker).protocol.DisposeInstance(ctx, cmd.Handle)
		})
	default:
		return nil, bridgeerr.NewProtocol(fmt.Sprintf("unknown op %q", cmd.Op), nil)
	}
}

func classifyForWire(err error) *wireErr {
	if be, ok := bridgeerr.As(err); ok {
		return &wireErr{Kind: string(be.Kind), Message: be.Error()}
	}
	return &wireErr{Kind: "execution", Message: err.Error()}
}

func writeResponse(w *bufio.Writer, r response) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
