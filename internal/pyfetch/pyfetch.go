// Package pyfetch obtains the parsed Python module description that
// feeds TypeMapper/CodeGenerator — by reading a pre-extracted JSON file,
// or by invoking the Python AST-extractor (spec.md §1 "out of scope ...
// the Python-side AST extractor producing the module description"; only
// its output contract, §3, is specified here).
//
// Adapted from internal/fetch/fetch.go's LocalPath/git-clone dual-source
// shape: the extractor path here plays the role fetchFromGit played
// there, and fetchFromFile is kept almost verbatim since the two
// collaborators both read a JSON description off disk.
package pyfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tywrap-go/tywrap/model"
)

// DefaultTimeout bounds the extractor subprocess.
const DefaultTimeout = 60 * time.Second

// Options configures how to obtain a module description.
type Options struct {
	// LocalPath, when set, is read directly instead of invoking the
	// extractor.
	LocalPath string

	// PythonExecutable and ExtractorScriptPath invoke the extractor:
	// `PythonExecutable ExtractorScriptPath --module ModuleName --out <tmp>`.
	PythonExecutable    string
	ExtractorScriptPath string
	ModuleName          string
	WorkingDir          string

	// Timeout bounds the extractor run. Zero uses DefaultTimeout.
	Timeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// Result carries the parsed description and where it came from.
type Result struct {
	Module *model.Module
	Source string
}

// Fetch obtains one module description (spec.md §3 "PythonModule").
func Fetch(ctx context.Context, opts Options) (*Result, error) {
	if opts.LocalPath != "" {
		return fetchFromFile(opts.LocalPath)
	}
	return fetchFromExtractor(ctx, opts)
}

func fetchFromFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module description: %w", err)
	}
	m, err := parseModule(data)
	if err != nil {
		return nil, fmt.Errorf("parse module description: %w", err)
	}
	return &Result{Module: m, Source: fmt.Sprintf("file://%s", path)}, nil
}

// fetchFromExtractor runs the Python AST extractor and reads back its
// output. The output is written to a uniquely-named temp file rather
// than captured from stdout: stdout is the bridge's own JSONL channel
// once the subprocess is reused as a long-lived bridge process
// (transport.Transport), and mixing extractor output onto the same
// stream it's not safe on would be a framing bug waiting to happen.
func fetchFromExtractor(ctx context.Context, opts Options) (*Result, error) {
	tmpDir, err := os.MkdirTemp("", "tywrap-pyfetch-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outPath := filepath.Join(tmpDir, uuid.NewString()+".json")

	runCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, opts.PythonExecutable, opts.ExtractorScriptPath,
		"--module", opts.ModuleName,
		"--out", outPath,
	)
	cmd.Dir = opts.WorkingDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run extractor: %w (stderr: %s)", err, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read extractor output: %w", err)
	}

	m, err := parseModule(data)
	if err != nil {
		return nil, fmt.Errorf("parse module description: %w", err)
	}

	return &Result{Module: m, Source: fmt.Sprintf("python://%s", opts.ModuleName)}, nil
}

func parseModule(data []byte) (*model.Module, error) {
	var m model.Module
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
