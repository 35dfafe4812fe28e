package pyfetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFetchFromFileValidModel(t *testing.T) {
	dir := t.TempDir()
	content := `{"name":"mymod","functions":[{"name":"f","parameters":[],"returnType":null}],"classes":[]}`
	path := filepath.Join(dir, "module.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	result, err := fetchFromFile(path)
	if err != nil {
		t.Fatalf("fetchFromFile: %v", err)
	}
	if result.Module.Name != "mymod" {
		t.Errorf("Name = %q, want mymod", result.Module.Name)
	}
	if len(result.Module.Functions) != 1 || result.Module.Functions[0].Name != "f" {
		t.Errorf("Functions = %+v", result.Module.Functions)
	}
	if !strings.HasPrefix(result.Source, "file://") {
		t.Errorf("Source = %q, want file:// prefix", result.Source)
	}
}

func TestFetchFromFileNonExistent(t *testing.T) {
	dir := t.TempDir()
	_, err := fetchFromFile(filepath.Join(dir, "missing.json"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFetchFromFileInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := fetchFromFile(path)
	if err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}

func TestFetchDispatchesToLocalPathOverExtractor(t *testing.T) {
	dir := t.TempDir()
	content := `{"name":"fromfile","functions":[],"classes":[]}`
	path := filepath.Join(dir, "module.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	result, err := Fetch(context.Background(), Options{
		LocalPath:        path,
		PythonExecutable: "/this/does/not/exist",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Module.Name != "fromfile" {
		t.Errorf("Name = %q, want fromfile", result.Module.Name)
	}
}

// writeFakeExtractor writes a tiny POSIX shell script standing in for the
// Python AST extractor: it reads the --out flag and writes a fixed module
// description there, optionally exiting non-zero first.
func writeFakeExtractor(t *testing.T, dir string, fail bool) string {
	t.Helper()
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    --out) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
`
	if fail {
		script += `echo "extractor exploded" 1>&2
exit 1
`
	} else {
		script += `cat > "$out" <<'EOF'
{"name":"extracted","functions":[],"classes":[{"name":"C","kind":"class","methods":[]}]}
EOF
`
	}
	path := filepath.Join(dir, "extractor.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake extractor: %v", err)
	}
	return path
}

func TestFetchFromExtractorSuccess(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFakeExtractor(t, dir, false)

	result, err := Fetch(context.Background(), Options{
		PythonExecutable:    "/bin/sh",
		ExtractorScriptPath: scriptPath,
		ModuleName:          "extracted",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Module.Name != "extracted" {
		t.Errorf("Name = %q, want extracted", result.Module.Name)
	}
	if len(result.Module.Classes) != 1 || result.Module.Classes[0].Name != "C" {
		t.Errorf("Classes = %+v", result.Module.Classes)
	}
	if !strings.HasPrefix(result.Source, "python://extracted") {
		t.Errorf("Source = %q, want python://extracted prefix", result.Source)
	}
}

func TestFetchFromExtractorCommandFailure(t *testing.T) {
	dir := t.TempDir()
	scriptPath := writeFakeExtractor(t, dir, true)

	_, err := Fetch(context.Background(), Options{
		PythonExecutable:    "/bin/sh",
		ExtractorScriptPath: scriptPath,
		ModuleName:          "broken",
	})
	if err == nil {
		t.Fatalf("expected error from failing extractor")
	}
	if !strings.Contains(err.Error(), "extractor exploded") {
		t.Errorf("error = %v, want stderr included", err)
	}
}

func TestFetchFromExtractorRespectsTimeout(t *testing.T) {
	dir := t.TempDir()
	script := `#!/bin/sh
sleep 5
`
	path := filepath.Join(dir, "slow.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake extractor: %v", err)
	}

	_, err := Fetch(context.Background(), Options{
		PythonExecutable:    "/bin/sh",
		ExtractorScriptPath: path,
		ModuleName:          "slow",
		Timeout:             20 * time.Millisecond,
	})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestOptionsTimeoutDefaultsWhenZero(t *testing.T) {
	var o Options
	if got := o.timeout(); got != DefaultTimeout {
		t.Errorf("timeout() = %v, want %v", got, DefaultTimeout)
	}
}
