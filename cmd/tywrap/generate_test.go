package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" stdlib, pandas ,, scipy")
	want := []string{"stdlib", "pandas", "scipy"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFirstNonEmptyReturnsFirstSetValue(t *testing.T) {
	if got := firstNonEmpty("", "", "x", "y"); got != "x" {
		t.Errorf("firstNonEmpty = %q, want x", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty of all-empty = %q, want empty", got)
	}
}

func TestFirstNonZeroReturnsFirstSetValue(t *testing.T) {
	if got := firstNonZero(0, 0, 4); got != 4 {
		t.Errorf("firstNonZero = %d, want 4", got)
	}
	if got := firstNonZero(3, 4); got != 3 {
		t.Errorf("firstNonZero = %d, want 3", got)
	}
}

func TestWriteOutputToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.ts")
	if err := writeOutput(path, []byte("export const x = 1;")); err != nil {
		t.Fatalf("writeOutput: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "export const x = 1;" {
		t.Errorf("content = %q", data)
	}
}

func TestRunGenerateFromLocalSpecWritesFile(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "module.json")
	spec := `{"name":"greetings","functions":[{"name":"hello","parameters":[],"returnType":null}],"classes":[]}`
	if err := os.WriteFile(specPath, []byte(spec), 0644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	outPath := filepath.Join(dir, "greetings.ts")

	err := runGenerate([]string{"-spec", specPath, "-o", outPath, "-no-cache"})
	if err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read generated output: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("generated output missing function name: %s", data)
	}
	if !strings.Contains(string(data), "Module: greetings") {
		t.Errorf("generated output missing module banner: %s", data)
	}
}

func TestRunGenerateCachesSecondRun(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "module.json")
	spec := `{"name":"cached","functions":[],"classes":[]}`
	if err := os.WriteFile(specPath, []byte(spec), 0644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	cacheDir := filepath.Join(dir, "cache")
	configPath := filepath.Join(dir, "tywrap.config.yaml")
	configContent := "cache:\n  dir: " + cacheDir + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	outPath := filepath.Join(dir, "cached.ts")

	if err := runGenerate([]string{"-spec", specPath, "-o", outPath, "-config", configPath}); err != nil {
		t.Fatalf("first runGenerate: %v", err)
	}
	if err := runGenerate([]string{"-spec", specPath, "-o", outPath, "-config", configPath}); err != nil {
		t.Fatalf("second runGenerate: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read generated output: %v", err)
	}
	if !strings.Contains(string(data), "Module: cached") {
		t.Errorf("generated output missing module banner: %s", data)
	}
}
