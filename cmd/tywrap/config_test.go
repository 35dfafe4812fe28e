package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tywrap-go/tywrap/codec"
)

func TestLoadConfigEmptyPathReturnsZeroConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Pool.MaxWorkers != 0 {
		t.Errorf("expected zero Config, got %+v", cfg)
	}
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tywrap.config.yaml")
	content := `
python:
  executable: /usr/bin/python3.11
  virtualEnv: /opt/venv
pool:
  maxWorkers: 8
  maxConcurrentPerWorker: 2
  queueTimeoutMs: 5000
cache:
  dir: /tmp/tywrap-cache
  maxEntries: 500
  maxSizeMB: 64
codec:
  bytesHandling: reject
  maxPayloadBytes: 1048576
presets:
  - stdlib
  - pandas
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Python.Executable != "/usr/bin/python3.11" {
		t.Errorf("Python.Executable = %q", cfg.Python.Executable)
	}
	if cfg.Pool.MaxWorkers != 8 || cfg.Pool.MaxConcurrentPerWorker != 2 {
		t.Errorf("Pool = %+v", cfg.Pool)
	}
	if cfg.Cache.MaxSizeMB != 64 {
		t.Errorf("Cache.MaxSizeMB = %d, want 64", cfg.Cache.MaxSizeMB)
	}
	if len(cfg.Presets) != 2 || cfg.Presets[0] != "stdlib" || cfg.Presets[1] != "pandas" {
		t.Errorf("Presets = %v", cfg.Presets)
	}
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	_, err := loadConfig("/does/not/exist.yaml")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("not: [valid"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := loadConfig(path)
	if err == nil {
		t.Fatalf("expected error for invalid YAML")
	}
}

func TestCodecOptionsMapsBytesHandling(t *testing.T) {
	tests := []struct {
		in   string
		want codec.BytesHandling
	}{
		{"", codec.BytesBase64},
		{"base64", codec.BytesBase64},
		{"reject", codec.BytesReject},
		{"passthrough", codec.BytesPassthrough},
		{"nonsense", codec.BytesBase64},
	}
	for _, tt := range tests {
		var cfg Config
		cfg.Codec.BytesHandling = tt.in
		got := cfg.codecOptions()
		if got.BytesHandling != tt.want {
			t.Errorf("codecOptions(%q).BytesHandling = %q, want %q", tt.in, got.BytesHandling, tt.want)
		}
	}
}
