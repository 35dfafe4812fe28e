package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tywrap-go/tywrap/codec"
)

// Config is the shape of tywrap.config.yaml (SPEC_FULL.md §1
// "Configuration"). CLI flags override whatever a loaded file sets; the
// zero value is a usable all-defaults config.
type Config struct {
	// Python configures the subprocess interpreter (transport.Options).
	Python struct {
		Executable   string `yaml:"executable"`
		VirtualEnv   string `yaml:"virtualEnv"`
		BridgeScript string `yaml:"bridgeScript"`
	} `yaml:"python"`

	// Pool configures WorkerPool sizing.
	Pool struct {
		MaxWorkers             int `yaml:"maxWorkers"`
		MaxConcurrentPerWorker int `yaml:"maxConcurrentPerWorker"`
		QueueTimeoutMs         int `yaml:"queueTimeoutMs"`
	} `yaml:"pool"`

	// Cache configures ContentCache's disk tier.
	Cache struct {
		Dir        string `yaml:"dir"`
		MaxEntries int    `yaml:"maxEntries"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
	} `yaml:"cache"`

	// Codec configures wire encode/decode policy (codec.Options).
	Codec struct {
		BytesHandling   string `yaml:"bytesHandling"`
		MaxPayloadBytes int    `yaml:"maxPayloadBytes"`
	} `yaml:"codec"`

	// Presets names TypeMapper preset packs to enable (spec.md §4.1).
	Presets []string `yaml:"presets"`
}

// loadConfig reads and parses a tywrap.config.yaml file. A missing path
// (empty string, the CLI default) is not an error: it yields a zero
// Config, same as an empty file would.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// codecOptions converts the config's codec policy knobs into a
// codec.Options value (zero fields fall back to Codec's own defaults).
func (c *Config) codecOptions() codec.Options {
	opts := codec.Options{
		MaxPayloadBytes: c.Codec.MaxPayloadBytes,
	}
	switch c.Codec.BytesHandling {
	case "reject":
		opts.BytesHandling = codec.BytesReject
	case "passthrough":
		opts.BytesHandling = codec.BytesPassthrough
	case "base64", "":
		opts.BytesHandling = codec.BytesBase64
	default:
		opts.BytesHandling = codec.BytesBase64
	}
	return opts
}
