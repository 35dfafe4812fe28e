package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tywrap-go/tywrap/cache"
	"github.com/tywrap-go/tywrap/codegen"
	"github.com/tywrap-go/tywrap/internal/pyfetch"
)

func generateUsage() {
	fmt.Fprintf(os.Stderr, `tywrap generate - generate a TypeScript wrapper for a Python module

Usage:
  tywrap generate -module NAME [flags]

Flags:
  -module string      Python module to wrap (required unless -spec is set)
  -spec string        Path to a pre-extracted module description JSON file
  -o string           Output file (default: stdout)
  -python string       Python executable for the extractor (default: python3)
  -extractor string   Path to the Python AST-extractor script
  -config string       Path to tywrap.config.yaml
  -presets string      Comma-separated TypeMapper preset packs
  -export-all          Export every declaration, including leading-underscore names
  -jsdoc               Emit @param JSDoc annotations in addition to docstrings
  -no-cache            Skip ContentCache for this run
  -verbose             Verbose output
`)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.Usage = generateUsage

	moduleName := fs.String("module", "", "Python module to wrap")
	specPath := fs.String("spec", "", "Path to a pre-extracted module description JSON file")
	output := fs.String("o", "", "Output file (default: stdout)")
	pythonExe := fs.String("python", "", "Python executable for the extractor (default: python3)")
	extractorPath := fs.String("extractor", "", "Path to the Python AST-extractor script")
	configPath := fs.String("config", "", "Path to tywrap.config.yaml")
	presetsFlag := fs.String("presets", "", "Comma-separated TypeMapper preset packs")
	exportAll := fs.Bool("export-all", false, "Export every declaration")
	jsdoc := fs.Bool("jsdoc", false, "Emit @param JSDoc annotations")
	noCache := fs.Bool("no-cache", false, "Skip ContentCache for this run")
	verbose := fs.Bool("verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	presets := cfg.Presets
	if *presetsFlag != "" {
		presets = splitCSV(*presetsFlag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *verbose {
		fmt.Fprintln(os.Stderr, "Fetching module description...")
	}

	fetchOpts := pyfetch.Options{
		LocalPath:           *specPath,
		PythonExecutable:    firstNonEmpty(*pythonExe, cfg.Python.Executable, "python3"),
		ExtractorScriptPath: *extractorPath,
		ModuleName:          *moduleName,
	}

	result, err := pyfetch.Fetch(ctx, fetchOpts)
	if err != nil {
		return fmt.Errorf("fetch module description: %w", err)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Loaded module %s from %s (%d functions, %d classes)\n",
			result.Module.Name, result.Source, len(result.Module.Functions), len(result.Module.Classes))
	}

	genCfg := codegen.Config{
		ModuleName:     result.Module.Name,
		AnnotatedJSDoc: *jsdoc,
		ExportAll:      *exportAll,
		Presets:        presets,
	}

	var ccache *cache.Cache
	var cacheKey string
	if !*noCache {
		ccache = newGenerateCache(cfg)
		cacheKey = cache.BuildKey("codegen", genCfg, result.Module)
		if entry, ok := ccache.Get(cacheKey); ok {
			return writeOutput(*output, entry.Data)
		}
	}

	start := time.Now()
	gen := codegen.New(result.Module, genCfg)
	out := gen.Generate()

	if ccache != nil {
		ccache.Set(cacheKey, []byte(out.Source), cache.SetOptions{
			Dependencies: []string{result.Module.Name},
			ComputeTime:  time.Since(start),
			Version:      "1",
		})
	}

	return writeOutput(*output, []byte(out.Source))
}

func newGenerateCache(cfg *Config) *cache.Cache {
	dir := cfg.Cache.Dir
	return cache.New(cache.Config{
		BaseDir:    dir,
		Prefix:     "codegen",
		MaxEntries: cfg.Cache.MaxEntries,
		MaxSize:    int64(cfg.Cache.MaxSizeMB) * 1024 * 1024,
	})
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
