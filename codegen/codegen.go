// Package codegen implements CodeGenerator (spec §4.2): translates a parsed
// Python module description into a deterministic TypeScript source string
// that wraps every function and class with a boundary-runtime call.
//
// Code generation logic follows the same shape as a multi-target generator
// emitting one language's types from one model: buffer each declaration in
// an order-preserving map keyed by name, then flush every bucket in sorted
// order for deterministic output (generators/golang/{codegen,orderedmap}.go
// in the wider corpus this package is grounded on).
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tywrap-go/tywrap/internal/identifier"
	"github.com/tywrap-go/tywrap/model"
	"github.com/tywrap-go/tywrap/typemap"
)

// Config controls generation behavior (spec §4.2).
type Config struct {
	// ModuleName names the Python module this generation run covers. The
	// generator does not read it: bridge-call qualification (module.function,
	// module.Class) and the header banner use the module description's Name.
	ModuleName string

	// AnnotatedJSDoc, when true, appends @param lines derived from
	// parameter type shapes in addition to the docstring. When false, only
	// the docstring is emitted.
	AnnotatedJSDoc bool

	// ExportAll, when true, prefixes every declaration with `export` even
	// if the underlying Python name starts with an underscore.
	ExportAll bool

	// Presets names the TypeMapper preset packs to enable for this run
	// (spec §4.1), e.g. "stdlib", "pandas".
	Presets []string
}

// Output is a completed generation run.
type Output struct {
	// Source is the full generated TypeScript file contents.
	Source string

	// FunctionNames and ClassNames list what was emitted, in the same
	// ascending order they appear in Source.
	FunctionNames []string
	ClassNames    []string
}

// Generator produces TypeScript source from a model.Module. A Generator is
// single-use: construct one per Generate call via New.
type Generator struct {
	module *model.Module
	config Config
	mapper *typemap.Mapper

	functions *orderedMap[string]
	classes   *orderedMap[string]
}

// New creates a Generator for m under cfg.
func New(m *model.Module, cfg Config) *Generator {
	return &Generator{
		module:    m,
		config:    cfg,
		mapper:    typemap.New(cfg.Presets...),
		functions: newOrderedMap[string](),
		classes:   newOrderedMap[string](),
	}
}

// Generate produces the full TypeScript source for the configured module.
// Generate never fails on malformed individual items (spec §4.2
// "Failure"); it has no side effects beyond the in-memory buffers it
// returns in Output.
func (g *Generator) Generate() *Output {
	for _, fn := range g.module.Functions {
		g.functions.set(fn.Name, g.renderFunction(fn))
	}
	for _, cls := range g.module.Classes {
		g.classes.set(cls.Name, g.renderClass(cls))
	}

	var buf bytes.Buffer
	buf.WriteString(g.fileHeader())

	functionNames := g.functions.keys()
	for _, name := range functionNames {
		buf.WriteString(g.functions.get(name))
		buf.WriteString("\n")
	}

	classNames := g.classes.keys()
	for _, name := range classNames {
		buf.WriteString(g.classes.get(name))
		buf.WriteString("\n")
	}

	return &Output{
		Source:        buf.String(),
		FunctionNames: functionNames,
		ClassNames:    classNames,
	}
}

// fileHeader returns the fixed banner and bridge capability declaration
// every generated module begins with (spec §4.2 "Header").
func (g *Generator) fileHeader() string {
	var b strings.Builder
	b.WriteString("// Code generated by tywrap. DO NOT EDIT.\n")
	fmt.Fprintf(&b, "// Module: %s\n", g.module.Name)
	b.WriteString("\n")
	b.WriteString("interface Bridge {\n")
	b.WriteString("\tcall(qualifiedName: string, args: unknown[]): Promise<unknown>;\n")
	b.WriteString("\tinstantiate(qualifiedClass: string, args: unknown[]): Promise<string>;\n")
	b.WriteString("}\n\n")
	b.WriteString("declare const bridge: Bridge;\n\n")
	return b.String()
}

// exportKeyword returns "export " unless name is private (leading
// underscore) and ExportAll wasn't requested.
func (g *Generator) exportKeyword(name string) string {
	if g.config.ExportAll || !strings.HasPrefix(name, "_") {
		return "export "
	}
	return ""
}

func ident(name string) string {
	return identifier.Escape(name, identifier.Options{})
}

// qualifiedName builds the dotted Python path a bridge call references.
// Unlike every other emitted name, this is NOT run through the identifier
// escape policy: it must match the original Python name exactly so the
// boundary runtime can resolve it on the Python side (spec §8 scenario 4:
// a function named "default" still calls the bridge with "default", even
// though its TS wrapper is named "_default_").
func qualifiedName(parts ...string) string {
	return strings.Join(parts, ".")
}
