package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tywrap-go/tywrap/model"
	"github.com/tywrap-go/tywrap/typemap"
)

// splitParameters filters self/cls and separates the positional parameter
// list from its variadic collectors (spec §4.2 "Function wrapper
// emission"). At most one VarArgs and one KwArgs parameter is expected;
// extras beyond the first of each are dropped defensively rather than
// erroring, since CodeGenerator never fails on malformed input.
func splitParameters(params []model.Parameter) (positional []model.Parameter, varArgs, kwArgs *model.Parameter) {
	for i := range params {
		p := params[i]
		if p.Name == "self" || p.Name == "cls" {
			continue
		}
		switch {
		case p.VarArgs && varArgs == nil:
			v := p
			varArgs = &v
		case p.KwArgs && kwArgs == nil:
			k := p
			kwArgs = &k
		default:
			positional = append(positional, p)
		}
	}
	return
}

// renderParamDecl renders one positional parameter as "name[?]: T".
func renderParamDecl(m *typemap.Mapper, p model.Parameter) string {
	opt := ""
	if p.Optional {
		opt = "?"
	}
	return fmt.Sprintf("%s%s: %s", ident(p.Name), opt, renderType(m.Map(p.Type, typemap.Value)))
}

// renderVarArgsDecl renders the positional-variadic collector:
// "...name: unknown[]" (spec §4.2).
func renderVarArgsDecl(p *model.Parameter) string {
	return fmt.Sprintf("...%s: unknown[]", ident(p.Name))
}

// renderKwArgsDecl renders the keyword-variadic collector. Its TS name is
// always "kwargs" regardless of the Python parameter's own name, per the
// fixed shape spec §4.2 specifies.
func renderKwArgsDecl() string {
	return "kwargs?: { [key: string]: unknown }"
}

// paramList renders a full parameter declaration list: the given positional
// subset, then the variadic tail (always retained, per spec §4.2).
func paramList(m *typemap.Mapper, included []model.Parameter, varArgs, kwArgs *model.Parameter) string {
	var parts []string
	for _, p := range included {
		parts = append(parts, renderParamDecl(m, p))
	}
	if varArgs != nil {
		parts = append(parts, renderVarArgsDecl(varArgs))
	}
	if kwArgs != nil {
		parts = append(parts, renderKwArgsDecl())
	}
	return strings.Join(parts, ", ")
}

// overloadParamSets returns the parameter subsets CodeGenerator must emit an
// overload declaration for, per spec §4.2's overload rule and its worked
// example (§8 scenario 3): one declaration per trailing-optional truncation
// point, from zero trailing-optional parameters included up to (but not
// including) all of them — the full set is the implementation signature,
// not a separate overload.
func overloadParamSets(positional []model.Parameter) [][]model.Parameter {
	firstOptional := -1
	for i, p := range positional {
		if p.Optional {
			firstOptional = i
			break
		}
	}
	if firstOptional < 0 {
		return nil
	}

	required := positional[:firstOptional]
	trailing := positional[firstOptional:]

	sets := make([][]model.Parameter, 0, len(trailing))
	for i := 0; i < len(trailing); i++ {
		set := make([]model.Parameter, 0, firstOptional+i)
		set = append(set, required...)
		set = append(set, trailing[:i]...)
		sets = append(sets, set)
	}
	return sets
}

// bridgeCallArgs renders the argument array literal passed to bridge.call:
// the wrapper's own positional parameter names (as local variables, not
// re-escaped — the identifiers already in scope), plus a trailing kwargs
// bag reference when the callable accepts one.
func bridgeCallArgs(handleArg string, positional []model.Parameter, varArgs, kwArgs *model.Parameter) string {
	var parts []string
	if handleArg != "" {
		parts = append(parts, handleArg)
	}
	for _, p := range positional {
		parts = append(parts, ident(p.Name))
	}
	if varArgs != nil {
		parts = append(parts, "..."+ident(varArgs.Name))
	}
	if kwArgs != nil {
		parts = append(parts, "kwargs")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// renderFunction emits a module-level function wrapper: overload
// declarations (if any trailing-optional parameters exist), then the
// async implementation and its single boundary call (spec §4.2).
func (g *Generator) renderFunction(fn *model.Function) string {
	positional, varArgs, kwArgs := splitParameters(fn.Parameters)
	retRendered := renderType(g.mapper.Map(fn.ReturnType, typemap.Return))
	name := ident(fn.Name)
	qualified := qualifiedName(g.module.Name, fn.Name)

	var b strings.Builder
	if fn.Docstring != "" {
		writeDocComment(&b, fn.Docstring, g.config.AnnotatedJSDoc, positional)
	}

	for _, overload := range overloadParamSets(positional) {
		fmt.Fprintf(&b, "%sfunction %s(%s): Promise<%s>;\n",
			g.exportKeyword(fn.Name), name, paramList(g.mapper, overload, varArgs, kwArgs), retRendered)
	}

	fmt.Fprintf(&b, "%sasync function %s(%s): Promise<%s> {\n",
		g.exportKeyword(fn.Name), name, paramList(g.mapper, positional, varArgs, kwArgs), retRendered)
	fmt.Fprintf(&b, "\treturn (await bridge.call(%s, %s)) as %s;\n",
		strconv.Quote(qualified), bridgeCallArgs("", positional, varArgs, kwArgs), retRendered)
	b.WriteString("}\n")

	return b.String()
}

// writeDocComment emits a JSDoc block for docstring, appending @param lines
// when annotatedJSDoc is requested (spec §4.2 "JSDoc").
func writeDocComment(b *strings.Builder, docstring string, annotated bool, params []model.Parameter) {
	b.WriteString("/**\n")
	for _, line := range strings.Split(docstring, "\n") {
		fmt.Fprintf(b, " * %s\n", line)
	}
	if annotated {
		for i, p := range params {
			fmt.Fprintf(b, " * @param arg%d %s\n", i, describeParamType(p))
		}
	}
	b.WriteString(" */\n")
}

func describeParamType(p model.Parameter) string {
	if p.Type == nil {
		return "unknown"
	}
	return string(p.Type.Kind)
}
