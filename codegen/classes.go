package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tywrap-go/tywrap/model"
	"github.com/tywrap-go/tywrap/typemap"
)

// renderClass dispatches class emission by Kind (spec §4.2 "Class emission
// (kind-driven)").
func (g *Generator) renderClass(c *model.Class) string {
	switch c.Kind {
	case model.KindTypedDict, model.KindDataclass, model.KindPydantic:
		return g.renderStructuralAlias(c)
	case model.KindNamedTuple:
		return g.renderNamedTupleAlias(c)
	case model.KindProtocol:
		return g.renderProtocolAlias(c)
	default:
		return g.renderOpaqueClass(c)
	}
}

// renderStructuralAlias emits `type Name = { prop[?]: T; … }` for
// typed_dict/dataclass/pydantic classes.
func (g *Generator) renderStructuralAlias(c *model.Class) string {
	var b strings.Builder
	if c.Docstring != "" {
		writeDocComment(&b, c.Docstring, false, nil)
	}
	fmt.Fprintf(&b, "%stype %s = { %s };\n", g.exportKeyword(c.Name), ident(c.Name), g.renderPropertyFields(c.Properties))
	return b.String()
}

// renderPropertyFields renders a "; "-separated "name[?]: T" list for the
// given properties, camelCased per the full identifier policy (spec §8
// scenario 2: is_active -> isActive).
func (g *Generator) renderPropertyFields(props []model.Property) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		opt := ""
		if p.Optional {
			opt = "?"
		}
		parts = append(parts, fmt.Sprintf("%s%s: %s", ident(p.Name), opt, renderType(g.mapper.Map(p.Type, typemap.Value))))
	}
	return strings.Join(parts, "; ")
}

// renderNamedTupleAlias emits `type Name = readonly [T1, T2, …]` (spec §8
// scenario 2), using declaration order as tuple position.
func (g *Generator) renderNamedTupleAlias(c *model.Class) string {
	elems := make([]string, len(c.Properties))
	for i, p := range c.Properties {
		elems[i] = renderType(g.mapper.Map(p.Type, typemap.Value))
	}

	var b strings.Builder
	if c.Docstring != "" {
		writeDocComment(&b, c.Docstring, false, nil)
	}
	fmt.Fprintf(&b, "%stype %s = readonly [%s];\n", g.exportKeyword(c.Name), ident(c.Name), strings.Join(elems, ", "))
	return b.String()
}

// renderProtocolAlias emits `type Name = { prop: T; … method: (params) => R; … }`.
// Protocol method signatures describe shape only, so unlike every other
// emitted callable they are not Promise-wrapped (spec §4.2).
func (g *Generator) renderProtocolAlias(c *model.Class) string {
	var parts []string
	for _, p := range c.Properties {
		opt := ""
		if p.Optional {
			opt = "?"
		}
		parts = append(parts, fmt.Sprintf("%s%s: %s", ident(p.Name), opt, renderType(g.mapper.Map(p.Type, typemap.Value))))
	}
	for _, method := range sortedNonInitMethods(c) {
		positional, varArgs, kwArgs := splitParameters(method.Parameters)
		retType := renderType(g.mapper.Map(method.ReturnType, typemap.Return))
		parts = append(parts, fmt.Sprintf("%s: (%s) => %s", ident(method.Name), paramList(g.mapper, positional, varArgs, kwArgs), retType))
	}

	var b strings.Builder
	if c.Docstring != "" {
		writeDocComment(&b, c.Docstring, false, nil)
	}
	fmt.Fprintf(&b, "%stype %s = { %s };\n", g.exportKeyword(c.Name), ident(c.Name), strings.Join(parts, "; "))
	return b.String()
}

// renderOpaqueClass emits an opaque handle class: a private handle promise,
// a constructor that kicks off bridge.instantiate, and one async method per
// non-__init__ method (spec §4.2 "Ordinary class"). The handle is stored as
// a Promise rather than a resolved string since a TS constructor can't
// itself be async; every method awaits it before issuing its own call.
func (g *Generator) renderOpaqueClass(c *model.Class) string {
	qualifiedClass := qualifiedName(g.module.Name, c.Name)
	className := ident(c.Name)

	var b strings.Builder
	if c.Docstring != "" {
		writeDocComment(&b, c.Docstring, false, nil)
	}
	fmt.Fprintf(&b, "%sclass %s {\n", g.exportKeyword(c.Name), className)
	b.WriteString("\tprivate readonly __handle: Promise<string>;\n\n")

	g.writeConstructor(&b, c, qualifiedClass)

	for _, method := range sortedNonInitMethods(c) {
		qualifiedMethod := qualifiedName(g.module.Name, c.Name, method.Name)
		b.WriteString(g.renderMethod(method, qualifiedMethod))
	}

	b.WriteString("}\n")
	return b.String()
}

// sortedNonInitMethods returns c's non-__init__ methods in ascending name
// order, so emitted class bodies don't depend on declaration order.
func sortedNonInitMethods(c *model.Class) []*model.Method {
	methods := c.NonInitMethods()
	sort.SliceStable(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	return methods
}

// writeConstructor renders the constructor: parameters derived from
// __init__ (self/cls filtered), falling back to a variadic catch-all when
// the class has no __init__ (spec §4.2).
func (g *Generator) writeConstructor(b *strings.Builder, c *model.Class, qualifiedClass string) {
	init := c.Init()

	var positional []model.Parameter
	var varArgs, kwArgs *model.Parameter
	if init != nil {
		positional, varArgs, kwArgs = splitParameters(init.Parameters)
	} else {
		varArgs = &model.Parameter{Name: "args", VarArgs: true}
	}

	params := paramList(g.mapper, positional, varArgs, kwArgs)
	args := bridgeCallArgs("", positional, varArgs, kwArgs)

	fmt.Fprintf(b, "\tconstructor(%s) {\n", params)
	fmt.Fprintf(b, "\t\tthis.__handle = bridge.instantiate(%s, %s);\n", strconv.Quote(qualifiedClass), args)
	b.WriteString("\t}\n\n")
}

// renderMethod emits one instance method: it awaits the constructor's
// handle promise, then issues bridge.call(qualifiedMethod, [handle, args…])
// (spec §4.2).
func (g *Generator) renderMethod(m *model.Method, qualified string) string {
	positional, varArgs, kwArgs := splitParameters(m.Parameters)
	retRendered := renderType(g.mapper.Map(m.ReturnType, typemap.Return))
	name := ident(m.Name)

	var b strings.Builder
	if m.Docstring != "" {
		doc := &strings.Builder{}
		writeDocComment(doc, m.Docstring, g.config.AnnotatedJSDoc, positional)
		for _, line := range strings.Split(strings.TrimRight(doc.String(), "\n"), "\n") {
			fmt.Fprintf(&b, "\t%s\n", line)
		}
	}

	fmt.Fprintf(&b, "\tasync %s(%s): Promise<%s> {\n", name, paramList(g.mapper, positional, varArgs, kwArgs), retRendered)
	b.WriteString("\t\tconst handle = await this.__handle;\n")
	fmt.Fprintf(&b, "\t\treturn (await bridge.call(%s, %s)) as %s;\n",
		strconv.Quote(qualified), bridgeCallArgs("handle", positional, varArgs, kwArgs), retRendered)
	b.WriteString("\t}\n\n")

	return b.String()
}
