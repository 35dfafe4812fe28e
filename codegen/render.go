package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tywrap-go/tywrap/tstype"
)

// renderType renders a tstype.Type as TypeScript source text.
func renderType(t *tstype.Type) string {
	if t == nil {
		return string(tstype.Unknown)
	}

	switch t.Kind {
	case tstype.KindPrimitive:
		return string(t.Primitive)

	case tstype.KindArray:
		return renderParenthesized(t.Element) + "[]"

	case tstype.KindTuple:
		elems := make([]string, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = renderType(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"

	case tstype.KindObject:
		return renderObject(t)

	case tstype.KindUnion:
		members := make([]string, len(t.Types))
		for i, m := range t.Types {
			members[i] = renderParenthesized(m)
		}
		return strings.Join(members, " | ")

	case tstype.KindFunction:
		return renderFunctionType(t)

	case tstype.KindGeneric:
		if len(t.TypeArgs) == 0 {
			return t.Name
		}
		args := make([]string, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = renderType(a)
		}
		return t.Name + "<" + strings.Join(args, ", ") + ">"

	case tstype.KindCustom:
		if t.Module != "" {
			return t.Module + "." + t.Name
		}
		return t.Name

	case tstype.KindLiteral:
		return renderLiteral(t.LiteralValue)

	default:
		return string(tstype.Unknown)
	}
}

// renderParenthesized wraps t's rendering in parens when embedding it inside
// an array or generic type argument would otherwise be ambiguous (union and
// function types bind loosely).
func renderParenthesized(t *tstype.Type) string {
	if t == nil {
		return string(tstype.Unknown)
	}
	s := renderType(t)
	if t.Kind == tstype.KindUnion || t.Kind == tstype.KindFunction {
		return "(" + s + ")"
	}
	return s
}

func renderObject(t *tstype.Type) string {
	if len(t.Properties) == 0 && t.Index == nil {
		return "{}"
	}

	var parts []string
	for _, p := range t.Properties {
		parts = append(parts, renderProperty(p))
	}
	if t.Index != nil {
		parts = append(parts, fmt.Sprintf("[%s: %s]: %s", t.Index.KeyName, t.Index.KeyType, renderType(t.Index.ValueType)))
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func renderProperty(p tstype.Property) string {
	opt := ""
	if p.Optional {
		opt = "?"
	}
	readonly := ""
	if p.Readonly {
		readonly = "readonly "
	}
	return fmt.Sprintf("%s%s%s: %s", readonly, p.Name, opt, renderType(p.Type))
}

func renderFunctionType(t *tstype.Type) string {
	params := make([]string, len(t.Parameters))
	for i, p := range t.Parameters {
		params[i] = renderParam(p)
	}
	ret := renderType(t.ReturnType)
	if t.IsAsync {
		ret = "Promise<" + ret + ">"
	}
	return "(" + strings.Join(params, ", ") + ") => " + ret
}

func renderParam(p tstype.Param) string {
	prefix := ""
	if p.Rest {
		prefix = "..."
	}
	opt := ""
	if p.Optional {
		opt = "?"
	}
	return fmt.Sprintf("%s%s%s: %s", prefix, p.Name, opt, renderType(p.Type))
}

func renderLiteral(v tstype.Literal) string {
	switch {
	case v.IsNull:
		return "null"
	case v.String != nil:
		return strconv.Quote(*v.String)
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'g', -1, 64)
	case v.Bool != nil:
		if *v.Bool {
			return "true"
		}
		return "false"
	default:
		return string(tstype.Unknown)
	}
}
