// Package typemap implements TypeMapper (spec §4.1): a pure, total
// transform from pytype.Type to tstype.Type, parameterized by a mapping
// context (value vs return position) and an optional set of preset packs
// for library-specific types (stdlib, pandas, scipy, torch, sklearn).
package typemap

import (
	"cmp"
	"slices"

	"github.com/tywrap-go/tywrap/pytype"
	"github.com/tywrap-go/tywrap/tstype"
	"github.com/tywrap-go/tywrap/typemap/presets"
)

// Context is the mapping context a type occurs in. None maps differently
// depending on it (spec §4.1): void in return position, null elsewhere.
type Context int

const (
	Value Context = iota
	Return
)

// Mapper maps pytype.Type to tstype.Type under a fixed set of enabled
// preset packs. The zero value has no presets enabled and is ready to use.
type Mapper struct {
	presets []presets.Pack
}

// New returns a Mapper with the named preset packs enabled, composed in
// the order given. Unknown pack names are ignored (presets are opt-in
// sugar, never a hard requirement — spec doesn't define failure behavior
// for a typo'd preset name, and TypeMapper itself never throws).
func New(packNames ...string) *Mapper {
	m := &Mapper{}
	for _, name := range packNames {
		if p, ok := presets.Get(name); ok {
			m.presets = append(m.presets, p)
		}
	}
	return m
}

// Map converts a Python type to its TypeScript equivalent. Map is total:
// every pytype.Type value, including malformed or unrecognized ones,
// produces a well-formed tstype.Type (falling through to unknown), never
// an error.
func (m *Mapper) Map(py *pytype.Type, ctx Context) *tstype.Type {
	if py == nil {
		return tstype.TUnknown
	}

	// Transparent wrappers unwrap before anything else, including preset
	// lookup, since a preset pack matches on the custom-type name which
	// may itself be wrapped in Annotated/Final/ClassVar.
	if py.IsTransparentWrapper() {
		return m.Map(py.Inner, ctx)
	}

	switch py.Kind {
	case pytype.KindPrimitive:
		return m.mapPrimitive(py.Primitive, ctx)

	case pytype.KindCollection:
		return m.mapCollection(py)

	case pytype.KindUnion:
		return m.mapUnion(py, ctx)

	case pytype.KindOptional:
		// Optional[T] -> T | null regardless of context, by design (spec
		// §4.1, pinned as Open Question #1 in DESIGN.md): this is why
		// optional returns stay observable as `T | null` instead of
		// collapsing to `void` the way a bare `None` return does.
		return tstype.NewUnion(m.Map(py.Inner, ctx), tstype.TNull)

	case pytype.KindGeneric:
		args := make([]*tstype.Type, len(py.TypeArgs))
		for i, a := range py.TypeArgs {
			args[i] = m.Map(a, Value)
		}
		return tstype.NewGeneric(py.Name, args...)

	case pytype.KindCallable:
		return m.mapCallable(py, ctx)

	case pytype.KindLiteral:
		return tstype.NewLiteral(tstype.Literal{
			String: py.Literal.String,
			Number: py.Literal.Number,
			Bool:   py.Literal.Bool,
			IsNull: py.Literal.IsNull,
		})

	case pytype.KindCustom:
		return m.mapCustom(py)

	case pytype.KindTypeVar:
		// Variance/bounds aren't representable in the target type system;
		// documented loss (spec §4.1).
		return tstype.NewCustom(py.Name, "typing")

	case pytype.KindFinal, pytype.KindClassVar:
		return m.Map(py.Inner, ctx)

	default:
		return tstype.TUnknown
	}
}

func (m *Mapper) mapPrimitive(p pytype.Primitive, ctx Context) *tstype.Type {
	switch p {
	case pytype.Int, pytype.Float:
		return tstype.TNumber
	case pytype.Str:
		return tstype.TString
	case pytype.Bytes:
		// Lossy by design (DESIGN.md Open Question #2): this is the
		// Python bytes *type annotation* surfacing as TS string, wholly
		// separate from the wire-level __tywrap_bytes__ wrapper the
		// runtime codec applies to actual binary values.
		return tstype.TString
	case pytype.Bool:
		return tstype.TBoolean
	case pytype.None:
		if ctx == Return {
			return tstype.TVoid
		}
		return tstype.TNull
	default:
		return tstype.TUnknown
	}
}

func (m *Mapper) mapCollection(py *pytype.Type) *tstype.Type {
	switch py.Collection {
	case pytype.List:
		elem := tstype.TUnknown
		if len(py.ItemTypes) > 0 {
			elem = m.Map(py.ItemTypes[0], Value)
		}
		return tstype.NewArray(elem)

	case pytype.Set, pytype.FrozenSet:
		elem := tstype.TUnknown
		if len(py.ItemTypes) > 0 {
			elem = m.Map(py.ItemTypes[0], Value)
		}
		return tstype.NewGeneric("Set", elem)

	case pytype.Tuple:
		if len(py.ItemTypes) == 0 {
			// Empty tuple -> [undefined] (spec §4.1).
			return tstype.NewTuple(tstype.TUndefined)
		}
		elements := make([]*tstype.Type, len(py.ItemTypes))
		for i, it := range py.ItemTypes {
			elements[i] = m.Map(it, Value)
		}
		return tstype.NewTuple(elements...)

	case pytype.Dict:
		var keyTy, valTy *pytype.Type
		if len(py.ItemTypes) > 0 {
			keyTy = py.ItemTypes[0]
		}
		if len(py.ItemTypes) > 1 {
			valTy = py.ItemTypes[1]
		}
		return m.mapDict(keyTy, valTy)

	default:
		return tstype.TUnknown
	}
}

// mapDict implements dict[K,V] -> object{ [key: K']: V } where K' = K if K
// is a string|number primitive, else string (spec §4.1).
func (m *Mapper) mapDict(keyTy, valTy *pytype.Type) *tstype.Type {
	valMapped := tstype.TUnknown
	if valTy != nil {
		valMapped = m.Map(valTy, Value)
	}

	keyName := tstype.String
	if keyTy != nil && keyTy.Unwrap().Kind == pytype.KindPrimitive {
		switch keyTy.Unwrap().Primitive {
		case pytype.Int, pytype.Float:
			keyName = tstype.Number
		case pytype.Str:
			keyName = tstype.String
		}
	}

	return tstype.NewObject(nil, &tstype.IndexSignature{
		KeyName:   "key",
		KeyType:   keyName,
		ValueType: valMapped,
	})
}

func (m *Mapper) mapUnion(py *pytype.Type, ctx Context) *tstype.Type {
	members := make([]*tstype.Type, len(py.Types))
	for i, t := range py.Types {
		members[i] = m.Map(t, ctx)
	}
	return tstype.NewUnion(members...)
}

func (m *Mapper) mapCallable(py *pytype.Type, ctx Context) *tstype.Type {
	ret := m.Map(py.ReturnType, Return)

	if py.Params.Ellipsis {
		return tstype.NewFunction(
			[]tstype.Param{{Name: "args", Type: tstype.NewArray(tstype.TUnknown), Rest: true}},
			ret, false,
		)
	}

	params := make([]tstype.Param, len(py.Params.Types))
	for i, t := range py.Params.Types {
		params[i] = tstype.Param{Name: argName(i), Type: m.Map(t, Value)}
	}
	return tstype.NewFunction(params, ret, false)
}

func argName(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return "arg" + string(digits[i])
	}
	// Fall back to a simple decimal rendering for i >= 10; parameter
	// counts this large don't occur in practice but the function must
	// still be total.
	var b []byte
	n := i
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return "arg" + string(b)
}

// wellKnownCustom maps fully-qualified typing names (module.name, or bare
// name when module is empty) to their fixed TS equivalent (spec §4.1).
var wellKnownCustom = map[string]*tstype.Type{
	"typing.Any":       tstype.TUnknown,
	"Any":              tstype.TUnknown,
	"typing.Never":     tstype.TNever,
	"Never":            tstype.TNever,
	"typing.NoReturn":  tstype.TNever,
	"NoReturn":         tstype.TNever,
	"typing.LiteralString": tstype.TString,
	"LiteralString":        tstype.TString,
	"typing.AnyStr":    tstype.TString,
	"AnyStr":           tstype.TString,
	"object":           tstype.TObject,
	"builtins.object":  tstype.TObject,
}

func (m *Mapper) mapCustom(py *pytype.Type) *tstype.Type {
	qualified := py.Name
	if py.Module != "" {
		qualified = py.Module + "." + py.Name
	}

	if t, ok := wellKnownCustom[qualified]; ok {
		return t
	}
	if t, ok := wellKnownCustom[py.Name]; ok && py.Module == "" {
		return t
	}

	switch qualified {
	case "typing.Callable", "Callable":
		return tstype.NewFunction(
			[]tstype.Param{{Name: "args", Type: tstype.NewArray(tstype.TUnknown), Rest: true}},
			tstype.TUnknown, false,
		)
	case "typing.Awaitable", "Awaitable", "typing.Coroutine", "Coroutine":
		return tstype.NewGeneric("Promise", tstype.TUnknown)
	case "typing.Sequence", "Sequence":
		return tstype.NewGeneric("Array", tstype.TUnknown)
	case "typing.Mapping", "Mapping":
		return tstype.NewObject(nil, &tstype.IndexSignature{
			KeyName: "key", KeyType: tstype.String, ValueType: tstype.TUnknown,
		})
	}

	for _, pack := range m.presets {
		if t, ok := pack.Map(py.Name, py.Module); ok {
			return t
		}
	}

	// Dotted custom.name with no module splits on the rightmost '.' to
	// keep TS identifiers valid and cache keys stable (spec §4.1).
	name, module := py.Name, py.Module
	if module == "" {
		name, module = splitRightmostDot(py.Name)
	}
	return tstype.NewCustom(name, module)
}

func splitRightmostDot(name string) (string, string) {
	idx := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return name, ""
	}
	return name[idx+1:], name[:idx]
}

// SortedUnionMembers returns types sorted by a deterministic key function,
// for callers that need stable union-member ordering in emitted output.
// TypeMapper itself preserves input order (spec: union -> union
// elementwise map), and CodeGenerator renders union members in that
// order; nothing in this module calls this helper.
func SortedUnionMembers(types []*tstype.Type, keyOf func(*tstype.Type) string) []*tstype.Type {
	out := slices.Clone(types)
	slices.SortFunc(out, func(a, b *tstype.Type) int {
		return cmp.Compare(keyOf(a), keyOf(b))
	})
	return out
}
