// Package tstype defines the closed set of TypeScript type shapes that
// TypeMapper produces and CodeGenerator renders to source text.
package tstype

// Kind discriminates the Type variants (spec §3 "TS type").
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindArray     Kind = "array"
	KindTuple     Kind = "tuple"
	KindObject    Kind = "object"
	KindUnion     Kind = "union"
	KindFunction  Kind = "function"
	KindGeneric   Kind = "generic"
	KindCustom    Kind = "custom"
	KindLiteral   Kind = "literal"
)

// PrimitiveName is the closed set of TS primitive names.
type PrimitiveName string

const (
	String    PrimitiveName = "string"
	Number    PrimitiveName = "number"
	Boolean   PrimitiveName = "boolean"
	Null      PrimitiveName = "null"
	Undefined PrimitiveName = "undefined"
	Void      PrimitiveName = "void"
	Unknown   PrimitiveName = "unknown"
	Never     PrimitiveName = "never"
	Object    PrimitiveName = "object"
)

// Property is a field of an object type.
type Property struct {
	Name     string
	Type     *Type
	Optional bool
	Readonly bool
}

// IndexSignature is an object type's string or number index signature, if
// any (e.g. dict[K,V] where K isn't string|number).
type IndexSignature struct {
	KeyName string
	KeyType PrimitiveName // string or number
	ValueType *Type
}

// Param is a function type's parameter.
type Param struct {
	Name     string
	Type     *Type
	Optional bool
	Rest     bool
}

// Literal is the closed set of literal value kinds a TS literal type may
// hold.
type Literal struct {
	String *string
	Number *float64
	Bool   *bool
	IsNull bool
}

// Type is the tagged sum over TS type shapes.
type Type struct {
	Kind Kind

	// KindPrimitive
	Primitive PrimitiveName

	// KindArray
	Element *Type

	// KindTuple
	Elements []*Type

	// KindObject
	Properties []Property
	Index      *IndexSignature

	// KindUnion
	Types []*Type

	// KindFunction
	Parameters []Param
	ReturnType *Type
	IsAsync    bool

	// KindGeneric
	Name     string
	TypeArgs []*Type

	// KindCustom (Name reused; Module optional qualifier)
	Module string

	// KindLiteral
	LiteralValue Literal
}

// NewPrimitive returns a primitive Type.
func NewPrimitive(p PrimitiveName) *Type { return &Type{Kind: KindPrimitive, Primitive: p} }

// NewArray returns an array<element> Type.
func NewArray(element *Type) *Type { return &Type{Kind: KindArray, Element: element} }

// NewTuple returns a tuple Type. An empty tuple maps to [undefined] per
// spec §4.1, so callers representing Python's empty tuple should pass a
// single undefined element rather than zero elements.
func NewTuple(elements ...*Type) *Type { return &Type{Kind: KindTuple, Elements: elements} }

// NewObject returns a structural object Type.
func NewObject(props []Property, idx *IndexSignature) *Type {
	return &Type{Kind: KindObject, Properties: props, Index: idx}
}

// NewUnion returns a union Type over the given members, in the given
// order. Callers that need a sorted order must pre-sort members;
// TypeMapper keeps the Python union's member order.
func NewUnion(types ...*Type) *Type { return &Type{Kind: KindUnion, Types: types} }

// NewFunction returns a function Type.
func NewFunction(params []Param, ret *Type, isAsync bool) *Type {
	return &Type{Kind: KindFunction, Parameters: params, ReturnType: ret, IsAsync: isAsync}
}

// NewGeneric returns a named generic Type with type arguments.
func NewGeneric(name string, args ...*Type) *Type {
	return &Type{Kind: KindGeneric, Name: name, TypeArgs: args}
}

// NewCustom returns a custom (opaque, named) Type, optionally qualified by
// module.
func NewCustom(name, module string) *Type { return &Type{Kind: KindCustom, Name: name, Module: module} }

// NewLiteral returns a literal Type.
func NewLiteral(v Literal) *Type { return &Type{Kind: KindLiteral, LiteralValue: v} }

// Well-known Type values used repeatedly by TypeMapper's mapping table.
var (
	TString    = NewPrimitive(String)
	TNumber    = NewPrimitive(Number)
	TBoolean   = NewPrimitive(Boolean)
	TNull      = NewPrimitive(Null)
	TUndefined = NewPrimitive(Undefined)
	TVoid      = NewPrimitive(Void)
	TUnknown   = NewPrimitive(Unknown)
	TNever     = NewPrimitive(Never)
	TObject    = NewPrimitive(Object)
)
