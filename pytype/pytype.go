// Package pytype defines the closed set of Python type shapes that
// TypeMapper and CodeGenerator operate over.
//
// A Type is parsed from the module description produced by the Python-side
// AST extractor (an external collaborator, out of scope for this module —
// see spec §6). Kind determines which other fields are populated; the zero
// value of every field not relevant to Kind is left unset.
package pytype

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the Type variants. The set is closed: TypeMapper must
// be total over it.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindCollection Kind = "collection"
	KindUnion      Kind = "union"
	KindOptional   Kind = "optional"
	KindGeneric    Kind = "generic"
	KindCallable   Kind = "callable"
	KindLiteral    Kind = "literal"
	KindCustom     Kind = "custom"
	KindAnnotated  Kind = "annotated"
	KindTypeVar    Kind = "typevar"
	KindFinal      Kind = "final"
	KindClassVar   Kind = "classvar"
)

// Primitive names recognized under KindPrimitive.
type Primitive string

const (
	Int   Primitive = "int"
	Float Primitive = "float"
	Str   Primitive = "str"
	Bool  Primitive = "bool"
	Bytes Primitive = "bytes"
	None  Primitive = "None"
)

// CollectionKind names recognized under KindCollection.
type CollectionKind string

const (
	List      CollectionKind = "list"
	Tuple     CollectionKind = "tuple"
	Set       CollectionKind = "set"
	FrozenSet CollectionKind = "frozenset"
	Dict      CollectionKind = "dict"
)

// Variance for typevars, per spec §3.
type Variance string

const (
	VarianceInvariant     Variance = ""
	VarianceCovariant     Variance = "covariant"
	VarianceContravariant Variance = "contravariant"
)

// LiteralValue is the closed set of literal value kinds spec §3 allows:
// string | number | boolean | null.
type LiteralValue struct {
	String *string
	Number *float64
	Bool   *bool
	IsNull bool
}

// CallableParams is a callable's positional parameter types (spec §3
// callable). The ellipsis sentinel (Ellipsis == true) represents
// Callable[..., R].
type CallableParams struct {
	Ellipsis bool
	Types    []*Type
}

// Type is the tagged sum over Python type shapes. Exactly the fields
// relevant to Kind are populated; see the Kind constants for which.
type Type struct {
	Kind Kind

	// KindPrimitive
	Primitive Primitive

	// KindCollection
	Collection CollectionKind
	ItemTypes  []*Type // ordered; tuple preserves arity, list/set/dict use 1 or 2 entries

	// KindUnion (len(Types) >= 2, enforced by NewUnion)
	Types []*Type

	// KindOptional
	Inner *Type

	// KindGeneric
	Name    string
	TypeArgs []*Type

	// KindCallable
	Params     CallableParams
	ReturnType *Type

	// KindLiteral
	Literal LiteralValue

	// KindCustom
	Module string // Name field reused for the custom type name

	// KindAnnotated (Inner is the base, Metadata is opaque)
	Metadata []string

	// KindTypeVar
	Bound       *Type
	Constraints []*Type
	VarianceTag Variance

	// KindFinal, KindClassVar reuse Inner as the wrapped type.
}

// typeWire is the on-the-wire shape of a Type as the module-description
// source emits it (spec §3): one flat object per variant, tagged by
// "kind", with only the fields relevant to that kind present. Field names
// that are unambiguous across variants (name, inner, types, ...) decode
// directly; "parameters" and "value" are kind-dependent in shape (an
// array-or-ellipsis-sentinel, and a bare scalar of varying type,
// respectively) and are decoded separately in UnmarshalJSON. "base"
// (annotated's wrapped type) is kept distinct from "inner"
// (optional/final/classvar's) since the wire names differ even though
// both land in Type.Inner.
type typeWire struct {
	Kind        Kind            `json:"kind"`
	Name        string          `json:"name"`
	Collection  CollectionKind  `json:"collection"`
	ItemTypes   []*Type         `json:"itemTypes"`
	Types       []*Type         `json:"types"`
	Inner       *Type           `json:"inner"`
	Base        *Type           `json:"base"`
	TypeArgs    []*Type         `json:"typeArgs"`
	Parameters  json.RawMessage `json:"parameters"`
	ReturnType  *Type           `json:"returnType"`
	Value       json.RawMessage `json:"value"`
	Module      string          `json:"module"`
	Metadata    []string        `json:"metadata"`
	Bound       *Type           `json:"bound"`
	Constraints []*Type         `json:"constraints"`
	Variance    Variance        `json:"variance"`
}

// UnmarshalJSON decodes a Type from the wire shape spec §3 names per
// variant. This is needed because several variants (callable, literal)
// reuse the same field name ("parameters", "value") for payloads whose Go
// shape differs from the JSON shape, and several others (primitive,
// generic, custom, typevar) share the "name" field for unrelated Go
// struct fields — a plain struct-tag decode can't disambiguate either.
func (t *Type) UnmarshalJSON(data []byte) error {
	var raw typeWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Type{
		Kind:        raw.Kind,
		Collection:  raw.Collection,
		ItemTypes:   raw.ItemTypes,
		Types:       raw.Types,
		Inner:       raw.Inner,
		TypeArgs:    raw.TypeArgs,
		ReturnType:  raw.ReturnType,
		Metadata:    raw.Metadata,
		Bound:       raw.Bound,
		Constraints: raw.Constraints,
		VarianceTag: raw.Variance,
	}

	switch raw.Kind {
	case KindPrimitive:
		t.Primitive = Primitive(raw.Name)

	case KindGeneric, KindTypeVar:
		t.Name = raw.Name

	case KindCustom:
		t.Name = raw.Name
		t.Module = raw.Module

	case KindCallable:
		params, err := unmarshalCallableParams(raw.Parameters)
		if err != nil {
			return fmt.Errorf("pytype: unmarshal callable parameters: %w", err)
		}
		t.Params = params

	case KindLiteral:
		lit, err := unmarshalLiteralValue(raw.Value)
		if err != nil {
			return fmt.Errorf("pytype: unmarshal literal value: %w", err)
		}
		t.Literal = lit

	case KindAnnotated:
		// annotated's wrapped type is named "base" on the wire (spec §3
		// annotated{base, metadata}), distinct from optional/final/
		// classvar's "inner".
		t.Inner = raw.Base

	case KindCollection, KindUnion, KindOptional, KindFinal, KindClassVar:
		// No fields beyond what's already copied above.

	default:
		return fmt.Errorf("pytype: unknown type kind %q", raw.Kind)
	}

	return nil
}

// unmarshalCallableParams decodes a callable's "parameters" field: either
// the literal string "..." (Callable[..., R]) or an ordered array of
// parameter types.
func unmarshalCallableParams(raw json.RawMessage) (CallableParams, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return CallableParams{}, nil
	}

	var ellipsis string
	if err := json.Unmarshal(raw, &ellipsis); err == nil {
		if ellipsis != "..." {
			return CallableParams{}, fmt.Errorf("unexpected parameters string %q", ellipsis)
		}
		return CallableParams{Ellipsis: true}, nil
	}

	var types []*Type
	if err := json.Unmarshal(raw, &types); err != nil {
		return CallableParams{}, err
	}
	return CallableParams{Types: types}, nil
}

// unmarshalLiteralValue decodes a literal's "value" field, a bare scalar
// of string, number, boolean, or null (spec §3).
func unmarshalLiteralValue(raw json.RawMessage) (LiteralValue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return LiteralValue{IsNull: true}, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return LiteralValue{}, err
	}

	switch val := v.(type) {
	case string:
		return LiteralValue{String: &val}, nil
	case float64:
		return LiteralValue{Number: &val}, nil
	case bool:
		return LiteralValue{Bool: &val}, nil
	case nil:
		return LiteralValue{IsNull: true}, nil
	default:
		return LiteralValue{}, fmt.Errorf("unsupported literal value type %T", v)
	}
}

// NewPrimitive returns a primitive Type.
func NewPrimitive(p Primitive) *Type { return &Type{Kind: KindPrimitive, Primitive: p} }

// NewCollection returns a collection Type. kind is not checked; callers
// construct these from the closed CollectionKind set.
func NewCollection(kind CollectionKind, items ...*Type) *Type {
	return &Type{Kind: KindCollection, Collection: kind, ItemTypes: items}
}

// NewUnion returns a union Type. Per spec §3 a union must have >= 2
// variants; callers that can't guarantee that should use NewOptional or a
// single type directly instead of calling this with fewer.
func NewUnion(types ...*Type) *Type {
	if len(types) < 2 {
		panic("pytype: union requires at least 2 member types")
	}
	return &Type{Kind: KindUnion, Types: types}
}

// NewOptional returns Optional[inner].
func NewOptional(inner *Type) *Type { return &Type{Kind: KindOptional, Inner: inner} }

// NewGeneric returns a named generic with type arguments.
func NewGeneric(name string, args ...*Type) *Type {
	return &Type{Kind: KindGeneric, Name: name, TypeArgs: args}
}

// NewCallable returns Callable[params, ret]. Pass params with Ellipsis set
// for Callable[..., R].
func NewCallable(params CallableParams, ret *Type) *Type {
	return &Type{Kind: KindCallable, Params: params, ReturnType: ret}
}

// NewLiteral returns a Literal[v] type.
func NewLiteral(v LiteralValue) *Type { return &Type{Kind: KindLiteral, Literal: v} }

// NewCustom returns a custom (opaque, named) type, optionally qualified by
// module.
func NewCustom(name, module string) *Type {
	return &Type{Kind: KindCustom, Name: name, Module: module}
}

// NewAnnotated wraps base with metadata; shape-transparent for mapping.
func NewAnnotated(base *Type, metadata ...string) *Type {
	return &Type{Kind: KindAnnotated, Inner: base, Metadata: metadata}
}

// NewTypeVar returns a typevar reference.
func NewTypeVar(name string, bound *Type, constraints []*Type, variance Variance) *Type {
	return &Type{Kind: KindTypeVar, Name: name, Bound: bound, Constraints: constraints, VarianceTag: variance}
}

// NewFinal wraps inner as Final[inner]; shape-transparent.
func NewFinal(inner *Type) *Type { return &Type{Kind: KindFinal, Inner: inner} }

// NewClassVar wraps inner as ClassVar[inner]; shape-transparent.
func NewClassVar(inner *Type) *Type { return &Type{Kind: KindClassVar, Inner: inner} }

// IsTransparentWrapper reports whether t is one of the shape-transparent
// wrapper kinds (annotated/final/classvar) that TypeMapper unwraps before
// mapping.
func (t *Type) IsTransparentWrapper() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindAnnotated, KindFinal, KindClassVar:
		return true
	}
	return false
}

// Unwrap strips transparent wrapper layers, returning the innermost
// non-wrapper type. Returns t unchanged if it isn't a wrapper.
func (t *Type) Unwrap() *Type {
	for t != nil && t.IsTransparentWrapper() {
		t = t.Inner
	}
	return t
}
