// Package model defines the data structures for parsing the Python module
// description that the AST-extractor collaborator (out of scope — spec §6)
// produces: functions, classes, their parameters, and the class kinds
// (plain class, typed_dict, protocol, namedtuple, dataclass, pydantic)
// CodeGenerator dispatches on.
package model

import "github.com/tywrap-go/tywrap/pytype"

// Module is the generation input set: every function and class a
// CodeGenerator run emits wrappers for.
type Module struct {
	Name      string      `json:"name"`
	Functions []*Function `json:"functions"`
	Classes   []*Class    `json:"classes"`
	Imports   []string    `json:"imports,omitempty"`
	Exports   []string    `json:"exports,omitempty"`
}

// Parameter is a function or method parameter.
//
// At most one of VarArgs/KwArgs is true per parameter list position — a
// parameter can't be both the positional-variadic and keyword-variadic
// collector. self/cls are present in the parsed description but filtered
// by CodeGenerator, not by this package.
type Parameter struct {
	Name         string      `json:"name"`
	Type         *pytype.Type `json:"type"`
	Optional     bool        `json:"optional,omitempty"`
	DefaultValue any         `json:"defaultValue,omitempty"`
	VarArgs      bool        `json:"varArgs,omitempty"`
	KwArgs       bool        `json:"kwArgs,omitempty"`
}

// Function is a module-level Python function.
type Function struct {
	Name        string       `json:"name"`
	Parameters  []Parameter  `json:"parameters"`
	ReturnType  *pytype.Type `json:"returnType"`
	IsAsync     bool         `json:"isAsync,omitempty"`
	IsGenerator bool         `json:"isGenerator,omitempty"`
	Decorators  []string     `json:"decorators,omitempty"`
	Docstring   string       `json:"docstring,omitempty"`
}

// Method is identical in shape to Function; kept distinct so call sites
// can't accidentally pass a module-level function where a bound method is
// expected (qualified-name construction differs: module.function vs
// module.Class.method).
type Method Function

// ClassKind discriminates the special Python class shapes CodeGenerator
// emits structurally rather than as an opaque handle class.
type ClassKind string

const (
	KindClass      ClassKind = "class"
	KindTypedDict  ClassKind = "typed_dict"
	KindProtocol   ClassKind = "protocol"
	KindNamedTuple ClassKind = "namedtuple"
	KindDataclass  ClassKind = "dataclass"
	KindPydantic   ClassKind = "pydantic"
)

// Property is a class-level field (typed_dict/protocol/dataclass member,
// or a getter/setter pair on an ordinary class).
type Property struct {
	Name     string       `json:"name"`
	Type     *pytype.Type `json:"type"`
	Optional bool         `json:"optional,omitempty"`
	Readonly bool         `json:"readonly,omitempty"`
	Getter   bool         `json:"getter,omitempty"`
	Setter   bool         `json:"setter,omitempty"`
}

// Class is a Python class definition of any Kind.
type Class struct {
	Name       string     `json:"name"`
	Bases      []string   `json:"bases,omitempty"`
	Methods    []*Method  `json:"methods,omitempty"`
	Properties []Property `json:"properties,omitempty"`
	Decorators []string   `json:"decorators,omitempty"`
	Docstring  string     `json:"docstring,omitempty"`
	Kind       ClassKind  `json:"kind"`
}

// Init returns the class's __init__ method, or nil if it has none (in
// which case CodeGenerator falls back to a variadic constructor).
func (c *Class) Init() *Method {
	for _, m := range c.Methods {
		if m.Name == "__init__" {
			return m
		}
	}
	return nil
}

// NonInitMethods returns every method except __init__, in declaration
// order (CodeGenerator sorts them by name for deterministic output; this
// package doesn't impose an order).
func (c *Class) NonInitMethods() []*Method {
	out := make([]*Method, 0, len(c.Methods))
	for _, m := range c.Methods {
		if m.Name != "__init__" {
			out = append(out, m)
		}
	}
	return out
}
