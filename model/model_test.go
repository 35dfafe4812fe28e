package model

import (
	"encoding/json"
	"testing"

	"github.com/tywrap-go/tywrap/pytype"
)

func TestClassInit(t *testing.T) {
	c := &Class{
		Name: "Widget",
		Methods: []*Method{
			{Name: "__init__"},
			{Name: "render"},
		},
	}

	init := c.Init()
	if init == nil || init.Name != "__init__" {
		t.Fatalf("Init() = %v, want __init__ method", init)
	}
}

func TestClassInitMissing(t *testing.T) {
	c := &Class{Name: "Widget", Methods: []*Method{{Name: "render"}}}
	if init := c.Init(); init != nil {
		t.Fatalf("Init() = %v, want nil", init)
	}
}

func TestClassNonInitMethods(t *testing.T) {
	c := &Class{
		Name: "Widget",
		Methods: []*Method{
			{Name: "__init__"},
			{Name: "render"},
			{Name: "resize"},
		},
	}

	got := c.NonInitMethods()
	if len(got) != 2 {
		t.Fatalf("NonInitMethods() = %v, want 2 entries", got)
	}
	for _, m := range got {
		if m.Name == "__init__" {
			t.Errorf("NonInitMethods() included __init__")
		}
	}
}

func TestClassNonInitMethodsEmpty(t *testing.T) {
	c := &Class{Name: "Widget"}
	got := c.NonInitMethods()
	if len(got) != 0 {
		t.Fatalf("NonInitMethods() = %v, want empty", got)
	}
}

// TestFunctionUnmarshalJSONCallableParameter exercises a function whose
// parameter type is itself a callable, the shape that originally went
// through pytype.Type's missing field tags unchanged and lost its
// parameter list.
func TestFunctionUnmarshalJSONCallableParameter(t *testing.T) {
	data := []byte(`{
		"name": "apply",
		"parameters": [{
			"name": "fn",
			"type": {
				"kind": "callable",
				"parameters": [{"kind": "primitive", "name": "int"}, {"kind": "primitive", "name": "str"}],
				"returnType": {"kind": "primitive", "name": "bool"}
			}
		}],
		"returnType": {"kind": "literal", "value": "ok"}
	}`)

	var fn Function
	if err := json.Unmarshal(data, &fn); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(fn.Parameters) != 1 {
		t.Fatalf("Parameters = %+v, want 1 entry", fn.Parameters)
	}
	paramType := fn.Parameters[0].Type
	if paramType.Kind != pytype.KindCallable {
		t.Fatalf("param Kind = %v, want callable", paramType.Kind)
	}
	if paramType.Params.Ellipsis || len(paramType.Params.Types) != 2 {
		t.Fatalf("param Params = %+v, want 2 concrete parameter types", paramType.Params)
	}
	if paramType.ReturnType == nil || paramType.ReturnType.Primitive != pytype.Bool {
		t.Fatalf("param ReturnType = %+v, want bool", paramType.ReturnType)
	}

	if fn.ReturnType.Kind != pytype.KindLiteral || fn.ReturnType.Literal.String == nil || *fn.ReturnType.Literal.String != "ok" {
		t.Fatalf("ReturnType = %+v, want literal \"ok\"", fn.ReturnType)
	}
}
