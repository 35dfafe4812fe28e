package presets

import "github.com/tywrap-go/tywrap/tstype"

// scipyPack maps scipy.sparse matrix variants to structurally distinct
// objects discriminated by a "format" field, each carrying the fields
// that variant's storage layout needs (spec §4.1).
type scipyPack struct{}

func (scipyPack) Name() string { return "scipy" }

var scipySparseFormats = map[string][]tstype.Property{
	"csr_matrix": csrLikeFields("csr"),
	"csr":        csrLikeFields("csr"),
	"csc_matrix": csrLikeFields("csc"),
	"csc":        csrLikeFields("csc"),
	"coo_matrix": cooFields(),
	"coo":        cooFields(),
}

func csrLikeFields(format string) []tstype.Property {
	return []tstype.Property{
		{Name: "format", Type: tstype.NewLiteral(tstype.Literal{String: strPtr(format)})},
		{Name: "shape", Type: tstype.NewTuple(tstype.TNumber, tstype.TNumber)},
		{Name: "data", Type: tstype.NewArray(tstype.TNumber)},
		{Name: "indices", Type: tstype.NewArray(tstype.TNumber)},
		{Name: "indptr", Type: tstype.NewArray(tstype.TNumber)},
	}
}

func cooFields() []tstype.Property {
	return []tstype.Property{
		{Name: "format", Type: tstype.NewLiteral(tstype.Literal{String: strPtr("coo")})},
		{Name: "shape", Type: tstype.NewTuple(tstype.TNumber, tstype.TNumber)},
		{Name: "data", Type: tstype.NewArray(tstype.TNumber)},
		{Name: "row", Type: tstype.NewArray(tstype.TNumber)},
		{Name: "col", Type: tstype.NewArray(tstype.TNumber)},
	}
}

func strPtr(s string) *string { return &s }

func (scipyPack) Map(name, module string) (*tstype.Type, bool) {
	if fields, ok := scipySparseFormats[name]; ok {
		return tstype.NewObject(fields, nil), true
	}
	if name == "spmatrix" {
		// Base class: any sparse format is structurally valid. Listed in
		// a fixed order for deterministic output.
		variants := []*tstype.Type{
			tstype.NewObject(csrLikeFields("csr"), nil),
			tstype.NewObject(csrLikeFields("csc"), nil),
			tstype.NewObject(cooFields(), nil),
		}
		return tstype.NewUnion(variants...), true
	}
	return nil, false
}
