package presets

import "github.com/tywrap-go/tywrap/tstype"

// pandasPack maps pandas's two core container types to structurally
// permissive unions, since their wire representation depends on
// orientation (records vs columnar) chosen at the Python boundary (spec
// §4.1).
type pandasPack struct{}

func (pandasPack) Name() string { return "pandas" }

func (pandasPack) Map(name, module string) (*tstype.Type, bool) {
	switch name {
	case "DataFrame":
		return tstype.NewUnion(
			tstype.NewObject(nil, &tstype.IndexSignature{KeyName: "key", KeyType: tstype.String, ValueType: tstype.TUnknown}),
			tstype.NewArray(tstype.NewObject(nil, &tstype.IndexSignature{KeyName: "key", KeyType: tstype.String, ValueType: tstype.TUnknown})),
		), true
	case "Series":
		return tstype.NewUnion(
			tstype.NewArray(tstype.TUnknown),
			tstype.NewObject(nil, &tstype.IndexSignature{KeyName: "key", KeyType: tstype.String, ValueType: tstype.TUnknown}),
		), true
	}
	return nil, false
}
