package presets

import "github.com/tywrap-go/tywrap/tstype"

// sklearnPack maps sklearn.BaseEstimator (and subclasses sharing its
// shape) to a descriptor object: class name, module, optional version, and
// the estimator's constructor params (spec §4.1). Fitted-model internals
// beyond params aren't representable across the boundary.
type sklearnPack struct{}

func (sklearnPack) Name() string { return "sklearn" }

func (sklearnPack) Map(name, module string) (*tstype.Type, bool) {
	if name != "BaseEstimator" {
		return nil, false
	}
	return tstype.NewObject([]tstype.Property{
		{Name: "className", Type: tstype.TString},
		{Name: "module", Type: tstype.TString},
		{Name: "version", Type: tstype.TString, Optional: true},
		{Name: "params", Type: tstype.NewObject(nil, &tstype.IndexSignature{
			KeyName: "key", KeyType: tstype.String, ValueType: tstype.TUnknown,
		})},
	}, nil), true
}
