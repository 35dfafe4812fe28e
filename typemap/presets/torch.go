package presets

import "github.com/tywrap-go/tywrap/tstype"

// torchPack maps torch.Tensor to its wire-safe structural shape (spec
// §4.1): the tensor's data, shape, and optionally dtype/device metadata.
type torchPack struct{}

func (torchPack) Name() string { return "torch" }

func (torchPack) Map(name, module string) (*tstype.Type, bool) {
	if name != "Tensor" {
		return nil, false
	}
	return tstype.NewObject([]tstype.Property{
		{Name: "data", Type: tstype.NewArray(tstype.TUnknown)},
		{Name: "shape", Type: tstype.NewArray(tstype.TNumber)},
		{Name: "dtype", Type: tstype.TString, Optional: true},
		{Name: "device", Type: tstype.TString, Optional: true},
	}, nil), true
}
