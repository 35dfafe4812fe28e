package presets

import "github.com/tywrap-go/tywrap/tstype"

// stdlibPack collapses common standard-library value types to their
// natural JSON-serializable TS shape (spec §4.1).
type stdlibPack struct{}

func (stdlibPack) Name() string { return "stdlib" }

var stdlibToString = map[string]bool{
	"datetime": true, "date": true, "time": true, "Decimal": true,
	"UUID": true, "Path": true,
}

func (stdlibPack) Map(name, module string) (*tstype.Type, bool) {
	if stdlibToString[name] {
		return tstype.TString, true
	}
	if name == "timedelta" {
		return tstype.TNumber, true
	}
	return nil, false
}
