// Package presets implements TypeMapper's preset packs (spec §4.1): named,
// composable groups of extra custom-type mapping rules for well-known
// third-party Python libraries (stdlib, pandas, scipy, torch, sklearn).
//
// Each pack lives in its own file; this file's init registers all of
// them, one Register call per pack, and Get looks them up by name.
package presets

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tywrap-go/tywrap/tstype"
)

// Pack maps a custom Python type name (plus its module, if known) to a TS
// type. Map returns ok=false when the pack has no rule for the given name,
// so callers can fall through to the next pack or the default custom-type
// emission.
type Pack interface {
	Name() string
	Map(name, module string) (*tstype.Type, bool)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Pack)
)

// Register adds a preset pack to the registry. Panics on duplicate names,
// since pack names are a fixed, closed set defined in this package.
func Register(p Pack) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[p.Name()]; exists {
		panic(fmt.Sprintf("presets: pack %q already registered", p.Name()))
	}
	registry[p.Name()] = p
}

// Get returns a preset pack by name.
func Get(name string) (Pack, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// List returns all registered pack names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	Register(stdlibPack{})
	Register(pandasPack{})
	Register(scipyPack{})
	Register(torchPack{})
	Register(sklearnPack{})
}
