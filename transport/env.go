package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// dangerousEnvKeys must never reach the child environment (spec.md §4.6
// "Subprocess" — prototype-pollution-style keys carried over from the
// JS-side implementation's object-literal environment merging).
var dangerousEnvKeys = map[string]bool{
	"__proto__":   true,
	"prototype":   true,
	"constructor": true,
}

// buildEnv merges extra on top of the parent process environment,
// rejects dangerous keys, and always injects the UTF-8/unbuffered
// variables the bridge script requires (spec.md §4.6, §6 "Environment
// variables consumed").
func buildEnv(extra map[string]string, virtualEnv string) ([]string, error) {
	for k := range extra {
		if dangerousEnvKeys[k] {
			return nil, bridgeerr.NewProtocol(fmt.Sprintf("environment key %q is not allowed", k), nil)
		}
	}

	set := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			set[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range extra {
		set[k] = v
	}

	set["PYTHONUTF8"] = "1"
	set["PYTHONIOENCODING"] = "UTF-8"
	set["PYTHONUNBUFFERED"] = "1"

	if virtualEnv != "" {
		set["VIRTUAL_ENV"] = virtualEnv
		bin := filepath.Join(virtualEnv, "bin")
		if existing, ok := set["PATH"]; ok && existing != "" {
			set["PATH"] = bin + string(os.PathListSeparator) + existing
		} else {
			set["PATH"] = bin
		}
	}

	out := make([]string, 0, len(set))
	for k, v := range set {
		out = append(out, k+"="+v)
	}
	return out, nil
}
