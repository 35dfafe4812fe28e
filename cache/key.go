package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
)

// BuildKey computes the cache key for (prefix, inputs…): a typed, delimited
// SHA-256 digest over prefix and every input, so primitives disambiguate by
// type tag and input boundaries can never bleed into one another (spec.md
// §3 "Cache entry"). Returns the full 64-hex-character digest; callers that
// need a filename use Filename, which takes the first 32 characters.
func BuildKey(prefix string, inputs ...any) string {
	h := sha256.New()
	writeTagged(h, "prefix", []byte(prefix))
	for i, in := range inputs {
		tag, data := typedEncode(in)
		writeTagged(h, fmt.Sprintf("%s%d", tag, i), data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Filename returns the on-disk filename for a cache key under the given
// prefix: "{prefix}_{first-32-hex}.json" (spec.md §4.3). The prefix here is
// purely cosmetic — it never derives from caller-controlled strings beyond
// what already fed BuildKey, so the result is traversal-safe.
func Filename(prefix, key string) string {
	n := key
	if len(n) > 32 {
		n = n[:32]
	}
	return fmt.Sprintf("%s_%s.json", prefix, n)
}

// writeTagged length-prefixes a (tag, data) pair into h, so that two inputs
// whose byte representations happen to share a prefix can never collide
// once their lengths differ.
func writeTagged(h interface{ Write([]byte) (int, error) }, tag string, data []byte) {
	var lenBuf [8]byte
	h.Write([]byte(tag))
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	h.Write(lenBuf[:])
	h.Write(data)
}

// typedEncode renders one cache-key input as a (type-tag, bytes) pair.
// Primitives get a dedicated tag and a compact binary encoding; anything
// else falls through to canonical JSON, which disambiguates structurally
// (spec.md §8: "collisions imply input equality modulo JSON-serialization
// of non-primitives").
func typedEncode(in any) (string, []byte) {
	switch v := in.(type) {
	case nil:
		return "nil", nil
	case string:
		return "str", []byte(v)
	case []byte:
		return "bin", v
	case bool:
		if v {
			return "bool", []byte{1}
		}
		return "bool", []byte{0}
	case int:
		return intTag(int64(v))
	case int32:
		return intTag(int64(v))
	case int64:
		return intTag(v)
	case float32:
		return floatTag(float64(v))
	case float64:
		return floatTag(v)
	case json.RawMessage:
		return "json", canonicalJSON(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "json", []byte(fmt.Sprintf("%#v", v))
		}
		return "json", canonicalJSON(raw)
	}
}

func intTag(v int64) (string, []byte) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return "int", buf[:]
}

func floatTag(v float64) (string, []byte) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	return "flt", buf[:]
}

// canonicalJSON re-marshals raw JSON so that two inputs differing only in
// object property insertion order hash identically (spec.md §8 scenario 8:
// "Two IR-cache keys differing only in JSON property order yield the same
// on-disk filename"). Unmarshaling into `any` discards source key order;
// re-marshaling always sorts map[string]any keys alphabetically, which is
// what encoding/json does for every map type regardless of input order.
func canonicalJSON(raw []byte) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}
