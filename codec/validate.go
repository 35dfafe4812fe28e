package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// visitKey identifies one reference-kind value for cycle detection: the
// same pointer value can be legitimately reused across a map and a slice,
// so the value's reflect.Kind is part of the key too.
type visitKey struct {
	kind reflect.Kind
	ptr  uintptr
}

type visitSet map[visitKey]bool

func newVisitSet() visitSet {
	return make(visitSet)
}

// joinField and joinIndex build the dotted/bracketed JSON-path strings
// spec.md §8's worked example uses ("NaN at path a.b[2].c").
func joinField(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func joinIndex(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

// validateAndTransform walks v, rejecting non-finite numbers, non-string
// map keys, and cyclic references (spec.md §4.4), and applies the
// configured binary-data policy to []byte values. It returns a value safe
// to pass to encoding/json.Marshal: maps become map[string]any, slices
// become []any, structs are expanded field-by-field using their JSON tag
// name (mirroring how encoding/json itself would name them).
func validateAndTransform(v any, path string, visited visitSet, opts Options) (any, error) {
	if v == nil {
		return nil, nil
	}

	if b, ok := v.([]byte); ok {
		return transformBytes(b, path, opts)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, bridgeerr.NewCodec("encode", "number", fmt.Sprintf("non-finite number at path %q", pathOrRoot(path)), nil)
		}
		return f, nil

	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v, nil

	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		key := visitKey{kind: reflect.Ptr, ptr: rv.Pointer()}
		if visited[key] {
			return nil, bridgeerr.NewCodec("encode", "json", fmt.Sprintf("cyclic reference at path %q", pathOrRoot(path)), nil)
		}
		visited[key] = true
		defer delete(visited, key)
		return validateAndTransform(rv.Elem().Interface(), path, visited, opts)

	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return nil, nil
			}
			key := visitKey{kind: reflect.Slice, ptr: rv.Pointer()}
			if visited[key] {
				return nil, bridgeerr.NewCodec("encode", "json", fmt.Sprintf("cyclic reference at path %q", pathOrRoot(path)), nil)
			}
			visited[key] = true
			defer delete(visited, key)
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := validateAndTransform(rv.Index(i).Interface(), joinIndex(path, i), visited, opts)
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil

	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		key := visitKey{kind: reflect.Map, ptr: rv.Pointer()}
		if visited[key] {
			return nil, bridgeerr.NewCodec("encode", "json", fmt.Sprintf("cyclic reference at path %q", pathOrRoot(path)), nil)
		}
		visited[key] = true
		defer delete(visited, key)

		if rv.Type().Key().Kind() != reflect.String {
			return nil, bridgeerr.NewCodec("encode", "json", fmt.Sprintf("non-string map key at path %q", pathOrRoot(path)), nil)
		}

		mapKeys := rv.MapKeys()
		names := make([]string, len(mapKeys))
		for i, k := range mapKeys {
			names[i] = k.String()
		}
		sort.Strings(names)

		out := make(map[string]any, len(names))
		for _, name := range names {
			elemVal := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			elem, err := validateAndTransform(elemVal.Interface(), joinField(path, name), visited, opts)
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil

	case reflect.Struct:
		t := rv.Type()
		out := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.PkgPath != "" {
				continue // unexported
			}
			name := jsonFieldName(field)
			if name == "-" {
				continue
			}
			elem, err := validateAndTransform(rv.Field(i).Interface(), joinField(path, name), visited, opts)
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil

	default:
		return v, nil
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

// jsonFieldName derives the name encoding/json would serialize field
// under, honoring a `json:"name"` tag when present.
func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

func transformBytes(b []byte, path string, opts Options) (any, error) {
	switch opts.BytesHandling {
	case BytesReject:
		return nil, bridgeerr.NewCodec("encode", "bytes", fmt.Sprintf("binary data not allowed at path %q", pathOrRoot(path)), nil)
	case BytesPassthrough:
		return b, nil
	default: // BytesBase64
		return map[string]any{
			bytesWrapperKey: true,
			"b64":           base64.StdEncoding.EncodeToString(b),
		}, nil
	}
}
