// Package codec implements the Codec boundary layer (spec.md §4.4):
// request encoding with pre-encode validation, and response decoding with
// envelope discipline, classifying every failure per bridgeerr's taxonomy.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// ProtocolVersion is the wire protocol tag every envelope carries (spec.md
// §3 "protocol: fixed version tag"). The source material left the exact
// string unspecified; "tywrap.v1" is this implementation's choice, fixed
// here as the one place that needs to change on a future wire break.
const ProtocolVersion = "tywrap.v1"

// BytesHandling selects how EncodeRequest treats []byte values (spec.md
// §4.4 "Binary data policy").
type BytesHandling string

const (
	// BytesBase64 wraps []byte as {"__tywrap_bytes__": true, "b64": "..."}
	// (spec.md §6).
	BytesBase64 BytesHandling = "base64"

	// BytesReject fails encoding with a Codec error naming the path.
	BytesReject BytesHandling = "reject"

	// BytesPassthrough defers to encoding/json's own []byte handling
	// (which base64-encodes to a plain string, without the wrapper).
	BytesPassthrough BytesHandling = "passthrough"
)

// DefaultMaxPayloadBytes is the default payload-size cap (spec.md §4.4).
const DefaultMaxPayloadBytes = 10 * 1024 * 1024

// Options configures encode/decode validation. The zero value is usable:
// validation stays on (DisableValidation=false), BytesHandling=base64,
// MaxPayloadBytes=DefaultMaxPayloadBytes (spec.md §4.4 "defaults on").
type Options struct {
	// DisableValidation turns off non-finite/key-shape validation
	// entirely. Spec.md §4.4 calls these checks "configurable, defaults
	// on" — this flag is the off switch.
	DisableValidation bool

	BytesHandling   BytesHandling
	MaxPayloadBytes int
}

func (o Options) withDefaults() Options {
	if o.BytesHandling == "" {
		o.BytesHandling = BytesBase64
	}
	if o.MaxPayloadBytes <= 0 {
		o.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return o
}

// bytesWrapperKey is the sentinel property name marking a base64-wrapped
// binary payload (spec.md §6).
const bytesWrapperKey = "__tywrap_bytes__"

// EncodeRequest validates msg (unless opts.DisableValidation) and marshals
// it to a single-line JSON string (spec.md §4.4 "encodeRequest(msg) ->
// string"). Validation failures are Codec errors naming the offending
// JSON path.
func EncodeRequest(msg any, opts Options) (string, error) {
	opts = opts.withDefaults()

	transformed := msg
	if !opts.DisableValidation {
		var err error
		transformed, err = validateAndTransform(msg, "", newVisitSet(), opts)
		if err != nil {
			return "", err
		}
	}

	raw, err := json.Marshal(transformed)
	if err != nil {
		return "", bridgeerr.NewCodec("encode", "json", fmt.Sprintf("marshal failed: %v", err), err)
	}

	if len(raw) > opts.MaxPayloadBytes {
		return "", bridgeerr.NewCodec("encode", "payload", fmt.Sprintf("encoded payload is %d bytes, exceeds max %d", len(raw), opts.MaxPayloadBytes), nil)
	}

	return string(raw), nil
}
