package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// envelope mirrors the wire response shape (spec.md §3 "Protocol
// envelope") loosely enough to detect which parts are present without
// committing to their final Go types up front.
type envelope struct {
	ID       *json.Number    `json:"id"`
	Protocol *string         `json:"protocol"`
	Result   json.RawMessage `json:"result"`
	Error    json.RawMessage `json:"error"`
}

type wireError struct {
	Type      *string `json:"type"`
	Message   *string `json:"message"`
	Traceback *string `json:"traceback"`
}

// DecodeResponse decodes one response line (spec.md §4.4
// "decodeResponse(str) -> T"). When the line is a protocol envelope
// (has a numeric top-level id), envelope discipline is enforced: exactly
// one of result/error, a matching protocol tag when present, and a
// well-shaped error object. A present `result` is unmarshaled into out
// (when non-nil); a present `error` surfaces as a classified Execution
// error preserving type/message/traceback. A non-envelope line is decoded
// as-is into out.
func DecodeResponse(line string, out any, opts Options) error {
	opts = opts.withDefaults()

	if len(line) > opts.MaxPayloadBytes {
		return bridgeerr.NewCodec("decode", "payload", fmt.Sprintf("response payload is %d bytes, exceeds max %d", len(line), opts.MaxPayloadBytes), nil)
	}

	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		return bridgeerr.NewCodec("decode", "json", fmt.Sprintf("invalid JSON: %v", err), err)
	}

	if env.ID == nil {
		// Not a protocol envelope: decode the raw line as-is.
		if out == nil {
			return nil
		}
		if err := json.Unmarshal([]byte(line), out); err != nil {
			return bridgeerr.NewCodec("decode", "json", fmt.Sprintf("unmarshal failed: %v", err), err)
		}
		return nil
	}

	if env.Protocol != nil && *env.Protocol != ProtocolVersion {
		return bridgeerr.NewProtocol(fmt.Sprintf("protocol version mismatch: got %q, want %q", *env.Protocol, ProtocolVersion), nil)
	}

	hasResult := len(env.Result) > 0 && string(env.Result) != "null"
	hasError := len(env.Error) > 0 && string(env.Error) != "null"

	switch {
	case hasResult && hasError:
		return bridgeerr.NewProtocol("envelope carries both result and error; exactly one is allowed", nil)
	case !hasResult && !hasError:
		return bridgeerr.NewProtocol("envelope carries neither result nor error", nil)
	case hasError:
		var we wireError
		if err := json.Unmarshal(env.Error, &we); err != nil {
			return bridgeerr.NewProtocol(fmt.Sprintf("malformed error payload: %v", err), err)
		}
		if we.Type == nil || we.Message == nil {
			return bridgeerr.NewProtocol("malformed error payload: type and message must be strings", nil)
		}
		traceback := ""
		hasTraceback := we.Traceback != nil
		if hasTraceback {
			traceback = *we.Traceback
		}
		return bridgeerr.NewExecution(*we.Type, *we.Message, traceback, hasTraceback)
	default:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return bridgeerr.NewCodec("decode", "json", fmt.Sprintf("unmarshal result failed: %v", err), err)
		}
		return nil
	}
}

// TabularDecoder recognizes and decodes one sentinel-wrapped tabular or
// ndarray shape within an already-decoded response value. DecodeResponseAsync
// applies every registered decoder, depth-first, to the generic value tree
// (spec.md §4.8 suspension point "Codec.decodeResponseAsync applies
// tabular decoders").
type TabularDecoder interface {
	// Matches reports whether v is this decoder's sentinel shape.
	Matches(v map[string]any) bool
	// Decode converts the sentinel shape into its decoded representation.
	Decode(v map[string]any) (any, error)
}

// DecodeResponseAsync decodes line the same way DecodeResponse does, then
// walks the result applying decoders to any matching sentinel sub-value.
// out must be a non-nil *any: the decoders may replace sentinel objects
// with arbitrary decoded values, so the result shape isn't known until
// decode time.
func DecodeResponseAsync(line string, out *any, opts Options, decoders ...TabularDecoder) error {
	var generic any
	if err := DecodeResponse(line, &generic, opts); err != nil {
		return err
	}
	decoded, err := applyTabularDecoders(generic, decoders)
	if err != nil {
		return err
	}
	if out != nil {
		*out = decoded
	}
	return nil
}

func applyTabularDecoders(v any, decoders []TabularDecoder) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		decoded := make(map[string]any, len(t))
		for k, elem := range t {
			d, err := applyTabularDecoders(elem, decoders)
			if err != nil {
				return nil, err
			}
			decoded[k] = d
		}
		for _, dec := range decoders {
			if dec.Matches(decoded) {
				return dec.Decode(decoded)
			}
		}
		if bytesVal, ok := decodeBytesWrapper(decoded); ok {
			return bytesVal, nil
		}
		return decoded, nil
	case []any:
		decoded := make([]any, len(t))
		for i, elem := range t {
			d, err := applyTabularDecoders(elem, decoders)
			if err != nil {
				return nil, err
			}
			decoded[i] = d
		}
		return decoded, nil
	default:
		return v, nil
	}
}

// decodeBytesWrapper reverses the encode-side base64 binary wrapper
// (spec.md §6), so a decoded response's bytes payloads come back as []byte
// rather than the wire object shape.
func decodeBytesWrapper(v map[string]any) ([]byte, bool) {
	flag, ok := v[bytesWrapperKey].(bool)
	if !ok || !flag {
		return nil, false
	}
	b64, ok := v["b64"].(string)
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, false
	}
	return data, true
}
