package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/c360/keystream/errors"
)

// Value is an encoding-tagged payload. Constructors set payload and
// encoding together; an encoding is never set independently of the payload
// it describes.
type Value struct {
	Payload  []byte
	Encoding Encoding
}

// Raw pairs an explicit payload with an explicit encoding for use with
// From, the (payload, encoding) construction form.
type Raw struct {
	Payload  []byte
	Encoding Encoding
}

// NewValue creates a Value from an explicit payload and encoding.
func NewValue(payload []byte, encoding Encoding) Value {
	return Value{Payload: payload, Encoding: encoding}
}

// BytesValue creates an application/octet-stream Value.
func BytesValue(b []byte) Value {
	return Value{Payload: b, Encoding: NewEncoding(AppOctetStream)}
}

// StringValue creates a text/plain Value.
func StringValue(s string) Value {
	return Value{Payload: []byte(s), Encoding: NewEncoding(TextPlain)}
}

// IntValue creates an application/integer Value.
func IntValue(i int64) Value {
	return Value{Payload: []byte(strconv.FormatInt(i, 10)), Encoding: NewEncoding(AppInteger)}
}

// FloatValue creates an application/float Value.
func FloatValue(f float64) Value {
	return Value{Payload: []byte(strconv.FormatFloat(f, 'g', -1, 64)), Encoding: NewEncoding(AppFloat)}
}

// PropertiesValue creates an application/properties Value.
func PropertiesValue(p Properties) Value {
	return Value{Payload: []byte(p.String()), Encoding: NewEncoding(AppProperties)}
}

// JSONValue marshals v and creates an application/json Value.
func JSONValue(v any) (Value, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Value{}, errors.NewConversion(fmt.Sprintf("%T", v), "JSON Value")
	}
	return Value{Payload: payload, Encoding: NewEncoding(AppJSON)}, nil
}

// From converts any member of the closed convertible union into a Value:
// Value, *Value, []byte, string, int, int64, float64, Properties,
// map[string]string, or Raw for the explicit (payload, encoding) form.
// Any other type yields a ConversionError naming the source type.
func From(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case *Value:
		return *x, nil
	case []byte:
		return BytesValue(x), nil
	case string:
		return StringValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case float64:
		return FloatValue(x), nil
	case Properties:
		return PropertiesValue(x), nil
	case map[string]string:
		return PropertiesValue(Properties(x)), nil
	case Raw:
		return NewValue(x.Payload, x.Encoding), nil
	default:
		return Value{}, errors.NewConversion(fmt.Sprintf("%T", v), "Value")
	}
}

// Decode interprets the payload according to the encoding tag:
//
//	Empty, application/octet-stream  -> []byte
//	text/plain                       -> string (lossy on invalid UTF-8)
//	application/properties           -> Properties
//	application/json, text/json      -> any (decoded JSON structure)
//	application/integer              -> int64
//	application/float                -> float64
//
// JSON numbers decode preferring uint64, then int64, then float64. Any
// other tag fails with ErrUnsupportedEncoding carrying the encoding's
// display name. Decode never panics.
func (v Value) Decode() (any, error) {
	switch v.Encoding.Prefix {
	case Empty, AppOctetStream:
		return v.Payload, nil
	case TextPlain:
		return string(v.Payload), nil
	case AppProperties:
		return ParseProperties(string(v.Payload)), nil
	case AppJSON, TextJSON:
		return decodeJSON(v.Payload)
	case AppInteger:
		i, err := strconv.ParseInt(string(v.Payload), 10, 64)
		if err != nil {
			return nil, errors.NewConversion(string(v.Payload), "int64")
		}
		return i, nil
	case AppFloat:
		f, err := strconv.ParseFloat(string(v.Payload), 64)
		if err != nil {
			return nil, errors.NewConversion(string(v.Payload), "float64")
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedEncoding, v.Encoding.String())
	}
}

// Clone returns a deep copy of the value with its own payload buffer.
func (v Value) Clone() Value {
	payload := make([]byte, len(v.Payload))
	copy(payload, v.Payload)
	return Value{Payload: payload, Encoding: v.Encoding}
}

// decodeJSON unmarshals payload preserving the number trial order
// uint64 -> int64 -> float64.
func decodeJSON(payload []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewConversion(string(payload), "JSON")
	}
	return convertJSON(raw), nil
}

// convertJSON rewrites json.Number leaves into typed Go numbers.
func convertJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if u, err := strconv.ParseUint(x.String(), 10, 64); err == nil {
			return u
		}
		if i, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = convertJSON(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = convertJSON(x[k])
		}
		return x
	default:
		return v
	}
}
