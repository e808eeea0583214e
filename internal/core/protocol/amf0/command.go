package amf0

import (
	"bytes"
	"errors"
	"io"
)

// DecodeCommand decodes the body of an AMF-0 command or data message: a
// flat sequence of top-level AMF-0 values (NOT wrapped in a StrictArray —
// RTMP just concatenates them), read until the reader is exhausted.
func DecodeCommand(body []byte) ([]Value, error) {
	r := bytes.NewReader(body)
	var values []Value
	for {
		v, err := Decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// EncodeCommand encodes a flat sequence of top-level AMF-0 values,
// concatenated with no wrapping array marker, matching the wire form RTMP
// command/data messages use.
func EncodeCommand(values ...Value) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		if err := Encode(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// AsString returns v as a Go string if it is an AMF-0 String, else false.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsNumber returns v as a float64 if it is an AMF-0 Number, else false.
func AsNumber(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// AsObject returns v as an Object if it is one, else false. Null decodes to
// a distinct type (Null{}), so callers that accept "object or null" should
// check both.
func AsObject(v Value) (Object, bool) {
	o, ok := v.(Object)
	return o, ok
}

// IsNull reports whether v is the AMF-0 Null or Undefined value.
func IsNull(v Value) bool {
	switch v.(type) {
	case Null, Undefined, nil:
		return true
	default:
		return false
	}
}
