package amf0

import (
	"io"
	"unicode/utf8"

	"rtmplex/internal/bytesio"
	"rtmplex/internal/rtmperr"
)

// Decode reads and decodes a single AMF-0 value from r, advancing it by
// exactly the number of bytes consumed.
func Decode(r io.Reader) (Value, error) {
	marker, err := bytesio.ReadUint8(r)
	if err != nil {
		return nil, err
	}
	return decodeBody(r, marker)
}

func decodeBody(r io.Reader, marker byte) (Value, error) {
	switch marker {
	case MarkerNumber:
		f, err := bytesio.ReadFloat64BE(r)
		if err != nil {
			return nil, err
		}
		return Number(f), nil

	case MarkerBoolean:
		b, err := bytesio.ReadUint8(r)
		if err != nil {
			return nil, err
		}
		return Boolean(b != 0), nil

	case MarkerString:
		s, err := decodeString(r)
		if err != nil {
			return nil, err
		}
		return String(s), nil

	case MarkerObject:
		return decodeObject(r)

	case MarkerNull:
		return Null{}, nil

	case MarkerUndefined:
		return Undefined{}, nil

	case MarkerReference:
		idx, err := bytesio.ReadUint16BE(r)
		if err != nil {
			return nil, err
		}
		return Reference(idx), nil

	case MarkerEcmaArray:
		// Advisory associative-count: read but not trusted, per spec — the
		// 0x00 0x00 0x09 terminator is authoritative.
		if _, err := bytesio.ReadUint32BE(r); err != nil {
			return nil, err
		}
		return decodeEcmaArray(r)

	case MarkerStrictArray:
		count, err := bytesio.ReadUint32BE(r)
		if err != nil {
			return nil, err
		}
		arr := make(StrictArray, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := Decode(r)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil

	case MarkerDate:
		millis, err := bytesio.ReadFloat64BE(r)
		if err != nil {
			return nil, err
		}
		tz, err := bytesio.ReadInt16BE(r)
		if err != nil {
			return nil, err
		}
		return Date{Millis: millis, TZ: tz}, nil

	default:
		return nil, &rtmperr.AmfIncorrectTypeMarker{Marker: marker}
	}
}

// decodeString reads a 2-byte-length-prefixed UTF-8 string body (no type
// marker — the caller has already consumed it, or this is a key string
// which never carries one).
func decodeString(r io.Reader) (string, error) {
	n, err := bytesio.ReadUint16BE(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf, err := bytesio.ReadExact(r, int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", &rtmperr.MalformedAmf{Op: "decode.string", Err: io.ErrUnexpectedEOF}
	}
	return string(buf), nil
}

// decodeObject reads an Object body: repeated (name, value) pairs
// terminated by the canonical 0x00 0x00 0x09 sequence. A property with an
// empty name before the terminator is an error; the terminator itself is
// exactly that empty-name case followed by the object-end marker, so it is
// recognized first.
func decodeObject(r io.Reader) (Object, error) {
	obj := make(Object)
	for {
		name, end, err := readPropertyName(r)
		if err != nil {
			return nil, err
		}
		if end {
			return obj, nil
		}
		val, err := Decode(r)
		if err != nil {
			return nil, err
		}
		obj[name] = val
	}
}

// decodeEcmaArray reads the same body form as an Object but preserves
// insertion order.
func decodeEcmaArray(r io.Reader) (EcmaArray, error) {
	var arr EcmaArray
	for {
		name, end, err := readPropertyName(r)
		if err != nil {
			return nil, err
		}
		if end {
			return arr, nil
		}
		val, err := Decode(r)
		if err != nil {
			return nil, err
		}
		arr = append(arr, EcmaArrayEntry{Key: name, Value: val})
	}
}

// readPropertyName reads a property name. If the name length is zero, the
// following byte must be the object-end marker (0x09); that case is
// reported via end=true and is not itself an error. An empty name NOT
// followed by the end marker is malformed.
func readPropertyName(r io.Reader) (name string, end bool, err error) {
	n, err := bytesio.ReadUint16BE(r)
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		marker, err := bytesio.ReadUint8(r)
		if err != nil {
			return "", false, err
		}
		if marker != MarkerObjectEnd {
			return "", false, &rtmperr.AmfIncorrectEndOfEcmaArray{}
		}
		return "", true, nil
	}
	buf, err := bytesio.ReadExact(r, int(n))
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(buf) {
		return "", false, &rtmperr.MalformedAmf{Op: "decode.propertyName"}
	}
	return string(buf), false, nil
}
