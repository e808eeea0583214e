package amf0

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode writes val to w in the canonical AMF-0 wire form.
func Encode(w io.Writer, val Value) error {
	switch v := val.(type) {
	case Number:
		return encodeNumber(w, float64(v))
	case Boolean:
		return encodeBoolean(w, bool(v))
	case String:
		return encodeString(w, string(v))
	case Object:
		return encodeObject(w, v)
	case EcmaArray:
		return encodeEcmaArray(w, v)
	case StrictArray:
		return encodeStrictArray(w, v)
	case Null, nil:
		return writeByte(w, MarkerNull)
	case Undefined:
		return writeByte(w, MarkerUndefined)
	case Reference:
		if err := writeByte(w, MarkerReference); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, uint16(v))
	case Date:
		return encodeDate(w, v)
	default:
		return fmt.Errorf("amf0: encode: unsupported value type %T", val)
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func encodeNumber(w io.Writer, f float64) error {
	if err := writeByte(w, MarkerNumber); err != nil {
		return err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	_, err := w.Write(b[:])
	return err
}

func encodeBoolean(w io.Writer, b bool) error {
	if err := writeByte(w, MarkerBoolean); err != nil {
		return err
	}
	v := byte(0)
	if b {
		v = 1
	}
	return writeByte(w, v)
}

func encodeString(w io.Writer, s string) error {
	if err := writeByte(w, MarkerString); err != nil {
		return err
	}
	return writeRawString(w, s)
}

// writeRawString writes a length-prefixed string body with no leading type
// marker, used for Object/EcmaArray property names as well as String
// values.
func writeRawString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("amf0: string length %d exceeds AMF-0 16-bit limit", len(s))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func encodeObject(w io.Writer, obj Object) error {
	if err := writeByte(w, MarkerObject); err != nil {
		return err
	}
	for k, v := range obj {
		if err := writeRawString(w, k); err != nil {
			return err
		}
		if err := Encode(w, v); err != nil {
			return err
		}
	}
	return writeObjectEnd(w)
}

func encodeEcmaArray(w io.Writer, arr EcmaArray) error {
	if err := writeByte(w, MarkerEcmaArray); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(arr))); err != nil {
		return err
	}
	for _, e := range arr {
		if err := writeRawString(w, e.Key); err != nil {
			return err
		}
		if err := Encode(w, e.Value); err != nil {
			return err
		}
	}
	return writeObjectEnd(w)
}

func writeObjectEnd(w io.Writer) error {
	if _, err := w.Write([]byte{0x00, 0x00}); err != nil {
		return err
	}
	return writeByte(w, MarkerObjectEnd)
}

func encodeStrictArray(w io.Writer, arr StrictArray) error {
	if err := writeByte(w, MarkerStrictArray); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(arr))); err != nil {
		return err
	}
	for _, v := range arr {
		if err := Encode(w, v); err != nil {
			return err
		}
	}
	return nil
}

func encodeDate(w io.Writer, d Date) error {
	if err := writeByte(w, MarkerDate); err != nil {
		return err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(d.Millis))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, uint16(0)) // tz must be zero on the wire
}
