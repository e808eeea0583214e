package bytesio

import "io"

// WriteUint8 writes a single byte.
func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// WriteUint24BE writes the low 24 bits of v, big-endian.
func WriteUint24BE(w io.Writer, v uint32) error {
	var b [3]byte
	PutUint24BE(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteUint32BE writes v as a 4-byte big-endian unsigned integer.
func WriteUint32BE(w io.Writer, v uint32) error {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	_, err := w.Write(b[:])
	return err
}

// WriteUint32LE writes v as a 4-byte little-endian unsigned integer.
func WriteUint32LE(w io.Writer, v uint32) error {
	b := [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	_, err := w.Write(b[:])
	return err
}
