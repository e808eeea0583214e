// Package bytesio provides small big-/little-endian helpers shared by the
// AMF-0 and RTMP chunk codecs, reading directly from an io.Reader.
package bytesio

import (
	"encoding/binary"
	"io"
	"math"
)

// ReadUint8 reads a single byte.
func ReadUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16BE reads a 2-byte big-endian unsigned integer.
func ReadUint16BE(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// ReadUint24BE reads a 3-byte big-endian unsigned integer, zero-extended to
// uint32. RTMP chunk headers use this width for timestamps and lengths.
func ReadUint24BE(r io.Reader) (uint32, error) {
	var b [3]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadUint32BE reads a 4-byte big-endian unsigned integer.
func ReadUint32BE(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadUint32LE reads a 4-byte little-endian unsigned integer. RTMP's fmt-0
// message_stream_id field is the one chunk-header field on the wire that is
// little-endian.
func ReadUint32LE(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadFloat64BE reads an 8-byte big-endian IEEE-754 double.
func ReadFloat64BE(r io.Reader) (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:])), nil
}

// ReadInt16BE reads a 2-byte big-endian signed integer.
func ReadInt16BE(r io.Reader) (int16, error) {
	u, err := ReadUint16BE(r)
	return int16(u), err
}

// ReadExact reads exactly n bytes, returning a freshly allocated slice.
func ReadExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// PutUint24BE writes the low 24 bits of v into b (which must be at least 3
// bytes), big-endian.
func PutUint24BE(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
