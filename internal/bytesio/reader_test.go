package bytesio

import (
	"bytes"
	"testing"
)

func TestReadUint24BE(t *testing.T) {
	r := bytes.NewReader([]byte{0x00, 0xFF, 0xFF})
	got, err := ReadUint24BE(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xFFFF {
		t.Fatalf("got %d, want %d", got, 0xFFFF)
	}
}

func TestReadUint32LEvsBE(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	be, _ := ReadUint32BE(bytes.NewReader(data))
	le, _ := ReadUint32LE(bytes.NewReader(data))
	if be != 0x01020304 {
		t.Fatalf("be = %#x", be)
	}
	if le != 0x04030201 {
		t.Fatalf("le = %#x", le)
	}
}

func TestReadFloat64BE(t *testing.T) {
	// 1.0 as IEEE-754 double, big-endian.
	data := []byte{0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	got, err := ReadFloat64BE(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.0 {
		t.Fatalf("got %v, want 1.0", got)
	}
}

func TestPutUint24BE(t *testing.T) {
	b := make([]byte, 3)
	PutUint24BE(b, 0xABCDEF)
	if !bytes.Equal(b, []byte{0xAB, 0xCD, 0xEF}) {
		t.Fatalf("got %x", b)
	}
}
