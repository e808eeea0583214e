package rtmp

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"rtmplex/internal/rtmperr"
)

func TestHandshakeHappyPath(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- ServerHandshake(serverConn) }()

	c1 := make([]byte, HandshakeSize)
	for i := range c1 {
		c1[i] = byte(i)
	}
	if _, err := clientConn.Write(append([]byte{RTMPVersion}, c1...)); err != nil {
		t.Fatalf("write C0+C1: %v", err)
	}

	sBuf := make([]byte, 1+HandshakeSize+HandshakeSize)
	if _, err := io.ReadFull(clientConn, sBuf); err != nil {
		t.Fatalf("read S0+S1+S2: %v", err)
	}
	if sBuf[0] != RTMPVersion {
		t.Fatalf("S0 = %#x, want %#x", sBuf[0], byte(RTMPVersion))
	}
	s1 := sBuf[1 : 1+HandshakeSize]
	s2 := sBuf[1+HandshakeSize:]
	if !bytes.Equal(s2, c1) {
		t.Fatal("S2 does not echo C1")
	}

	if _, err := clientConn.Write(s1); err != nil {
		t.Fatalf("write C2: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("handshake: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server handshake")
	}
}

func TestHandshakeCorruptedC2(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- ServerHandshake(serverConn) }()

	if _, err := clientConn.Write(append([]byte{RTMPVersion}, make([]byte, HandshakeSize)...)); err != nil {
		t.Fatalf("write C0+C1: %v", err)
	}

	sBuf := make([]byte, 1+HandshakeSize+HandshakeSize)
	if _, err := io.ReadFull(clientConn, sBuf); err != nil {
		t.Fatalf("read S0+S1+S2: %v", err)
	}

	// Echo garbage instead of S1.
	if _, err := clientConn.Write(make([]byte, HandshakeSize)); err != nil {
		t.Fatalf("write bad C2: %v", err)
	}

	select {
	case err := <-errCh:
		var corrupted *rtmperr.HandshakeCorrupted
		if !errors.As(err, &corrupted) {
			t.Fatalf("got %v, want HandshakeCorrupted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for server handshake")
	}
}
