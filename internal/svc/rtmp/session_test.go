package rtmp

import (
	"net"
	"testing"
	"time"

	"rtmplex/internal/core/bus"
	"rtmplex/internal/core/protocol/amf0"
	"rtmplex/internal/core/protocol/rtmp"
)

// testClient drives the client side of a net.Pipe connection through the
// simple handshake and the chunk-stream codec, the way a real RTMP client
// would, so these tests exercise the server's handleConnection loop
// end-to-end (spec.md §8's scenarios) without a real TCP socket.
type testClient struct {
	conn   net.Conn
	reader *rtmp.ChunkReader
	writer *rtmp.ChunkWriter
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	t.Helper()
	c1 := make([]byte, rtmp.HandshakeSize)
	if _, err := conn.Write(append([]byte{rtmp.RTMPVersion}, c1...)); err != nil {
		t.Fatalf("write C0/C1: %v", err)
	}

	s0s1s2 := make([]byte, 1+2*rtmp.HandshakeSize)
	if _, err := readFull(conn, s0s1s2); err != nil {
		t.Fatalf("read S0/S1/S2: %v", err)
	}
	s1 := s0s1s2[1 : 1+rtmp.HandshakeSize]

	if _, err := conn.Write(s1); err != nil { // C2 echoes S1
		t.Fatalf("write C2: %v", err)
	}

	return &testClient{conn: conn, reader: rtmp.NewChunkReader(conn), writer: rtmp.NewChunkWriter(conn)}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *testClient) sendCommand(csid uint32, messageStreamID uint32, values ...amf0.Value) error {
	body, err := amf0.EncodeCommand(values...)
	if err != nil {
		return err
	}
	return c.writer.WriteMessage(csid, rtmp.MessageHeader{MessageTypeID: rtmp.MessageTypeCommandAmf0, MessageStreamID: messageStreamID}, body)
}

func (c *testClient) sendMedia(csid uint32, typeID byte, timestamp uint32, payload []byte) error {
	return c.writer.WriteMessage(csid, rtmp.MessageHeader{Timestamp: timestamp, MessageTypeID: typeID, MessageStreamID: 1}, payload)
}

func (c *testClient) recvMessage(t *testing.T) *rtmp.Message {
	t.Helper()
	msg, err := c.reader.ReadMessage()
	if err != nil {
		t.Fatalf("recvMessage: %v", err)
	}
	return msg
}

// recvCommandNamed reads messages until it finds one of the named commands,
// skipping protocol control/user-control messages a real client would also
// just acknowledge silently.
func (c *testClient) recvCommandNamed(t *testing.T, name string) []amf0.Value {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := c.recvMessage(t)
		if msg.Header.MessageTypeID != rtmp.MessageTypeCommandAmf0 {
			continue
		}
		values, err := amf0.DecodeCommand(msg.Payload)
		if err != nil {
			t.Fatalf("decode command: %v", err)
		}
		if len(values) == 0 {
			continue
		}
		if n, ok := amf0.AsString(values[0]); ok && n == name {
			return values
		}
	}
	t.Fatalf("never saw command %q", name)
	return nil
}

func connectAndCreateStream(t *testing.T, client *testClient) {
	t.Helper()
	if err := client.sendCommand(3, 0, amf0.String("connect"), amf0.Number(1),
		amf0.Object{"app": amf0.String("live")}); err != nil {
		t.Fatalf("send connect: %v", err)
	}
	client.recvCommandNamed(t, "_result")

	if err := client.sendCommand(3, 0, amf0.String("createStream"), amf0.Number(2), amf0.Null{}); err != nil {
		t.Fatalf("send createStream: %v", err)
	}
	client.recvCommandNamed(t, "_result")
}

func TestHandshakeAndConnectHappyPath(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	registry := bus.NewRegistry()
	s := NewServer(registry, 0, 0)
	go s.handleConnection(serverConn)

	client := newTestClient(t, clientConn)
	connectAndCreateStream(t, client)
}

// TestPublishThenPlayScenario mirrors spec.md §8 scenario 5: a publisher
// sends metadata then two video frames; a subscriber that joins afterward
// receives the cached metadata and only frames published after it joined.
func TestPublishThenPlayScenario(t *testing.T) {
	registry := bus.NewRegistry()
	s := NewServer(registry, 0, 0)

	pubServerConn, pubClientConn := net.Pipe()
	defer pubClientConn.Close()
	go s.handleConnection(pubServerConn)
	publisher := newTestClient(t, pubClientConn)
	connectAndCreateStream(t, publisher)

	if err := publisher.sendCommand(3, 1, amf0.String("publish"), amf0.Number(3), amf0.Null{}, amf0.String("live")); err != nil {
		t.Fatalf("send publish: %v", err)
	}
	publisher.recvCommandNamed(t, "onStatus")

	metaBody, err := amf0.EncodeCommand(amf0.String("@setDataFrame"), amf0.String("onMetaData"),
		amf0.EcmaArray{{Key: "width", Value: amf0.Number(1920)}})
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	if err := publisher.writer.WriteMessage(4, rtmp.MessageHeader{MessageTypeID: rtmp.MessageTypeDataAmf0, MessageStreamID: 1}, metaBody); err != nil {
		t.Fatalf("send metadata: %v", err)
	}
	if err := publisher.sendMedia(6, rtmp.MessageTypeVideo, 0, []byte{0x17, 0x00}); err != nil {
		t.Fatalf("send video 0: %v", err)
	}
	if err := publisher.sendMedia(6, rtmp.MessageTypeVideo, 40, []byte{0x27, 0x01}); err != nil {
		t.Fatalf("send video 40: %v", err)
	}

	// Give the publisher's messages time to reach the stream before the
	// subscriber joins, so the scenario's ordering is deterministic.
	time.Sleep(50 * time.Millisecond)

	subServerConn, subClientConn := net.Pipe()
	defer subClientConn.Close()
	go s.handleConnection(subServerConn)
	subscriber := newTestClient(t, subClientConn)
	connectAndCreateStream(t, subscriber)

	if err := subscriber.sendCommand(3, 1, amf0.String("play"), amf0.Number(4), amf0.Null{}, amf0.String("live")); err != nil {
		t.Fatalf("send play: %v", err)
	}
	subscriber.recvCommandNamed(t, "onStatus") // NetStream.Play.Reset
	subscriber.recvCommandNamed(t, "onStatus") // NetStream.Play.Start
	subscriber.recvMessage(t)                  // |RtmpSampleAccess data message

	// handlePlay attaches the subscriber to the stream right after the
	// sample-access write returns; give that a moment to land before
	// publishing the frame this test expects the subscriber to receive.
	time.Sleep(50 * time.Millisecond)

	if err := publisher.sendMedia(6, rtmp.MessageTypeVideo, 80, []byte{0x27, 0x02}); err != nil {
		t.Fatalf("send video 80: %v", err)
	}

	var sawMetadata bool
	var timestamps []uint32
	for i := 0; i < 10; i++ {
		msg := subscriber.recvMessage(t)
		switch msg.Header.MessageTypeID {
		case rtmp.MessageTypeDataAmf0:
			sawMetadata = true
		case rtmp.MessageTypeVideo:
			timestamps = append(timestamps, msg.Header.Timestamp)
		}
		if sawMetadata && len(timestamps) >= 1 {
			break
		}
	}

	if !sawMetadata {
		t.Fatal("subscriber never received the cached metadata message")
	}
	if len(timestamps) == 0 || timestamps[0] != 80 {
		t.Fatalf("first video frame delivered to subscriber had timestamp %v, want [80] (not 0 or 40)", timestamps)
	}
}

// TestPublishDeniedForSecondPublisher mirrors spec.md §8 scenario 6.
func TestPublishDeniedForSecondPublisher(t *testing.T) {
	registry := bus.NewRegistry()
	s := NewServer(registry, 0, 0)

	firstServerConn, firstClientConn := net.Pipe()
	defer firstClientConn.Close()
	go s.handleConnection(firstServerConn)
	first := newTestClient(t, firstClientConn)
	connectAndCreateStream(t, first)
	if err := first.sendCommand(3, 1, amf0.String("publish"), amf0.Number(3), amf0.Null{}, amf0.String("live")); err != nil {
		t.Fatalf("send publish: %v", err)
	}
	values := first.recvCommandNamed(t, "onStatus")
	assertStatusCode(t, values, "NetStream.Publish.Start")

	secondServerConn, secondClientConn := net.Pipe()
	defer secondClientConn.Close()
	go s.handleConnection(secondServerConn)
	second := newTestClient(t, secondClientConn)
	connectAndCreateStream(t, second)
	if err := second.sendCommand(3, 1, amf0.String("publish"), amf0.Number(3), amf0.Null{}, amf0.String("live")); err != nil {
		t.Fatalf("send publish: %v", err)
	}
	values = second.recvCommandNamed(t, "onStatus")
	assertStatusCode(t, values, "NetStream.Publish.Denied")
}

func assertStatusCode(t *testing.T, values []amf0.Value, want string) {
	t.Helper()
	if len(values) < 4 {
		t.Fatalf("onStatus command had %d values, want >= 4", len(values))
	}
	info, ok := amf0.AsObject(values[3])
	if !ok {
		t.Fatalf("onStatus info object missing")
	}
	code, ok := amf0.AsString(info["code"])
	if !ok || code != want {
		t.Fatalf("onStatus code = %q, want %q", code, want)
	}
}
