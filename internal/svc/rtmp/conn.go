// Package rtmp wires the chunk-stream codec and AMF-0 command protocol to
// the shared stream bus: one Conn per accepted TCP connection, running the
// command state machine spec.md §4.4 describes.
package rtmp

import (
	"net"
	"sync"

	"rtmplex/internal/core/bus"
	"rtmplex/internal/core/protocol/rtmp"
)

// state is a connection's position in the Connected -> Ready ->
// (Publishing | Playing) -> Closed state machine (spec.md §4.4).
type state int

const (
	stateConnected state = iota
	stateReady
	statePublishing
	statePlaying
	stateClosed
)

// role holds whichever of publisher/subscriber bookkeeping applies to this
// connection; at most one is populated at a time.
type role struct {
	stream      *bus.Stream
	streamName  string
	publisherID uint64     // set while publishing
	subscriber  *bus.Subscriber
	done        chan struct{} // closed to stop the subscriber drain goroutine
}

// Conn is one accepted RTMP connection: its chunk codec, its place in the
// command state machine, and (if it becomes a publisher or subscriber) its
// bus role.
type Conn struct {
	netConn  net.Conn
	reader   *rtmp.ChunkReader
	registry *bus.Registry

	writeMu sync.Mutex // serializes writes from the read loop and the subscriber drain goroutine
	writer  *rtmp.ChunkWriter

	state state
	app   string

	maxChunkSizeWrite uint32

	role role

	maxMessageLen            uint32
	subscriberBufferCapacity uint32
}

// NewConn wraps an accepted connection. maxMessageLen bounds a single
// reassembled message (spec.md §5 resource bound); 0 selects the default.
// subscriberBufferCapacity sizes the ring buffer a play command attaches
// to the stream's bus; 0 selects the default.
func NewConn(netConn net.Conn, registry *bus.Registry, maxMessageLen, subscriberBufferCapacity uint32) *Conn {
	reader := rtmp.NewChunkReader(netConn)
	if maxMessageLen > 0 {
		reader.SetMaxMessageLength(maxMessageLen)
	}
	if subscriberBufferCapacity == 0 {
		subscriberBufferCapacity = defaultSubscriberBufferCapacity
	}
	return &Conn{
		netConn:                  netConn,
		reader:                   reader,
		writer:                   rtmp.NewChunkWriter(netConn),
		registry:                 registry,
		state:                    stateConnected,
		maxChunkSizeWrite:        rtmp.DefaultChunkSize,
		subscriberBufferCapacity: subscriberBufferCapacity,
	}
}

// writeMessage frames and writes one message, serialized against any
// concurrent write from this connection's subscriber drain goroutine
// (spec.md §5: "writes on a single subscriber connection MUST be
// serialized").
func (c *Conn) writeMessage(csid uint32, typeID byte, timestamp, messageStreamID uint32, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	header := rtmp.MessageHeader{
		Timestamp:       timestamp,
		MessageTypeID:   typeID,
		MessageStreamID: messageStreamID,
	}
	return c.writer.WriteMessage(csid, header, payload)
}

// closeRole tears down whatever publisher/subscriber role this connection
// holds, per spec.md §5 cancellation semantics.
func (c *Conn) closeRole() {
	if c.role.stream == nil {
		return
	}
	if c.role.subscriber != nil {
		close(c.role.done)
		c.role.stream.DetachSubscriber(c.role.subscriber.ID())
	}
	if c.role.publisherID != 0 {
		c.role.stream.DetachPublisher(c.role.publisherID)
	}
	c.registry.RemoveIfEmpty(c.role.streamName)
	c.role = role{}
}

// Close tears down the connection's bus role and the socket.
func (c *Conn) Close() {
	c.closeRole()
	c.state = stateClosed
	c.netConn.Close()
}
