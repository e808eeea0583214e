package rtmp

import (
	"errors"
	"io"
	"log"
	"net"

	"rtmplex/internal/core/bus"
	"rtmplex/internal/core/protocol/rtmp"
	"rtmplex/internal/rtmperr"
)

// Server accepts RTMP connections and drives each through handshake, the
// command state machine, and media fan-out against a shared registry.
type Server struct {
	registry                 *bus.Registry
	listener                 net.Listener
	maxMessageLen            uint32
	subscriberBufferCapacity uint32
}

// NewServer creates a server backed by registry. maxMessageLen bounds any
// single reassembled message; 0 selects the codec default.
// subscriberBufferCapacity sizes each connection's subscriber ring buffer
// when it plays a stream; 0 selects the default.
func NewServer(registry *bus.Registry, maxMessageLen, subscriberBufferCapacity uint32) *Server {
	return &Server{registry: registry, maxMessageLen: maxMessageLen, subscriberBufferCapacity: subscriberBufferCapacity}
}

// Listen opens the TCP listener at addr.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr returns the listener's bound address, useful when addr used ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed, handling each on
// its own goroutine. It returns nil on a clean listener close.
func (s *Server) Serve() error {
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConnection(netConn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handleConnection runs the handshake and then the message read/dispatch
// loop for one accepted connection, until a protocol error or disconnect.
func (s *Server) handleConnection(netConn net.Conn) {
	remote := netConn.RemoteAddr().String()
	log.Printf("rtmp: connection accepted from %s", remote)

	if err := rtmp.ServerHandshake(netConn); err != nil {
		log.Printf("rtmp: handshake failed for %s: %v", remote, err)
		netConn.Close()
		return
	}

	c := NewConn(netConn, s.registry, s.maxMessageLen, s.subscriberBufferCapacity)
	defer c.Close()

	for {
		msg, err := c.reader.ReadMessage()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("rtmp: connection %s closing: %v", remote, err)
			}
			return
		}

		if err := s.dispatch(c, msg); err != nil {
			log.Printf("rtmp: protocol error on %s, closing connection: %v", remote, err)
			return
		}
	}
}

// dispatch routes one reassembled message to the command handler, the media
// fan-out, or the protocol control handler, per spec.md §4.3's type id
// table. AMF-3-tagged messages are rejected per spec.md §7's stated scope.
func (s *Server) dispatch(c *Conn, msg *rtmp.Message) error {
	switch msg.Header.MessageTypeID {
	case rtmp.MessageTypeCommandAmf0:
		return c.handleCommand(msg.Header.MessageStreamID, msg.Payload)
	case rtmp.MessageTypeCommandAmf3:
		return &rtmperr.Amf3NotSupported{}
	case rtmp.MessageTypeAudio, rtmp.MessageTypeVideo:
		c.handleMediaMessage(msg.Header.MessageTypeID, msg.Header.Timestamp, msg.Payload)
		return nil
	case rtmp.MessageTypeDataAmf0:
		c.handleMediaMessage(msg.Header.MessageTypeID, msg.Header.Timestamp, msg.Payload)
		return nil
	case rtmp.MessageTypeDataAmf3:
		return &rtmperr.Amf3NotSupported{}
	case rtmp.MessageTypeSetChunkSize, rtmp.MessageTypeAbort, rtmp.MessageTypeAck,
		rtmp.MessageTypeUserControl, rtmp.MessageTypeWindowAckSize, rtmp.MessageTypeSetPeerBandwidth:
		return c.handleControlMessage(msg.Header.MessageTypeID, msg.Payload)
	default:
		return &rtmperr.UnknownMessageTypeId{ID: msg.Header.MessageTypeID}
	}
}
