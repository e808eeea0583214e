package rtmp

import (
	"io"

	"rtmplex/internal/bytesio"
)

// writeState records, per chunk-stream id, the header most recently written.
// WriteMessage always sends a full fmt0 header, so this state is not used
// for fmt1/fmt2 header compression.
type writeState struct {
	hasHeader   bool
	lastHeader  MessageHeader
	lastHadExtendedTs bool
}

// ChunkWriter splits outgoing RTMP messages into chunks no larger than the
// negotiated chunk size, writing a full (fmt 0) header for the first chunk
// of a message and fmt 3 continuation chunks for the rest. One ChunkWriter
// exists per connection, with its own chunk-size and per-csid state.
type ChunkWriter struct {
	w            io.Writer
	maxChunkSize uint32
	states       map[uint32]*writeState
}

// NewChunkWriter creates a writer using the protocol-default chunk size.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{
		w:            w,
		maxChunkSize: DefaultChunkSize,
		states:       make(map[uint32]*writeState),
	}
}

// SetMaxChunkSize updates the size bound applied to subsequently written
// chunks. Callers are responsible for first sending a SetChunkSize message
// to the peer so both sides agree.
func (c *ChunkWriter) SetMaxChunkSize(size uint32) {
	c.maxChunkSize = size
}

// WriteMessage writes msg as one or more chunks on csid.
func (c *ChunkWriter) WriteMessage(csid uint32, header MessageHeader, payload []byte) error {
	st, ok := c.states[csid]
	if !ok {
		st = &writeState{}
		c.states[csid] = st
	}

	header.MessageLength = uint32(len(payload))
	extended := header.Timestamp >= ExtendedTimestampMarker

	if err := c.writeBasicHeader(csid, FmtType0); err != nil {
		return err
	}
	if err := c.writeHeader0(header, extended); err != nil {
		return err
	}

	remaining := payload
	chunkSize := int(c.maxChunkSize)
	first := true
	for len(remaining) > 0 || first {
		n := len(remaining)
		if n > chunkSize {
			n = chunkSize
		}
		if !first {
			if err := c.writeBasicHeader(csid, FmtType3); err != nil {
				return err
			}
			if extended {
				if err := bytesio.WriteUint32BE(c.w, header.Timestamp); err != nil {
					return err
				}
			}
		}
		if n > 0 {
			if _, err := c.w.Write(remaining[:n]); err != nil {
				return err
			}
			remaining = remaining[n:]
		}
		first = false
	}

	st.hasHeader = true
	st.lastHeader = header
	st.lastHadExtendedTs = extended
	return nil
}

func (c *ChunkWriter) writeBasicHeader(csid uint32, chunkFmt byte) error {
	fmtBits := (chunkFmt & 0x03) << 6
	switch {
	case csid < 64:
		return bytesio.WriteUint8(c.w, fmtBits|byte(csid))
	case csid < 64+256:
		if err := bytesio.WriteUint8(c.w, fmtBits); err != nil {
			return err
		}
		return bytesio.WriteUint8(c.w, byte(csid-64))
	default:
		if err := bytesio.WriteUint8(c.w, fmtBits|0x01); err != nil {
			return err
		}
		rel := csid - 64
		// Extension bytes are little-endian.
		if err := bytesio.WriteUint8(c.w, byte(rel)); err != nil {
			return err
		}
		return bytesio.WriteUint8(c.w, byte(rel>>8))
	}
}

func (c *ChunkWriter) writeHeader0(header MessageHeader, extended bool) error {
	ts := header.Timestamp
	if extended {
		ts = ExtendedTimestampMarker
	}
	if err := bytesio.WriteUint24BE(c.w, ts); err != nil {
		return err
	}
	if err := bytesio.WriteUint24BE(c.w, header.MessageLength); err != nil {
		return err
	}
	if err := bytesio.WriteUint8(c.w, header.MessageTypeID); err != nil {
		return err
	}
	if err := bytesio.WriteUint32LE(c.w, header.MessageStreamID); err != nil {
		return err
	}
	if extended {
		return bytesio.WriteUint32BE(c.w, header.Timestamp)
	}
	return nil
}
