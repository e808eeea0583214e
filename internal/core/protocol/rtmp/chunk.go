package rtmp

import (
	"errors"
	"fmt"
	"io"

	"rtmplex/internal/bytesio"
	"rtmplex/internal/rtmperr"
)

// ErrFirstChunkMustBeType0 is returned when the first chunk ever observed
// on a chunk-stream id is not fmt 0 (spec.md §4.2 tie-break: a strict
// implementation rejects otherwise).
var ErrFirstChunkMustBeType0 = errors.New("rtmp: first chunk on a new chunk stream must be fmt 0")

// readState is the per-chunk-stream-id reassembly state spec.md §3 calls
// ChunkStreamState: the message currently being assembled plus the last
// header seen (used to expand fmt 1/2/3 chunks).
type readState struct {
	partial          *Message
	bytesRead        uint32
	hasLastHeader    bool
	lastHeader       MessageHeader
	lastFmt          byte
	lastHadExtendedTs bool
}

// ChunkReader reassembles RTMP chunks read from an underlying io.Reader into
// complete Messages. One ChunkReader exists per connection; its read states
// are keyed by chunk-stream id, never shared globally (spec.md §9 flags a
// single shared "previous header" slot as a bug when streams interleave).
type ChunkReader struct {
	r             io.Reader
	maxChunkSize  uint32
	maxMessageLen uint32 // resource bound, spec.md §5; longer messages are rejected
	states        map[uint32]*readState
}

// DefaultMaxMessageLength is the resource bound spec.md §5 recommends
// (16 MiB) to resist memory exhaustion from a malicious message_length.
const DefaultMaxMessageLength = 16 * 1024 * 1024

// NewChunkReader creates a reader with the protocol-default chunk size and
// the recommended resource bound.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{
		r:             r,
		maxChunkSize:  DefaultChunkSize,
		maxMessageLen: DefaultMaxMessageLength,
		states:        make(map[uint32]*readState),
	}
}

// SetMaxChunkSize updates the size bound applied to subsequently read
// chunks, following a SetChunkSize protocol control message.
func (c *ChunkReader) SetMaxChunkSize(size uint32) {
	c.maxChunkSize = size
}

// SetMaxMessageLength overrides the resource bound used to reject
// oversized messages before they are fully buffered.
func (c *ChunkReader) SetMaxMessageLength(n uint32) {
	c.maxMessageLen = n
}

// Abort drops the partial message being assembled on csid without emitting
// it, per the Abort (type 2) control message.
func (c *ChunkReader) Abort(csid uint32) {
	if st, ok := c.states[csid]; ok {
		st.partial = nil
		st.bytesRead = 0
	}
}

// ReadMessage blocks until one complete RTMP message has been reassembled
// from one or more chunks and returns it.
func (c *ChunkReader) ReadMessage() (*Message, error) {
	for {
		csid, chunkFmt, err := c.readBasicHeader()
		if err != nil {
			return nil, err
		}

		st, exists := c.states[csid]
		if !exists {
			if chunkFmt != FmtType0 {
				return nil, ErrFirstChunkMustBeType0
			}
			st = &readState{}
			c.states[csid] = st
		}

		header, hadExtendedTs, err := c.readMessageHeader(st, chunkFmt)
		if err != nil {
			return nil, err
		}

		if st.partial == nil {
			if header.MessageLength > c.maxMessageLen {
				return nil, &rtmperr.MessageTooLarge{Length: header.MessageLength, Limit: c.maxMessageLen}
			}
			st.partial = &Message{
				Header:  header,
				Payload: make([]byte, 0, minU32(header.MessageLength, c.maxChunkSize)),
			}
			st.bytesRead = 0
		}

		remaining := st.partial.Header.MessageLength - st.bytesRead
		toRead := minU32(c.maxChunkSize, remaining)
		chunk, err := bytesio.ReadExact(c.r, int(toRead))
		if err != nil {
			return nil, &rtmperr.IoError{Op: "chunk.payload", Err: err}
		}
		st.partial.Payload = append(st.partial.Payload, chunk...)
		st.bytesRead += toRead

		st.hasLastHeader = true
		st.lastHeader = header
		st.lastFmt = chunkFmt
		st.lastHadExtendedTs = hadExtendedTs

		if st.bytesRead == st.partial.Header.MessageLength {
			msg := st.partial
			if uint32(len(msg.Payload)) != msg.Header.MessageLength {
				return nil, &rtmperr.InconsistentMessageLength{Declared: msg.Header.MessageLength, Got: uint32(len(msg.Payload))}
			}
			st.partial = nil
			st.bytesRead = 0
			return msg, nil
		}
		// Not yet complete: loop for the next chunk (possibly on another csid).
	}
}

// readBasicHeader reads the 1-3 byte chunk basic header and returns the
// resolved chunk-stream id and fmt.
func (c *ChunkReader) readBasicHeader() (csid uint32, chunkFmt byte, err error) {
	b0, err := bytesio.ReadUint8(c.r)
	if err != nil {
		return 0, 0, &rtmperr.IoError{Op: "chunk.basicHeader", Err: err}
	}
	chunkFmt = (b0 >> 6) & 0x03
	low6 := uint32(b0 & 0x3F)

	switch low6 {
	case 0:
		b1, err := bytesio.ReadUint8(c.r)
		if err != nil {
			return 0, 0, &rtmperr.IoError{Op: "chunk.basicHeader.ext1", Err: err}
		}
		csid = 64 + uint32(b1)
	case 1:
		b12, err := bytesio.ReadUint16BE(c.r)
		if err != nil {
			return 0, 0, &rtmperr.IoError{Op: "chunk.basicHeader.ext2", Err: err}
		}
		// The two extension bytes are little-endian per spec.md §4.2.
		lo := b12 >> 8
		hi := b12 & 0xFF
		csid = 64 + uint32(hi)*256 + uint32(lo)
	default:
		csid = low6
	}
	return csid, chunkFmt, nil
}

// readMessageHeader reads the fmt-specific message header body and expands
// it against st's last known header, returning the fully resolved header
// for this chunk's message.
func (c *ChunkReader) readMessageHeader(st *readState, chunkFmt byte) (MessageHeader, bool, error) {
	header := st.lastHeader // fmt 1/2/3 inherit from the previous header on this csid

	switch chunkFmt {
	case FmtType0:
		ts, err := bytesio.ReadUint24BE(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header0", Err: err}
		}
		length, err := bytesio.ReadUint24BE(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header0", Err: err}
		}
		typeID, err := bytesio.ReadUint8(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header0", Err: err}
		}
		streamID, err := bytesio.ReadUint32LE(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header0", Err: err}
		}
		extended := ts == ExtendedTimestampMarker
		if extended {
			ts, err = bytesio.ReadUint32BE(c.r)
			if err != nil {
				return header, false, &rtmperr.IoError{Op: "chunk.header0.extts", Err: err}
			}
		}
		header = MessageHeader{
			Timestamp: ts,
			// fmt 0 has no preceding delta of its own; by RTMP convention a
			// later fmt 3 on this csid reapplies this absolute value as if
			// it were the delta from a zero baseline (spec.md §8 scenario:
			// fmt0(T0) fmt3 yields a second message timestamped 2*T0).
			TimestampDelta:  ts,
			MessageLength:   length,
			MessageTypeID:   typeID,
			MessageStreamID: streamID,
		}
		return header, extended, nil

	case FmtType1:
		delta, err := bytesio.ReadUint24BE(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header1", Err: err}
		}
		length, err := bytesio.ReadUint24BE(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header1", Err: err}
		}
		typeID, err := bytesio.ReadUint8(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header1", Err: err}
		}
		extended := delta == ExtendedTimestampMarker
		if extended {
			delta, err = bytesio.ReadUint32BE(c.r)
			if err != nil {
				return header, false, &rtmperr.IoError{Op: "chunk.header1.extts", Err: err}
			}
		}
		header.Timestamp += delta
		header.TimestampDelta = delta
		header.MessageLength = length
		header.MessageTypeID = typeID
		return header, extended, nil

	case FmtType2:
		delta, err := bytesio.ReadUint24BE(c.r)
		if err != nil {
			return header, false, &rtmperr.IoError{Op: "chunk.header2", Err: err}
		}
		extended := delta == ExtendedTimestampMarker
		if extended {
			delta, err = bytesio.ReadUint32BE(c.r)
			if err != nil {
				return header, false, &rtmperr.IoError{Op: "chunk.header2.extts", Err: err}
			}
		}
		header.Timestamp += delta
		header.TimestampDelta = delta
		return header, extended, nil

	case FmtType3:
		if !st.hasLastHeader {
			return header, false, fmt.Errorf("rtmp: fmt3 chunk with no prior header on this chunk stream")
		}
		// A fmt3 chunk carries an extended timestamp field iff the header
		// it continues/repeats did (the convention most senders and
		// receivers in the wild follow, since fmt3 itself has no field
		// wide enough to signal 0xFFFFFF on its own).
		extended := st.lastHadExtendedTs
		var ts uint32
		if extended {
			var err error
			ts, err = bytesio.ReadUint32BE(c.r)
			if err != nil {
				return header, false, &rtmperr.IoError{Op: "chunk.header3.extts", Err: err}
			}
		}
		// A fmt3 chunk either continues the in-flight message (no
		// timestamp progression) or starts a new message identical in
		// shape to the previous one, in which case the last delta is
		// reapplied. We tell these apart by whether a message is still
		// being assembled on this csid.
		if st.partial == nil {
			if extended {
				header.Timestamp = ts
			} else {
				header.Timestamp += header.TimestampDelta
			}
		}
		return header, extended, nil

	default:
		return header, false, fmt.Errorf("rtmp: invalid chunk fmt %d", chunkFmt)
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
