package bus

import "sync/atomic"

// BackpressureStrategy controls what a RingBuffer does when a write arrives
// with no free slot.
type BackpressureStrategy uint8

const (
	// BackpressureDropOldest evicts the oldest buffered message to make
	// room for the new one (favors freshness — the default for live
	// audio/video, where a late frame is worse than a missing one).
	BackpressureDropOldest BackpressureStrategy = iota
	// BackpressureDropNewest discards the incoming message, keeping
	// whatever is already buffered.
	BackpressureDropNewest
)

// RingBuffer is a bounded, single-producer/single-consumer circular buffer
// of *MediaMessage, used as each subscriber's delivery queue so one slow
// subscriber never blocks the publisher's broadcast loop.
type RingBuffer struct {
	buffer   []*MediaMessage
	mask     uint32
	writePos uint32
	readPos  uint32
	strategy BackpressureStrategy
	dropped  uint64
}

// NewRingBuffer creates a buffer with at least capacity slots, rounded up
// to the next power of two (one slot is reserved to distinguish full from
// empty without a separate counter).
func NewRingBuffer(capacity uint32, strategy BackpressureStrategy) *RingBuffer {
	size := uint32(1)
	for size <= capacity {
		size <<= 1
	}
	return &RingBuffer{
		buffer:   make([]*MediaMessage, size),
		mask:     size - 1,
		strategy: strategy,
	}
}

// Write enqueues msg, applying the configured backpressure strategy if the
// buffer is full. Returns false if msg was dropped.
func (rb *RingBuffer) Write(msg *MediaMessage) bool {
	if msg == nil {
		return false
	}

	writePos := atomic.LoadUint32(&rb.writePos)
	readPos := atomic.LoadUint32(&rb.readPos)
	nextWritePos := (writePos + 1) & rb.mask

	if nextWritePos == (readPos & rb.mask) {
		switch rb.strategy {
		case BackpressureDropOldest:
			atomic.AddUint32(&rb.readPos, 1)
			atomic.AddUint64(&rb.dropped, 1)
		default:
			atomic.AddUint64(&rb.dropped, 1)
			return false
		}
	}

	rb.buffer[writePos&rb.mask] = msg
	atomic.StoreUint32(&rb.writePos, nextWritePos)
	return true
}

// Read dequeues the oldest buffered message, if any.
func (rb *RingBuffer) Read() (*MediaMessage, bool) {
	readPos := atomic.LoadUint32(&rb.readPos)
	writePos := atomic.LoadUint32(&rb.writePos)
	if readPos&rb.mask == writePos {
		return nil, false
	}
	msg := rb.buffer[readPos&rb.mask]
	atomic.AddUint32(&rb.readPos, 1)
	return msg, true
}

// Dropped returns the number of messages evicted or rejected so far.
func (rb *RingBuffer) Dropped() uint64 {
	return atomic.LoadUint64(&rb.dropped)
}

// Len returns the number of messages currently buffered, for diagnostics.
func (rb *RingBuffer) Len() uint32 {
	writePos := atomic.LoadUint32(&rb.writePos)
	readPos := atomic.LoadUint32(&rb.readPos)
	return (writePos - readPos) & rb.mask
}
