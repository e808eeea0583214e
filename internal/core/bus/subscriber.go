package bus

import "sync/atomic"

// Subscriber is one connection's delivery queue within a Stream. The
// publisher's broadcast loop only ever writes to the buffer; a dedicated
// drain goroutine owned by the subscriber's own connection reads it and
// performs the (potentially slow) network write.
type Subscriber struct {
	id     uint64
	buffer *RingBuffer
	notify chan struct{} // buffered size 1; signals the drain goroutine that new data is available
	paused int32         // atomic bool, toggled by the `pause` command
}

// NewSubscriber creates a subscriber with the given buffer capacity and
// overflow strategy.
func NewSubscriber(id uint64, capacity uint32, strategy BackpressureStrategy) *Subscriber {
	return &Subscriber{id: id, buffer: NewRingBuffer(capacity, strategy), notify: make(chan struct{}, 1)}
}

// ID returns the subscriber's registry-assigned identifier.
func (s *Subscriber) ID() uint64 { return s.id }

// Buffer returns the subscriber's delivery queue.
func (s *Subscriber) Buffer() *RingBuffer { return s.buffer }

// Notify returns the channel a drain goroutine should select on to wake up
// when the publisher has enqueued new messages, avoiding a polling loop.
func (s *Subscriber) Notify() <-chan struct{} { return s.notify }

// wake signals the drain goroutine without blocking if it is already
// pending a wakeup.
func (s *Subscriber) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// SetPaused toggles whether Stream.Publish enqueues new messages for this
// subscriber, per the `pause` command (spec.md §4.4). Messages already
// buffered are still delivered by the drain loop.
func (s *Subscriber) SetPaused(paused bool) {
	v := int32(0)
	if paused {
		v = 1
	}
	atomic.StoreInt32(&s.paused, v)
}

// Paused reports the subscriber's current pause state.
func (s *Subscriber) Paused() bool {
	return atomic.LoadInt32(&s.paused) != 0
}
