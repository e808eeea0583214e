package bus

import "sync"

// Stream is one named live media stream: at most one publisher, any number
// of subscribers, and the single cached metadata message late-joining
// subscribers are replayed (spec.md §4.5 — audio/video frames received
// before a subscriber joined are never replayed, only metadata is).
type Stream struct {
	name string

	mu          sync.RWMutex
	publisherID uint64 // 0 means no publisher attached
	subscribers map[uint64]*Subscriber
	nextSubID   uint64
	metadata    *MediaMessage
}

// NewStream creates an empty stream for name.
func NewStream(name string) *Stream {
	return &Stream{name: name, subscribers: make(map[uint64]*Subscriber), nextSubID: 1}
}

// Name returns the stream's name.
func (s *Stream) Name() string { return s.name }

// AttachPublisher marks publisherID as this stream's publisher. Returns
// false without changing state if a publisher is already attached
// (spec.md §4.4 `publish`: "if the MediaStream ... has no active publisher").
func (s *Stream) AttachPublisher(publisherID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisherID != 0 {
		return false
	}
	s.publisherID = publisherID
	return true
}

// DetachPublisher clears the publisher and the cached metadata if
// publisherID is the currently attached publisher; it is a no-op
// otherwise (a stale detach from a connection that was already denied).
func (s *Stream) DetachPublisher(publisherID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publisherID != publisherID {
		return
	}
	s.publisherID = 0
	s.metadata = nil
}

// HasPublisher reports whether a publisher is currently attached.
func (s *Stream) HasPublisher() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publisherID != 0
}

// AttachSubscriber registers a new subscriber and, if a metadata message is
// cached, immediately enqueues it so the subscriber's drain loop delivers
// it before any live frame.
func (s *Stream) AttachSubscriber(capacity uint32, strategy BackpressureStrategy) *Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	sub := NewSubscriber(id, capacity, strategy)
	if s.metadata != nil {
		sub.Buffer().Write(s.metadata)
		sub.wake()
	}
	s.subscribers[id] = sub
	return sub
}

// DetachSubscriber removes a subscriber from the fan-out set.
func (s *Stream) DetachSubscriber(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, id)
}

// CacheMetadata replaces the cached metadata message replayed to
// newly-joining subscribers, independent of whatever gets broadcast to
// current subscribers (spec.md §4.5: the two can legitimately differ, as
// the onMetaData data message's `@setDataFrame` wrapper is broadcast live
// but stripped from the cached copy).
func (s *Stream) CacheMetadata(msg *MediaMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = msg
}

// Publish fans msg out to every attached, non-paused subscriber.
func (s *Stream) Publish(msg *MediaMessage) {
	if msg == nil {
		return
	}

	s.mu.RLock()
	subs := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		if sub.Paused() {
			continue
		}
		sub.Buffer().Write(msg)
		sub.wake()
	}
}

// SubscriberCount reports the number of attached subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// DroppedMessages sums the backpressure-drop counters across every
// currently attached subscriber, for the admin stats snapshot.
func (s *Stream) DroppedMessages() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, sub := range s.subscribers {
		total += sub.Buffer().Dropped()
	}
	return total
}

// IsEmpty reports whether the stream has neither a publisher nor any
// subscriber, making it eligible for removal from the Registry.
func (s *Stream) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publisherID == 0 && len(s.subscribers) == 0
}
