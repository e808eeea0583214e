package bus

import "sync"

// Registry is the process-wide, mutable stream-name -> Stream mapping that
// every connection worker reads and writes (spec.md §5: "a single Registry
// ... is mutated by every worker; all access is serialized by a single
// lock held for the minimum span around the mutation").
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*Stream)}
}

// GetOrCreate returns the stream for name, creating it if absent.
func (r *Registry) GetOrCreate(name string) *Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[name]; ok {
		return s
	}
	s := NewStream(name)
	r.streams[name] = s
	return s
}

// Get returns the stream for name, or nil if it does not exist.
func (r *Registry) Get(name string) *Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.streams[name]
}

// RemoveIfEmpty deletes name's stream if it has no publisher and no
// subscribers, as a connection teardown should leave no trace of a stream
// nobody is using. Returns whether it was removed.
func (r *Registry) RemoveIfEmpty(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[name]
	if !ok || !s.IsEmpty() {
		return false
	}
	delete(r.streams, name)
	return true
}

// Count returns the number of streams currently tracked (including ones
// with no publisher, if they still have lingering subscribers).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}

// Names returns a snapshot of all tracked stream names, for the admin
// stats endpoint.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.streams))
	for name := range r.streams {
		names = append(names, name)
	}
	return names
}
