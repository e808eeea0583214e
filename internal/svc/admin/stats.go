// Package admin exposes a read-only observability surface over the stream
// registry: a JSON snapshot and the same snapshot pushed over a websocket
// on an interval. It never touches the RTMP wire path.
package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"rtmplex/internal/core/bus"
)

// StreamStats summarizes one tracked stream for the stats snapshot.
type StreamStats struct {
	Name            string `json:"name"`
	HasPublisher    bool   `json:"has_publisher"`
	SubscriberCount int    `json:"subscriber_count"`
	DroppedMessages uint64 `json:"dropped_messages"`
}

// Snapshot is the full JSON body served by GET /stats and pushed over
// GET /stats/ws.
type Snapshot struct {
	UptimeSeconds int64         `json:"uptime_seconds"`
	StreamCount   int           `json:"stream_count"`
	Streams       []StreamStats `json:"streams"`
}

// Service serves the stats snapshot over HTTP and websocket.
type Service struct {
	registry  *bus.Registry
	startedAt time.Time
}

// NewService creates a stats service backed by registry.
func NewService(registry *bus.Registry) *Service {
	return &Service{registry: registry, startedAt: startTime()}
}

// startTime returns the wall-clock time uptime is measured from.
func startTime() time.Time { return time.Now() }

// RegisterRoutes registers the service's endpoints on mux.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stats/ws", s.handleStatsWS)
}

// snapshot builds the current registry snapshot.
func (s *Service) snapshot() Snapshot {
	names := s.registry.Names()
	streams := make([]StreamStats, 0, len(names))
	for _, name := range names {
		stream := s.registry.Get(name)
		if stream == nil {
			continue
		}
		streams = append(streams, StreamStats{
			Name:            name,
			HasPublisher:    stream.HasPublisher(),
			SubscriberCount: stream.SubscriberCount(),
			DroppedMessages: stream.DroppedMessages(),
		})
	}
	return Snapshot{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		StreamCount:   len(streams),
		Streams:       streams,
	}
}

// handleStats handles GET /stats: one JSON snapshot per request.
func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshot())
}
