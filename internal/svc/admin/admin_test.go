package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rtmplex/internal/core/bus"

	"github.com/gorilla/websocket"
)

func TestStatsEmptyRegistry(t *testing.T) {
	s := NewService(bus.NewRegistry())

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	s.handleStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.StreamCount != 0 {
		t.Fatalf("stream count = %d, want 0", snap.StreamCount)
	}
}

func TestStatsReflectsPublisherAndSubscribers(t *testing.T) {
	registry := bus.NewRegistry()
	stream := registry.GetOrCreate("live")
	stream.AttachPublisher(1)
	stream.AttachSubscriber(16, bus.BackpressureDropOldest)
	stream.AttachSubscriber(16, bus.BackpressureDropOldest)

	s := NewService(registry)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	s.handleStats(w, req)

	var snap Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(snap.Streams))
	}
	got := snap.Streams[0]
	if !got.HasPublisher || got.SubscriberCount != 2 || got.Name != "live" {
		t.Fatalf("stream stats = %#v, want publisher=true subscribers=2 name=live", got)
	}
}

func TestStatsMethodNotAllowed(t *testing.T) {
	s := NewService(bus.NewRegistry())
	req := httptest.NewRequest(http.MethodPost, "/stats", nil)
	w := httptest.NewRecorder()
	s.handleStats(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestStatsWebsocketPushesSnapshot(t *testing.T) {
	registry := bus.NewRegistry()
	registry.GetOrCreate("live").AttachPublisher(1)

	s := NewService(registry)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stats/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.StreamCount != 1 || snap.Streams[0].Name != "live" {
		t.Fatalf("snapshot = %#v, want one stream named live", snap)
	}
}
