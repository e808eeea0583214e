// This file implements the process's server lifecycle and routing: the RTMP
// listener and the admin HTTP/websocket listener, wired to one shared
// registry.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rtmplex/internal/config"
	"rtmplex/internal/core/bus"
	"rtmplex/internal/svc/admin"
	"rtmplex/internal/svc/rtmp"
)

// Server wraps the RTMP listener and the admin HTTP server, and the
// registry they share.
type Server struct {
	httpServer *http.Server
	adminSvc   *admin.Service
	rtmpServer *rtmp.Server
	registry   *bus.Registry
}

// New creates a server instance with the given configuration. The server is
// not started until Start is called.
func New(cfg *config.Config) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)

	registry := bus.NewRegistry()

	adminSvc := admin.NewService(registry)
	adminSvc.RegisterRoutes(mux)

	rtmpServer := rtmp.NewServer(registry, cfg.Stream.MaxMessageBytes, cfg.Stream.SubscriberBufferCapacity)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler: mux,
	}

	return &Server{
		httpServer: httpServer,
		adminSvc:   adminSvc,
		rtmpServer: rtmpServer,
		registry:   registry,
	}
}

// handleHealthz responds 200 OK to indicate the process is running.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Start begins serving RTMP connections on rtmpAddr and admin HTTP requests.
// This method blocks until the admin HTTP server is stopped or encounters
// an error.
func (s *Server) Start(rtmpAddr string) error {
	if err := s.rtmpServer.Listen(rtmpAddr); err != nil {
		return fmt.Errorf("rtmp server listen: %w", err)
	}
	go func() {
		s.rtmpServer.Serve() // returns nil on Close(); logged internally otherwise
	}()

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the admin HTTP server with a timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ShutdownWithTimeout stops both listeners with a fixed 5-second timeout for
// the admin HTTP server's in-flight requests.
func (s *Server) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.rtmpServer != nil {
		s.rtmpServer.Close()
	}

	return s.Shutdown(ctx)
}
