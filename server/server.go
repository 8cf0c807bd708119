package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Pawarasasmina/photobooth/session"
)

// Server wraps the HTTP server carrying the API and websocket
// endpoints.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server on addr with the given handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     handler,
			ReadTimeout: readTimeout,
			// Write timeout would cut long-lived websocket connections;
			// it only applies before the upgrade hijacks the conn, but
			// we keep it modest regardless.
			WriteTimeout: writeTimeout,
		},
	}
}

// Start begins serving. Fatal if the listener fails.
func (s *Server) Start() {
	log.Printf("Starting server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

// Shutdown tears down gracefully: sessions first (their peers get the
// session-ended signal while the transport is still up), then the
// listener.
func (s *Server) Shutdown(ctx context.Context, registry *session.Registry) {
	log.Println("Shutting down server")

	registry.DestroyAll(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
