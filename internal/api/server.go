package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/recipient-engine/internal/config"
	"github.com/ignite/recipient-engine/internal/upload"
)

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, uploads *upload.Service) *Server {
	handlers := NewHandlers(cfg, uploads)
	router := SetupRoutes(handlers, cfg.Server.CORSOrigins)

	return &Server{
		config:  cfg.Server,
		handler: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Timeouts are generous so a whole sheet can upload in one request.
		ReadTimeout:       5 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
