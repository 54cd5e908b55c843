package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/marcus/todosync/internal/serverstore"
)

// Server wires the merge engine and todo store behind the sync HTTP
// API (S1).
type Server struct {
	store  *serverstore.Store
	http   *http.Server
	config Config
}

// NewServer builds a Server listening on cfg.ListenAddr, backed by store.
func NewServer(cfg Config, store *serverstore.Store) *Server {
	s := &Server{store: store, config: cfg}
	s.http = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.routes(),
	}
	return s
}

// routes builds the HTTP routing table for the five spec-mandated
// endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /state", s.requireAuth(s.handleState))
	mux.HandleFunc("GET /delta", s.requireAuth(s.handleDelta))
	mux.HandleFunc("POST /push", s.requireAuth(s.handlePush))
	mux.HandleFunc("DELETE /reset", s.requireAuth(s.handleReset))

	return chain(mux, requestIDMiddleware, loggerMiddleware, recoveryMiddleware, loggingMiddleware)
}

// Handler returns the server's routed http.Handler, for embedding in an
// httptest.Server or a custom listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
