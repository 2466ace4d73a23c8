// Package server is the HTTP daemon that serves simulated analysis results.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/audion-app/audion/internal/config"
	"github.com/audion-app/audion/internal/coordinator"
)

// Server answers the analysis API over HTTP
type Server struct {
	cfg     *config.Config
	backend coordinator.Backend
	handler http.Handler
}

// New creates a server answering requests with backend
func New(cfg *config.Config, backend coordinator.Backend) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health/{$}", s.handleHealth)
	mux.HandleFunc("GET /health/info", s.handleInfo)
	mux.HandleFunc("GET /audio/formats", s.handleFormats)
	mux.HandleFunc("POST /audio/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /audio/match", s.handleMatch)
	mux.HandleFunc("POST /audio/features", s.handleFeatures)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	s.handler = withRequestLogging(withRecover(withCORS(cfg.Server.AllowedOrigins, mux)))
	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on the configured address until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	log.Printf("[HTTP] %s %s listening on %s", s.cfg.AppName, s.cfg.AppVersion, listener.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[HTTP] Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	log.Printf("[HTTP] Server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Failed to write response: %v", err)
	}
}

// writeError writes the {"detail": ...} error body
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
