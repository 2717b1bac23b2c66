// Package server exposes the anonymization pipeline over HTTP: single and
// batch anonymization, profile listing, health and Prometheus endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/anonymizer"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/config"
)

const (
	// DefaultListenAddr is the default HTTP listen address
	DefaultListenAddr = ":8000"

	// DefaultMaxBodyBytes is the default request body size limit
	DefaultMaxBodyBytes = 1 << 20
)

// Config holds the HTTP server configuration
type Config struct {
	ListenAddr   string
	MaxBodyBytes int64
}

// Server serves the anonymization HTTP API
type Server struct {
	config     Config
	anonymizer *anonymizer.Anonymizer
	provider   *config.Provider
	settings   anonymizer.Settings
	metrics    *Metrics
	accessLog  *AccessLog
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a new API server. builder feeds the registry cache gauge
// and may be nil in tests.
func New(cfg Config, anon *anonymizer.Anonymizer, builder *anonymizer.Builder, provider *config.Provider, settings anonymizer.Settings, logger *slog.Logger) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	var cached func() int
	if builder != nil {
		cached = builder.CachedRegistries
	}

	return &Server{
		config:     cfg,
		anonymizer: anon,
		provider:   provider,
		settings:   settings,
		metrics:    NewMetrics(cached),
		accessLog:  NewAccessLog(logger),
		logger:     logger,
	}
}

// Metrics returns the server's metrics instance so that other components
// can record into the same registry.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Routes builds the full HTTP handler chain
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/anonymize", s.handleAnonymize)
	mux.HandleFunc("POST /api/anonymize/batch", s.handleBatch)
	mux.HandleFunc("GET /api/profiles", s.handleProfiles)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var handler http.Handler = mux
	handler = s.metrics.Middleware(handler)
	handler = s.accessLog.Wrap(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// Start runs the HTTP server until ctx is canceled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.config.ListenAddr,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", s.config.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", "error", err)
		return err
	}
	return nil
}
