package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	authService      driving.AuthService
	retrievalService driving.RetrievalService
	indexingService  driving.IndexingService

	// Infrastructure
	sources driven.SourceStore
	writer  driven.SourceWriter
	queue   driven.EventQueue
	db      Pinger // snapshot store health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	retrievalService driving.RetrievalService,
	indexingService driving.IndexingService,
	sources driven.SourceStore,
	writer driven.SourceWriter,
	queue driven.EventQueue,
	db Pinger, // can be nil
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		logger:           logger,
		authService:      authService,
		retrievalService: retrievalService,
		indexingService:  indexingService,
		sources:          sources,
		writer:           writer,
		queue:            queue,
		db:               db,
	}

	s.setupRoutes()

	recovery := NewRecoveryMiddleware(logger)
	logging := NewLoggingMiddleware(logger)
	cors := NewCORSMiddleware([]string{"*"})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(cors.Handler(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Retrieval endpoints
	s.router.Handle("POST /api/v1/search",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleSearch)))
	s.router.Handle("POST /api/v1/context",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRetrieveContext)))

	// Source lifecycle endpoints
	s.router.Handle("PUT /api/v1/sources/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUpsertSource)))
	s.router.Handle("DELETE /api/v1/sources/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteSource)))
	s.router.Handle("GET /api/v1/sources/{id}/index",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleIndexStatus)))

	// Admin endpoints (admin-only)
	s.router.Handle("POST /api/v1/admin/reindex",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleReindex))))
	s.router.Handle("POST /api/v1/admin/retry-failed",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleRetryFailed))))
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
