package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics exposes request instrumentation and the scrape endpoint
type Metrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services. A nil authService disables bearer auth and the admin API.
	authService   driving.AuthService
	searchService driving.SearchService
	reloader      driving.ConfigReloader

	// Infrastructure
	backend Pinger  // search backend health check
	cache   Pinger  // shared cache health check (optional)
	metrics Metrics // optional
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AllowedOrigins enables CORS for the listed origins ("*" for any)
	AllowedOrigins []string

	// MaxBodyBytes caps search request bodies
	MaxBodyBytes int64

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		MaxBodyBytes: 1 << 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService, // can be nil
	searchService driving.SearchService,
	reloader driving.ConfigReloader,
	backend Pinger,
	cache Pinger, // can be nil
	metrics Metrics, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		logger:        logger,
		authService:   authService,
		searchService: searchService,
		reloader:      reloader,
		backend:       backend,
		cache:         cache,
		metrics:       metrics,
	}

	s.setupRoutes(cfg.MaxBodyBytes)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.buildHandler(cfg.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(maxBodyBytes int64) {
	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}

	// Search endpoints (authenticated when auth is configured)
	authenticate := func(h http.Handler) http.Handler { return h }
	var authMiddleware *AuthMiddleware
	if s.authService != nil {
		authMiddleware = NewAuthMiddleware(s.authService)
		authenticate = authMiddleware.Authenticate
	}

	s.router.Handle("POST /api/v1/indexes/{index}/search",
		authenticate(http.MaxBytesHandler(http.HandlerFunc(s.handleSearch), maxBodyBytes)))
	s.router.Handle("GET /api/v1/indexes/{index}/autocomplete",
		authenticate(http.HandlerFunc(s.handleAutocomplete)))
	s.router.Handle("GET /api/v1/indexes",
		authenticate(http.HandlerFunc(s.handleListIndexes)))

	// Admin endpoints (admin-only)
	if authMiddleware != nil && s.reloader != nil {
		s.router.Handle("POST /api/v1/admin/reload",
			authMiddleware.Authenticate(
				authMiddleware.RequireAdmin(http.HandlerFunc(s.handleReload))))
	}
}

// buildHandler wraps the router with the middleware chain
func (s *Server) buildHandler(allowedOrigins []string) http.Handler {
	var h http.Handler = s.router
	if len(allowedOrigins) > 0 {
		h = NewCORSMiddleware(allowedOrigins).Handler(h)
	}
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
