// Package server exposes the training API over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/ethsentinel/internal/server/handler"
	"github.com/alanyoungcy/ethsentinel/internal/server/middleware"
	"github.com/alanyoungcy/ethsentinel/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per minute per client, 0 disables
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Artifacts is optional and only set when object storage is configured.
type Handlers struct {
	Health    *handler.HealthHandler
	Train     *handler.TrainHandler
	Metrics   *handler.MetricsHandler
	Activity  *handler.ActivityHandler
	Models    *handler.ModelsHandler
	Artifacts *handler.ArtifactsHandler
}

// Server is the headless HTTP + WebSocket API for the fraud detection
// pipeline.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Training trigger.
	mux.HandleFunc("POST /api/train", handlers.Train.Train)

	// Metrics endpoints.
	mux.HandleFunc("GET /api/metrics", handlers.Metrics.Latest)
	mux.HandleFunc("GET /api/metrics/history", handlers.Metrics.History)

	// Prediction activity feed.
	mux.HandleFunc("GET /api/activity", handlers.Activity.Recent)

	// Per-family summaries.
	mux.HandleFunc("GET /api/models/metrics", handlers.Models.Metrics)

	// Archived artifacts, present only with object storage.
	if handlers.Artifacts != nil {
		mux.HandleFunc("GET /api/artifacts", handlers.Artifacts.List)
		mux.HandleFunc("GET /api/artifacts/{path...}", handlers.Artifacts.Download)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.RateLimit(cfg.RateLimit, time.Minute)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h,
		// Training uploads and searched runs can take a while, so the write
		// timeout is generous.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
