// Package api exposes the retrieval service over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
	"github.com/vietddude/mediafetch/internal/retrieval/batch"
	"github.com/vietddude/mediafetch/internal/retrieval/orchestrator"
	"github.com/vietddude/mediafetch/internal/retrieval/stats"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Service is the retrieval surface the server needs.
type Service interface {
	Orchestrate(ctx context.Context, req domain.Request, opts ...orchestrator.Option) domain.OrchestrationResult
	FetchBatch(ctx context.Context, raws []string, concurrency int, onProgress batch.ProgressFunc) []domain.BatchItem
	History(ctx context.Context, limit int) ([]domain.OrchestrationResult, error)
	Adapters() []provider.Adapter
}

// Config holds server settings.
type Config struct {
	Port           int
	MaxBatch       int
	MaxConcurrency int // caps the batch concurrency a client may request; 0 = no cap
	ReadTimeout    time.Duration
}

// Server provides the HTTP API.
type Server struct {
	svc    Service
	stats  func() stats.Snapshot
	cfg    Config
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a new API server. snapshot supplies the stats endpoint.
func NewServer(svc Service, snapshot func() stats.Snapshot, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 50
	}
	if snapshot == nil {
		snapshot = stats.GetStats
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		svc:    svc,
		stats:  snapshot,
		cfg:    cfg,
		logger: logger.With("component", "api"),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
		},
	}

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/download", s.handleDownload)
	mux.HandleFunc("POST /api/batch", s.handleBatch)
	mux.HandleFunc("GET /api/platforms", s.handlePlatforms)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/providers", s.handleProviders)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server. It returns nil after Stop.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Timestamp: time.Now().UTC()})
}
