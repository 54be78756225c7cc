// Package server provides the HTTP REST API for the citation linker
// service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/disambig"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/duplicates"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/observability"
)

// DuplicateDetector runs the duplicate detection pipeline for one item.
// Implemented by duplicates.Detector.
type DuplicateDetector interface {
	Detect(ctx context.Context, item domain.Item) duplicates.Result
}

// Disambiguator ranks competing DOI candidates against a page title.
// Implemented by disambig.Disambiguator.
type Disambiguator interface {
	Rank(ctx context.Context, candidateDOIs []string, pageTitle string) ([]disambig.Result, error)
}

// ReadinessChecker reports whether a dependency can serve requests.
// Implemented by crossref.Client.
type ReadinessChecker interface {
	Ready() bool
}

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	detector       DuplicateDetector
	disambiguator  Disambiguator
	readiness      []ReadinessChecker
	validate       *validator.Validate
	logger         zerolog.Logger
	metrics        *observability.Metrics
	metricsPath    string
	requestTimeout time.Duration
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// RequestTimeout bounds one detection or disambiguation pipeline as
	// a whole; individual strategies are not cancelled separately.
	RequestTimeout time.Duration
	// MetricsPath is where Prometheus metrics are exposed; empty
	// disables the endpoint.
	MetricsPath string
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	detector DuplicateDetector,
	disambiguator Disambiguator,
	readiness []ReadinessChecker,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		detector:       detector,
		disambiguator:  disambiguator,
		readiness:      readiness,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		logger:         logger.With().Str("component", "http-server").Logger(),
		metrics:        metrics,
		metricsPath:    cfg.MetricsPath,
		requestTimeout: cfg.RequestTimeout,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.correlationIDMiddleware)
	r.Use(s.metricsMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)
		r.Post("/duplicates/check", s.checkDuplicates)
		r.Post("/doi/disambiguate", s.disambiguateDOIs)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether all external collaborators are
// ready to serve.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	for _, rc := range s.readiness {
		if !rc.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
