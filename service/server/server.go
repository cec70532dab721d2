package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solwire/solwire/service/metrics"
	"github.com/solwire/solwire/service/pipeline"
	"github.com/solwire/solwire/service/resolve"
	"github.com/solwire/solwire/service/token"
)

// Server is the HTTP server for the transaction construction service.
type Server struct {
	addr         string
	orchestrator *pipeline.Orchestrator
	tokens       *token.Resolver
	resolver     *resolve.Chain
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies. The metrics may
// be nil, which disables the /metrics endpoint and per-route instrumentation.
func New(addr string, orchestrator *pipeline.Orchestrator, tokens *token.Resolver, resolver *resolve.Chain, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		orchestrator: orchestrator,
		tokens:       tokens,
		resolver:     resolver,
		metrics:      m,
		logger:       logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Transaction construction routes
	mux.Handle("POST /api/v1/tx/transfer", s.instrument("/api/v1/tx/transfer", handleTransfer(s.orchestrator, s.logger)))
	mux.Handle("POST /api/v1/tx/swap", s.instrument("/api/v1/tx/swap", handleSwap(s.orchestrator, s.logger)))
	mux.Handle("POST /api/v1/tx/stake", s.instrument("/api/v1/tx/stake", handleStake(s.orchestrator, s.logger)))

	// Token search / suggestions
	mux.Handle("GET /api/v1/tokens/search", s.instrument("/api/v1/tokens/search", handleSearchTokens(s.tokens, s.logger)))

	// Resolution debug surface
	mux.Handle("GET /api/v1/resolve/{input}", s.instrument("/api/v1/resolve", handleResolve(s.resolver, s.logger)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// instrument wraps a handler with HTTP metrics when metrics are configured.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
