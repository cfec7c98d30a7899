// Package server exposes the merkle engine as a small HTTP proof service:
// clients submit leaf sequences, the service builds and archives the tree,
// and anyone can later fetch inclusion or exclusion proofs by root. Static
// verification is also offered as an endpoint, though verifiers never need
// the service for it - the endpoint exists for callers without a local engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hashtree-labs/merkle-engine-go/pkg/treestore"
)

// Server handles HTTP requests for the proof service.
type Server struct {
	config     *Config
	store      treestore.ITreeStore
	logger     *zap.Logger
	limiter    *rate.Limiter
	httpServer *http.Server
}

// NewServer wires the proof service around a snapshot store.
func NewServer(config *Config, store treestore.ITreeStore, logger *zap.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s := &Server{
		config: config,
		store:  store,
		logger: logger,
	}
	if config.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	mux := http.NewServeMux()

	// Tree lifecycle
	mux.HandleFunc("/trees", s.handleTrees)
	mux.HandleFunc("/roots", s.handleListRoots)

	// Proof derivation
	mux.HandleFunc("/proof", s.rateLimited(s.handleProof))
	mux.HandleFunc("/exclusion", s.rateLimited(s.handleExclusion))

	// Static verification
	mux.HandleFunc("/verify", s.rateLimited(s.handleVerify))

	// Health
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// rateLimited rejects requests above the configured rate with 429.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// Start runs the HTTP server in a background goroutine.
func (s *Server) Start() error {
	if err := s.store.HealthCheck(); err != nil {
		return fmt.Errorf("tree store not healthy: %w", err)
	}

	go func() {
		s.logger.Sugar().Infow("Starting proof service",
			"port", s.config.Port, "store", s.config.StoreType, "default_hash", s.config.DefaultHash)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
