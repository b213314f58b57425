package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lamim/reportforge/internal/config"
	"github.com/lamim/reportforge/internal/metrics"
	"github.com/lamim/reportforge/pkg/models"
)

const (
	readHeaderTimeout = 10 * time.Second
	limiterSweepEvery = time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

// Generator produces a report for a topic/question pair. *report.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, topic, question string) (*models.Report, error)
}

// Server exposes report generation over HTTP
type Server struct {
	cfg       config.ServerConfig
	generator Generator
	metrics   *metrics.Collector
	limiter   *RateLimiterPool
	logger    *slog.Logger
}

// New creates a server. A zero RateLimitPerMinute disables rate limiting.
func New(cfg config.ServerConfig, generator Generator, collector *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		generator: generator,
		metrics:   collector,
		logger:    logger.With("component", "server"),
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = NewRateLimiterPool(cfg.RateLimitPerMinute)
	}
	return s
}

// Handler returns the full middleware-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /generate-report", s.rateLimit(http.HandlerFunc(s.handleGenerateReport)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.requestID(s.accessLog(s.cors(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if s.limiter != nil {
		go s.sweepLimiters(ctx)
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) sweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.limiter.Sweep(now.Add(-limiterIdleAfter)); n > 0 {
				s.logger.Debug("Evicted idle rate limiters", "count", n)
			}
		}
	}
}
