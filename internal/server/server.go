// Package server exposes the mock design backend over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/manash/designgen/internal/fixture"
	"github.com/manash/designgen/internal/preview"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 10 * time.Second

	baseWriteTimeout = 30 * time.Second
	writeHeadroom    = 10 * time.Second
)

type Options struct {
	Latency   fixture.Latency
	RateLimit float64 // requests per second per client IP, 0 disables
	RateBurst int
	Logger    *slog.Logger
}

type Server struct {
	selector *fixture.Selector
	previews *preview.Tracker
	latency  fixture.Latency
	limiter  *RateLimiter
	logger   *slog.Logger
}

func New(selector *fixture.Selector, previews *preview.Tracker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		selector: selector,
		previews: previews,
		latency:  opts.Latency,
		logger:   logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer(s.logger))
	r.Use(Logger(s.logger))
	r.Use(CORS)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.Get("/health", s.handleHealth)
	r.Post("/generate", s.handleGenerate)
	r.Post("/evaluate", s.handleEvaluate)
	r.Post("/iterate", s.handleIterate)
	r.Get("/stub/generate", s.handleStubAssets)
	r.Get("/status/{id}", s.handleStatus)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// writeTimeout leaves room for the slowest latency draw plus the write itself.
func (s *Server) writeTimeout() time.Duration {
	slowest := max(s.latency.Min, s.latency.Max)
	return max(baseWriteTimeout, slowest+writeHeadroom)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: s.writeTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("server stopped")
	return nil
}
