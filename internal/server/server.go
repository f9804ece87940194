// Package server exposes the prompt resolver over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/azalio/prompt-image-server/internal/otel/metrics"
	"github.com/azalio/prompt-image-server/internal/service"
	"github.com/azalio/prompt-image-server/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 30 * time.Second

// Server serves GET /, POST /generate and GET /metrics.
type Server struct {
	addr     string
	resolver service.Resolver
	logger   *logger.Logger
	metrics  *metrics.MetricProvider
	tracer   trace.Tracer
	handler  http.Handler
}

// New builds the router. m and tracer may be nil.
func New(addr string, resolver service.Resolver, log *logger.Logger, m *metrics.MetricProvider, tracer trace.Tracer) *Server {
	if tracer == nil {
		tracer = otel.Tracer("prompt-image-server/server")
	}
	s := &Server{
		addr:     addr,
		resolver: resolver,
		logger:   log,
		metrics:  m,
		tracer:   tracer,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, middleware.RealIP, tracing(s.tracer), s.accessLog, recoverer(s.logger))

	r.Get("/", s.health)
	r.Post("/generate", s.generate)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{
			"addr":           s.addr,
			"provider_ready": s.resolver.Ready(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Shutting down HTTP server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
