package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hookbox/internal/config"
	"hookbox/internal/metrics"
	"hookbox/internal/pipeline"
	"hookbox/internal/record"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 60 * time.Second

	// Rate limiting - requests per minute per IP
	GlobalRateLimit  = 600
	WebhookRateLimit = 300
)

// Server represents the HTTP server
type Server struct {
	Configs  *config.Set
	Pipeline *pipeline.Pipeline
	Store    record.Store
	Logger   *slog.Logger
	TestMode bool // disables rate limiting

	GlobalRateLimit  int
	WebhookRateLimit int

	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(configs *config.Set, p *pipeline.Pipeline, store record.Store, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Configs:          configs,
		Pipeline:         p,
		Store:            store,
		Logger:           logger,
		TestMode:         testMode,
		GlobalRateLimit:  GlobalRateLimit,
		WebhookRateLimit: WebhookRateLimit,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(s.logRequests)

	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(s.GlobalRateLimit, s.Logger))
	}

	r.Get("/health", s.HandleHealth)
	r.Get("/status/{name}", s.HandleStatus)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if !s.TestMode {
			r.Use(NewWebhookRateLimitMiddleware(s.WebhookRateLimit, s.Logger))
		}
		r.Post("/webhooks/{name}", s.HandleWebhook)
		r.Post("/in/{name}", s.HandleWebhook)
	})

	return r
}

// logRequests logs each request and counts it by route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()

			s.Logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
				"duration_ms", time.Since(start).Milliseconds())
		}()

		next.ServeHTTP(ww, r)
	})
}

// Start starts the HTTP server and blocks until it stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr, "webhooks", s.Configs.Count())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for in-flight settles so
// every admitted record is either enqueued or marked.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.Pipeline.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight webhooks: %w", ctx.Err())
	}
	return err
}
