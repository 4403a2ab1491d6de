// Package server exposes the public link pages and the internal issuing API
// over HTTP.
//
// Public routes are authorized by the token in the path and nothing else,
// so they sit behind the per-client rate limiter. Internal routes require
// the configured bearer token and are not mounted when none is set.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AndersD76/portalpili-producao-sub005/internal/artifacts"
	"github.com/AndersD76/portalpili-producao-sub005/internal/config"
	"github.com/AndersD76/portalpili-producao-sub005/internal/issuer"
	"github.com/AndersD76/portalpili-producao-sub005/internal/logging"
	"github.com/AndersD76/portalpili-producao-sub005/internal/notifications"
	"github.com/AndersD76/portalpili-producao-sub005/internal/ratelimit"
	"github.com/AndersD76/portalpili-producao-sub005/internal/reconcile"
	"github.com/AndersD76/portalpili-producao-sub005/internal/store"
	"github.com/AndersD76/portalpili-producao-sub005/internal/telemetry"
)

const maxJSONBody = 1 << 20

// Services bundles the workflow components the handlers call.
type Services struct {
	Store      *store.Store
	Issuer     *issuer.Issuer
	Reconciler *reconcile.Reconciler
	Artifacts  *artifacts.Service
	// Dispatcher may be nil, in which case no notifications are queued.
	Dispatcher *notifications.Dispatcher
	Renderer   *notifications.Renderer
	// Limiter may be nil to disable throttling.
	Limiter ratelimit.Limiter
}

// Server routes HTTP requests to the workflow services.
type Server struct {
	cfg     *config.Config
	svc     Services
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time

	router chi.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides the time source used for effective status.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records rejected accesses.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New wires the router.
func New(cfg *config.Config, svc Services, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if svc.Store == nil || svc.Issuer == nil || svc.Reconciler == nil || svc.Artifacts == nil {
		return nil, errors.New("server: store, issuer, reconciler and artifacts are required")
	}
	if svc.Renderer == nil {
		svc.Renderer = notifications.NewRenderer(cfg.Notifications.Locale)
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "server"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.svc.Limiter, s.logger, s.rejectThrottled))
		r.Route("/status-check/{token}", func(r chi.Router) {
			r.Get("/", s.handleGetStatusCheck)
			r.Put("/", s.handlePutStatusCheck)
		})
		r.Route("/analysis/{token}", func(r chi.Router) {
			r.Get("/", s.handleGetAnalysis)
			r.Post("/decision", s.handleDecision)
			r.Post("/artifact", s.handleUploadArtifact)
			r.Get("/artifact", s.handleDownloadArtifact)
		})
	})

	if s.cfg.Server.InternalToken != "" {
		r.Route("/internal", func(r chi.Router) {
			r.Use(bearerAuth(s.cfg.Server.InternalToken))
			r.Post("/status-check", s.handleIssueStatusCheck)
			r.Post("/analysis", s.handleIssueAnalysis)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "invalid_request", "method not allowed")
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	s.logger.Info("http server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
