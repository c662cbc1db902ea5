// Package server exposes the query executor over HTTP.
//
// Routes:
//
//	POST /v1/query   execute a query document against request data
//	GET  /v1/sources list the preloaded datasets
//	GET  /healthz    liveness probe
//	GET  /metrics    Prometheus metrics
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vegasq/prequel/query"
)

// Server serves queries over a fixed set of preloaded datasets.
type Server struct {
	router   *chi.Mux
	addr     string
	logger   *zap.Logger
	executor *query.Executor
	datasets query.DataEnvironment
	registry *prometheus.Registry
	metrics  *metrics

	shutdownTimeout time.Duration
	requestTimeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDatasets preloads datasets that every request can query. Request data
// with the same name takes precedence.
func WithDatasets(env query.DataEnvironment) Option {
	return func(s *Server) {
		s.datasets = env
	}
}

// WithRequestTimeout bounds the time spent on one request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// New creates a server listening on addr once Run is called.
func New(addr string, exec *query.Executor, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		logger:          zap.NewNop(),
		executor:        exec,
		datasets:        query.DataEnvironment{},
		registry:        prometheus.NewRegistry(),
		shutdownTimeout: 5 * time.Second,
		requestTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.executor == nil {
		s.executor = query.NewExecutor(query.WithLogger(s.logger))
	}
	s.metrics = newMetrics(s.registry)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	s.router = r
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/sources", s.handleSources)
	})
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
