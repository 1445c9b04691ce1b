package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/postinsights/health"
	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/observe"
	"github.com/jonwraymond/postinsights/pipeline"
	"github.com/jonwraymond/postinsights/secret"
)

// Config configures the HTTP surface.
type Config struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string
	// TopN bounds the posts analyzed per category when the caller sends
	// raw posts instead of a ranked selection.
	// Default: insight.DefaultTopN
	TopN int
	// PrometheusMetrics serves the default Prometheus registry at /metrics.
	// Enable it together with the prometheus metrics exporter.
	PrometheusMetrics bool
	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds
	ShutdownTimeout time.Duration
}

// Server serves the insights API.
type Server struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	chain    *secret.Chain
	health   *health.Aggregator
	logger   observe.Logger
}

// New creates a Server. A nil health aggregator serves liveness only, a nil
// chain never resolves, and a nil logger discards.
func New(p *pipeline.Pipeline, chain *secret.Chain, agg *health.Aggregator, logger observe.Logger, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.TopN <= 0 {
		cfg.TopN = insight.DefaultTopN
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if agg == nil {
		agg = health.NewAggregator()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	if chain == nil {
		chain = secret.NewChain("")
	}
	return &Server{cfg: cfg, pipeline: p, chain: chain, health: agg, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))

	health.RegisterHandlers(r, s.health)
	if s.cfg.PrometheusMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/insights", s.postInsights)

		r.Get("/cache", s.getCache)
		r.Delete("/cache", s.deleteCache)

		r.Get("/settings/api-key", s.getAPIKey)
		r.Put("/settings/api-key", s.putAPIKey)
		r.Delete("/settings/api-key", s.deleteAPIKey)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info(ctx, "http server listening", observe.Field{Key: "addr", Value: s.cfg.Addr})

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
