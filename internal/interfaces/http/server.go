// Package http exposes the analysis engine over a REST API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trustside/listing-sentinel/internal/config"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/logging"
	"github.com/trustside/listing-sentinel/internal/infrastructure/monitoring/prometheus"
)

// HealthChecker reports one backing component's availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server hosts the REST API.
type Server struct {
	srv *http.Server
	cfg config.ServerConfig
	log logging.Logger
}

// ServerDeps carries everything the handlers need.  ResultStore, Metrics,
// and Components are optional.
type ServerDeps struct {
	Engine      Importer
	ResultStore ResultStore
	Metrics     *prometheus.Metrics
	Components  map[string]HealthChecker
	Logger      logging.Logger
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(cfg config.ServerConfig, deps ServerDeps) *Server {
	log := deps.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("http")

	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(log))
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}

	h := newHandler(deps.Engine, deps.ResultStore, deps.Components, log)

	router.GET("/healthz", h.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", h.analyze)
		v1.POST("/references", h.importReference)
		v1.GET("/references/recent", h.recentReferences)
		v1.GET("/history", h.history)
	}

	return &Server{
		cfg: cfg,
		log: log,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start blocks serving requests until shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains connections within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
