// Package server exposes the acknowledgement HTTP surface: a static text
// response confirming the job may be running, plus health, status and
// Prometheus metrics. Serving never blocks on a pipeline run.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/config"
	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
	"github.com/synthstream/exportd/internal/pipeline"
)

// ackBody is the static acknowledgement; it is independent of run outcome.
const ackBody = "Export job is running in the background.\n"

// Server wraps the gin engine and its dependencies.
type Server struct {
	router *gin.Engine
	runner *pipeline.Runner
	logger *logging.Logger
	cfg    *config.Config
}

// New creates the acknowledgement server.
func New(
	cfg *config.Config,
	runner *pipeline.Runner,
	metrics *monitoring.Metrics,
	gatherer prometheus.Gatherer,
	logger *logging.Logger,
) *Server {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Content-Type", "Accept", "Origin"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{
		router: router,
		runner: runner,
		logger: logger,
		cfg:    cfg,
	}

	router.GET("/", s.ack)
	router.GET("/health", s.health)
	router.GET("/status", s.status)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s
}

// ack returns the static acknowledgement line.
func (s *Server) ack(c *gin.Context) {
	c.String(http.StatusOK, ackBody)
}

// health returns service liveness.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exportd",
		"version": "0.1.0",
	})
}

// status reports the current runner snapshot.
func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Snapshot())
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}
