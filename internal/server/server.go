// Package server provides the HTTP status API for ralph.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/pipeline"
	"github.com/designops/ralph/internal/telemetry"
)

// RunSource supplies the current run's state, when a run is in flight.
type RunSource interface {
	Snapshot() pipeline.Snapshot
}

// Server exposes pipeline structure, run state, gate telemetry, and metrics.
type Server struct {
	echo     *echo.Echo
	graph    *pipeline.Graph
	recorder *telemetry.Recorder
	runs     RunSource
	logger   *zap.Logger
	config   *Config
}

// Config holds the server's listen address.
type Config struct {
	Host string
	Port int
}

// NewServer creates the status server. runs may be nil when no run is being
// tracked; recorder may be nil to disable the telemetry endpoints.
func NewServer(graph *pipeline.Graph, recorder *telemetry.Recorder, runs RunSource, logger *zap.Logger, cfg *Config) (*Server, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9290}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		graph:    graph,
		recorder: recorder,
		runs:     runs,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/pipeline", s.handlePipeline)
	v1.GET("/run", s.handleRun)
	v1.GET("/gates", s.handleGates)

	if s.recorder != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			s.recorder.Registry(), promhttp.HandlerOpts{},
		)))
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// PipelineResponse is the response body for GET /api/v1/pipeline.
type PipelineResponse struct {
	Gates []gate.Spec `json:"gates"`
	Plan  [][]string  `json:"plan"`
}

// GatesResponse is the response body for GET /api/v1/gates.
type GatesResponse struct {
	Records []telemetry.GateRecord `json:"records"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handlePipeline(c echo.Context) error {
	return c.JSON(http.StatusOK, PipelineResponse{
		Gates: s.graph.Specs(),
		Plan:  s.graph.Plan(),
	})
}

func (s *Server) handleRun(c echo.Context) error {
	if s.runs == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no run in progress")
	}
	return c.JSON(http.StatusOK, s.runs.Snapshot())
}

func (s *Server) handleGates(c echo.Context) error {
	if s.recorder == nil {
		return echo.NewHTTPError(http.StatusNotFound, "telemetry disabled")
	}
	records, err := s.recorder.Records()
	if err != nil {
		s.logger.Warn("failed to load gate records", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load gate records")
	}
	return c.JSON(http.StatusOK, GatesResponse{Records: records})
}

// Echo returns the underlying echo instance, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting status server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status server")
	return s.echo.Shutdown(ctx)
}
