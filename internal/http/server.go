// Package http provides the diagnostics HTTP surface for beacond.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fyrsmithlabs/beacond/internal/lifecycle"
	"github.com/fyrsmithlabs/beacond/internal/logging"
	"github.com/fyrsmithlabs/beacond/internal/telemetry"
)

// Server exposes health, stats, runtime logging controls, and Prometheus
// metrics over HTTP.
type Server struct {
	echo      *echo.Echo
	logger    *logging.Logger
	machine   *lifecycle.Machine
	config    *Config
	startedAt time.Time
}

// Config holds HTTP server configuration. Telemetry is optional; when set,
// its health is reported alongside the lifecycle state in GET /health.
type Config struct {
	Addr      string
	Telemetry *telemetry.Telemetry
}

// NewServer creates the HTTP server and registers routes.
func NewServer(logger *logging.Logger, machine *lifecycle.Machine, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if machine == nil {
		return nil, fmt.Errorf("lifecycle machine is required")
	}
	if cfg == nil {
		cfg = &Config{Addr: ":9632"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	httpLogger := logger.Named("http")

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			httpLogger.Info(c.Request().Context(), map[string]any{
				"message":    "http request",
				"method":     c.Request().Method,
				"uri":        c.Request().RequestURI,
				"status":     c.Response().Status,
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  c.Response().Header().Get(echo.HeaderXRequestID),
			})
			return err
		}
	})
	e.Use(NewHTTPMetrics(httpLogger).MetricsMiddleware())

	s := &Server{
		echo:      e,
		logger:    httpLogger,
		machine:   machine,
		config:    cfg,
		startedAt: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(newMetricsHandler(s.logger)))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/stats", s.handleStats)
	v1.GET("/logging", s.handleGetLogging)
	v1.PUT("/logging", s.handlePutLogging)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string           `json:"status"`
	State     string           `json:"state"`
	Telemetry *TelemetryHealth `json:"telemetry,omitempty"`
}

// TelemetryHealth reports the telemetry provider state. A degraded provider
// never makes the server unhealthy; it exports nothing and the server keeps
// serving.
type TelemetryHealth struct {
	Enabled  bool     `json:"enabled"`
	Healthy  bool     `json:"healthy"`
	Degraded bool     `json:"degraded"`
	Reasons  []string `json:"reasons,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	state := s.machine.State()
	resp := HealthResponse{Status: "ok", State: state.String()}
	if tel := s.config.Telemetry; tel != nil {
		health := tel.Health()
		resp.Telemetry = &TelemetryHealth{
			Enabled:  tel.IsEnabled(),
			Healthy:  health.Healthy,
			Degraded: health.Degraded,
			Reasons:  health.DegradedReasons,
		}
	}
	if state != lifecycle.StateOperational {
		resp.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// StatsResponse is the response body for GET /api/v1/stats.
type StatsResponse struct {
	State          string                   `json:"state"`
	UptimeSeconds  float64                  `json:"uptime_seconds"`
	ActiveSessions int                      `json:"active_sessions"`
	ActiveTraces   int                      `json:"active_traces"`
	Sessions       []logging.SessionContext `json:"sessions"`
}

func (s *Server) handleStats(c echo.Context) error {
	stats := s.logger.Statistics()
	return c.JSON(http.StatusOK, StatsResponse{
		State:          s.machine.State().String(),
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
		ActiveSessions: stats.SessionStats.ActiveSessions,
		ActiveTraces:   stats.SessionStats.ActiveTraces,
		Sessions:       stats.SessionStats.Sessions,
	})
}

// LoggingSettings is the body for GET and PUT /api/v1/logging. On PUT, nil
// fields are left unchanged.
type LoggingSettings struct {
	Level     *string `json:"level,omitempty"`
	Redaction *bool   `json:"redaction,omitempty"`
	RateLimit *bool   `json:"rate_limit,omitempty"`
}

func (s *Server) handleGetLogging(c echo.Context) error {
	level := s.logger.Level().String()
	return c.JSON(http.StatusOK, LoggingSettings{Level: &level})
}

func (s *Server) handlePutLogging(c echo.Context) error {
	var req LoggingSettings
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Level != nil {
		if err := s.logger.SetLevel(*req.Level); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid level %q", *req.Level))
		}
	}
	if req.Redaction != nil {
		s.logger.SetSensitiveDataFilter(*req.Redaction)
	}
	if req.RateLimit != nil {
		s.logger.SetRateLimiting(*req.RateLimit)
	}

	s.logger.Notice(c.Request().Context(), map[string]any{
		"message": "logging settings updated",
	})

	level := s.logger.Level().String()
	return c.JSON(http.StatusOK, LoggingSettings{Level: &level})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), map[string]any{
		"message": "starting http server",
		"addr":    s.config.Addr,
	})
	return s.echo.Start(s.config.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
