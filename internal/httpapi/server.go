// Package httpapi provides the HTTP API for mentord.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/orchestrator"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// Server exposes project sessions and chat turns over HTTP.
type Server struct {
	echo    *echo.Echo
	runner  *orchestrator.Runner
	store   *session.Store
	metrics *Metrics
	logger  *zap.Logger
	config  *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(runner *orchestrator.Runner, store *session.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8086}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		runner:  runner,
		store:   store,
		metrics: NewMetrics(),
		logger:  logger,
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.Middleware())
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

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/projects", s.handleCreateProject)
	v1.GET("/projects/:id", s.handleGetProject)
	v1.POST("/chat", s.handleChat)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateProjectRequest is the request body for POST /api/v1/projects.
type CreateProjectRequest struct {
	ProjectName string `json:"project_name"`
}

// handleCreateProject allocates a session id and persists the empty record.
func (s *Server) handleCreateProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id := uuid.NewString()
	delta := session.Delta{}
	if req.ProjectName != "" {
		delta.ProjectName = &req.ProjectName
	}

	state, err := s.store.Apply(c.Request().Context(), id, delta)
	if err != nil {
		s.logger.Error("failed to create project session", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create project")
	}
	return c.JSON(http.StatusCreated, state)
}

// handleGetProject returns the full session record. Peek never creates a
// record, so an unknown id is a clean 404 instead of a phantom session.
func (s *Server) handleGetProject(c echo.Context) error {
	state, err := s.store.Peek(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "project not found")
		}
		s.logger.Error("failed to load project session", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load project")
	}
	return c.JSON(http.StatusOK, state)
}

// ChatRequest is the request body for POST /api/v1/chat.
type ChatRequest struct {
	SessionID  string `json:"session_id"`
	Message    string `json:"message"`
	Mode       string `json:"mode,omitempty"`
	Capability string `json:"capability,omitempty"`
}

// handleChat runs one conversational turn.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	resp, err := s.runner.ProcessRequest(c.Request().Context(), req.SessionID, req.Message, orchestrator.Options{
		Mode:                 req.Mode,
		SelectedCapabilityID: req.Capability,
	})
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownCapability) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown capability")
		}
		s.logger.Error("chat turn failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "chat turn failed")
	}

	s.metrics.CountTurn(resp.Intent.Primary)
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.echo }
