// Package api serves the tenant-facing HTTP API: workflow triggers, dry-run
// tests, workflow configuration and run history.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/internal/trigger"
)

// Deps holds the dependencies for the API server.
type Deps struct {
	Store   store.Store
	Engine  *engine.Engine
	Trigger *trigger.Service
	Logger  *slog.Logger

	// MCP, when set, is mounted under /mcp behind the same API-key auth.
	MCP http.Handler

	// ServiceName labels request spans. Empty disables HTTP tracing.
	ServiceName string
}

// Server is the HTTP API.
type Server struct {
	deps Deps
	echo *echo.Echo

	mu   sync.Mutex
	http *http.Server
}

// NewServer builds the echo router with all routes mounted.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{deps: deps, echo: e}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if deps.ServiceName != "" {
		e.Use(otelecho.Middleware(deps.ServiceName))
	}
	e.Use(s.requestLogger())

	e.GET("/healthz", s.handleHealth)

	v1 := e.Group("/api/v1", s.requireAPIKey)
	v1.POST("/workflows/trigger", s.handleTrigger)
	v1.POST("/workflows/test", s.handleTest)
	v1.GET("/workflows", s.handleListWorkflows)
	v1.PUT("/workflows", s.handlePutWorkflow)
	v1.GET("/workflows/:id", s.handleGetWorkflow)
	v1.POST("/workflows/:id/validate", s.handleValidateWorkflow)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)

	if deps.MCP != nil {
		e.Any("/mcp/*", echo.WrapHandler(deps.MCP), s.requireAPIKey)
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until the server stops. A clean shutdown
// returns nil.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.deps.Logger.Info("api server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			log := logging.LogWith(c.Request().Context(), s.deps.Logger)
			if v.Error != nil {
				log.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"behaviors": s.deps.Engine.Registry().Count(),
	})
}
