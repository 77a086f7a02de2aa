// Package server provides the admin HTTP surface over the cache registry using Echo.
// It includes middleware setup, typed handlers and the cache administration routes.
package server

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/communityhub/platform/config"
	"github.com/communityhub/platform/logger"
)

const (
	healthPath = "/health"
	readyPath  = "/ready"
)

// HealthReporter reports whether the process dependencies are usable.
type HealthReporter interface {
	Health(ctx context.Context) (healthy bool, details map[string]any)
}

// Server represents the admin HTTP server.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	logger   logger.Logger
	health   HealthReporter
	handlers *HandlerRegistry

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server with middlewares, error handling and the health endpoints.
// health may be nil, in which case /health always reports ok.
func New(cfg *config.Config, log logger.Logger, health HealthReporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		customErrorHandler(err, c, cfg, log)
	}
	e.Validator = NewValidator()

	SetupMiddlewares(e, log, cfg)

	s := &Server{
		echo:     e,
		cfg:      cfg,
		logger:   log,
		health:   health,
		handlers: NewHandlerRegistry(cfg, log),
	}

	e.GET(healthPath, s.healthCheck)
	e.GET(readyPath, s.readyCheck)

	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handlers returns the registry used to register typed handlers.
func (s *Server) Handlers() *HandlerRegistry {
	return s.handlers
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
}

// Start begins accepting requests and blocks until shutdown or failure.
func (s *Server) Start() error {
	addr := s.Address()

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Str("address", addr).
		Msg("Starting admin server")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  orDefault(s.cfg.Server.Timeout.Read, DefaultReadTimeout),
		WriteTimeout: orDefault(s.cfg.Server.Timeout.Write, DefaultWriteTimeout),
		IdleTimeout:  orDefault(s.cfg.Server.Timeout.Idle, DefaultIdleTimeout),
	}
	s.mu.Lock()
	s.httpServer = server
	s.mu.Unlock()

	return s.echo.StartServer(server)
}

// Shutdown gracefully stops the server, waiting for in-flight requests within ctx.
// Echo.Shutdown only knows about its own embedded servers, so the server built by
// Start is shut down directly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()

	if server == nil {
		return s.echo.Shutdown(ctx)
	}
	return server.Shutdown(ctx)
}

// healthCheck is the liveness probe.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// readyCheck reports dependency health; 503 when a critical dependency is down.
func (s *Server) readyCheck(c echo.Context) error {
	if s.health == nil {
		return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
	}

	healthy, details := s.health.Health(c.Request().Context())
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": details,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
		"checks": details,
	})
}

func customErrorHandler(err error, c echo.Context, cfg *config.Config, log logger.Logger) {
	if c.Response().Committed {
		return
	}

	var apiErr IAPIError
	if goerrors.As(err, &apiErr) {
		_ = formatErrorResponse(c, apiErr, cfg)
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	switch {
	case goerrors.As(err, &he):
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		}
	case goerrors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		msg = "Request timed out"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled request error")
	}
	if !isDevelopmentEnv(cfg.App.Env) && status == http.StatusInternalServerError {
		msg = "An error occurred while processing your request"
	}

	base := NewAPIError(statusToErrorCode(status), msg, status)
	if isDevelopmentEnv(cfg.App.Env) {
		_ = base.WithDetails("error", fmt.Sprint(err))
	}
	_ = formatErrorResponse(c, base, cfg)
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

func isDevelopmentEnv(env string) bool {
	return env == config.EnvDevelopment
}
