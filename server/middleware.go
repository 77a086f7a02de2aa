package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/communityhub/platform/config"
	"github.com/communityhub/platform/logger"
	"github.com/communityhub/platform/server/internal/tracking"
)

// DefaultBodyLimit caps admin request bodies; invalidation payloads are small.
const DefaultBodyLimit = "1M"

// SetupMiddlewares registers the admin server middleware chain.
func SetupMiddlewares(e *echo.Echo, log logger.Logger, cfg *config.Config) {
	e.Use(middleware.RequestID())

	e.Use(tracking.HTTPMetrics(tracking.HTTPMetricsConfig{
		Skipper: isProbeRequest,
	}))

	e.Use(Logger(log, healthPath, readyPath))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	e.Use(middleware.BodyLimit(DefaultBodyLimit))

	e.Use(Timeout(cfg.Server.Timeout.Write))

	e.Use(RateLimit(cfg.Server.RateLimit, cfg))

	e.Use(Timing())
}

func isProbeRequest(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == healthPath || p == readyPath
}
