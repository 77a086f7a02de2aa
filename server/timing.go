package server

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Timing sets the X-Response-Time header to the handler duration, just before the
// response is written.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			resp := c.Response()
			resp.Before(func() {
				resp.Header().Set(HeaderXResponseTime, time.Since(start).String())
			})
			return next(c)
		}
	}
}
