package tracking

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/communityhub/platform/observability"
)

const (
	httpMeterName = "communityhub/admin-http"

	metricHTTPRequestDuration = "http.server.request.duration" // seconds
	metricHTTPActiveRequests  = "http.server.active_requests"

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrHTTPRoute          = "http.route"
	attrErrorType          = "error.type"

	unknownRoute = "unknown"
)

var httpDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// HTTPMetricsConfig configures the HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// MeterProvider creates the instruments. Nil uses the global provider.
	MeterProvider metric.MeterProvider
	// Skipper skips recording for matching requests.
	Skipper func(c echo.Context) bool
}

// instruments is nil-safe: a failed instrument is left nil and skipped.
type instruments struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(httpMeterName)

	duration, durErr := observability.CreateHistogram(meter,
		metricHTTPRequestDuration, "Duration of admin HTTP requests",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...),
	)
	active, activeErr := observability.CreateUpDownCounter(meter,
		metricHTTPActiveRequests, "Number of in-flight admin HTTP requests",
		metric.WithUnit("{request}"),
	)

	inst := &instruments{duration: duration, active: active}
	if durErr != nil {
		inst.duration = nil
		return inst, durErr
	}
	if activeErr != nil {
		inst.active = nil
		return inst, activeErr
	}
	return inst, nil
}

// HTTPMetrics returns middleware that records request duration and in-flight requests.
// Instruments that cannot be created are reported through otel.Handle and skipped.
func HTTPMetrics(cfg HTTPMetricsConfig) echo.MiddlewareFunc {
	inst, err := newInstruments(cfg.MeterProvider)
	if err != nil {
		otel.Handle(err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			ctx := c.Request().Context()
			method := c.Request().Method
			inFlight := metric.WithAttributes(attribute.String(attrHTTPRequestMethod, method))

			if inst.active != nil {
				inst.active.Add(ctx, 1, inFlight)
			}
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)
			if inst.active != nil {
				inst.active.Add(ctx, -1, inFlight)
			}

			if inst.duration != nil {
				attrs := buildDurationAttributes(method, c.Response().Status, c.Path(), err)
				inst.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
			}
			return err
		}
	}
}

func buildDurationAttributes(method string, statusCode int, route string, err error) []attribute.KeyValue {
	if route == "" {
		route = unknownRoute
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, method),
		attribute.Int(attrHTTPResponseStatus, statusCode),
		attribute.String(attrHTTPRoute, route),
	}
	if errorType := classifyHTTPError(statusCode, err); errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	return attrs
}

// classifyHTTPError returns the status code for 4xx and 5xx responses, or
// "handler_error" when a handler failed without setting an error status.
func classifyHTTPError(statusCode int, err error) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	if err != nil {
		return "handler_error"
	}
	return ""
}
