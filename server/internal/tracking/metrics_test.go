package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	obstest "github.com/communityhub/platform/observability/testing"
)

func setupTestMeterProvider(t *testing.T) *obstest.TestMeterProvider {
	t.Helper()

	mp := obstest.NewTestMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp
}

func newInstrumentedEcho(cfg HTTPMetricsConfig) *echo.Echo {
	e := echo.New()
	e.Use(HTTPMetrics(cfg))
	e.GET("/caches/:name", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/fail", func(c echo.Context) error { return c.String(http.StatusServiceUnavailable, "down") })
	return e
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHTTPMetricsRecordsDuration(t *testing.T) {
	mp := setupTestMeterProvider(t)
	e := newInstrumentedEcho(HTTPMetricsConfig{MeterProvider: mp})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/caches/jobs", nil))

	rm := mp.Collect(t)
	obstest.AssertMetricValue(t, rm, metricHTTPRequestDuration, 1)

	m := obstest.FindMetric(rm, metricHTTPRequestDuration)
	hist := m.Data.(metricdata.Histogram[float64])
	attrs := hist.DataPoints[0].Attributes.ToSlice()

	route, ok := attrValue(attrs, attrHTTPRoute)
	require.True(t, ok)
	assert.Equal(t, "/caches/:name", route.AsString())
	status, ok := attrValue(attrs, attrHTTPResponseStatus)
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
	_, hasErrorType := attrValue(attrs, attrErrorType)
	assert.False(t, hasErrorType)
}

func TestHTTPMetricsActiveRequestsSettle(t *testing.T) {
	mp := setupTestMeterProvider(t)
	e := newInstrumentedEcho(HTTPMetricsConfig{MeterProvider: mp})

	for range 3 {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/caches/jobs", nil))
	}

	rm := mp.Collect(t)
	m := obstest.FindMetric(rm, metricHTTPActiveRequests)
	require.NotNil(t, m)
	sum := m.Data.(metricdata.Sum[int64])
	require.NotEmpty(t, sum.DataPoints)
	assert.Zero(t, sum.DataPoints[0].Value)
	assert.False(t, sum.IsMonotonic)
}

func TestHTTPMetricsErrorType(t *testing.T) {
	mp := setupTestMeterProvider(t)
	e := newInstrumentedEcho(HTTPMetricsConfig{MeterProvider: mp})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	rm := mp.Collect(t)
	hist := obstest.FindMetric(rm, metricHTTPRequestDuration).Data.(metricdata.Histogram[float64])
	errType, ok := attrValue(hist.DataPoints[0].Attributes.ToSlice(), attrErrorType)
	require.True(t, ok)
	assert.Equal(t, "503", errType.AsString())
}

func TestHTTPMetricsSkipper(t *testing.T) {
	mp := setupTestMeterProvider(t)
	e := newInstrumentedEcho(HTTPMetricsConfig{
		MeterProvider: mp,
		Skipper:       func(echo.Context) bool { return true },
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/caches/jobs", nil))

	rm := mp.Collect(t)
	assert.Nil(t, obstest.FindMetric(rm, metricHTTPRequestDuration))
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   string
	}{
		{name: "success", status: 200, want: ""},
		{name: "redirect", status: 302, want: ""},
		{name: "client error", status: 404, want: "404"},
		{name: "server error", status: 500, want: "500"},
		{name: "handler error with ok status", status: 200, err: errors.New("boom"), want: "handler_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyHTTPError(tt.status, tt.err))
		})
	}
}

func TestBuildDurationAttributesUnknownRoute(t *testing.T) {
	attrs := buildDurationAttributes(http.MethodGet, 404, "", nil)
	route, ok := attrValue(attrs, attrHTTPRoute)
	require.True(t, ok)
	assert.Equal(t, "unknown", route.AsString())
}

func TestHTTPMetricsGlobalProviderFallback(t *testing.T) {
	e := newInstrumentedEcho(HTTPMetricsConfig{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/caches/jobs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
