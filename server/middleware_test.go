package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityhub/platform/config"
)

func TestTimeoutMiddleware(t *testing.T) {
	e := echo.New()
	mw := Timeout(testShortTimeout)

	t.Run("deadline fires", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		err := mw(func(c echo.Context) error {
			<-c.Request().Context().Done()
			return nil
		})(c)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("fast handler passes through", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		sentinel := errors.New("handler failed")
		err := mw(func(echo.Context) error { return sentinel })(c)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("cancelled parent short circuits", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		c := e.NewContext(req, httptest.NewRecorder())
		called := false
		err := mw(func(echo.Context) error { called = true; return nil })(c)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("disabled", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		err := Timeout(0)(func(c echo.Context) error {
			_, hasDeadline := c.Request().Context().Deadline()
			assert.False(t, hasDeadline)
			return nil
		})(c)
		assert.NoError(t, err)
	})
}

func TestTimedOutRequestReturns503(t *testing.T) {
	cfg := newTestConfig(config.EnvProduction)
	cfg.Server.Timeout.Write = testShortTimeout
	s := New(cfg, newTestLogger(&bytes.Buffer{}), nil)
	s.Echo().GET("/slow", func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	rec := serve(s, http.MethodGet, "/slow", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errBody := decodeEnvelope(t, rec)["error"].(map[string]any)
	assert.Equal(t, "Request timed out", errBody["message"])
}

func TestTimingHeader(t *testing.T) {
	e := echo.New()
	e.Use(Timing())
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	value := rec.Header().Get(HeaderXResponseTime)
	require.NotEmpty(t, value)
	_, err := time.ParseDuration(value)
	assert.NoError(t, err)
}

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		latency   time.Duration
		threshold time.Duration
		err       error
		wantLevel string
		wantCode  string
	}{
		{name: "ok", status: 200, latency: time.Millisecond, threshold: time.Second, wantLevel: "info", wantCode: "INFO"},
		{name: "slow", status: 200, latency: 2 * time.Second, threshold: time.Second, wantLevel: "info", wantCode: "WARN"},
		{name: "slow detection disabled", status: 200, latency: 2 * time.Second, wantLevel: "info", wantCode: "INFO"},
		{name: "client error", status: 404, wantLevel: "warn", wantCode: "WARN"},
		{name: "server error", status: 503, wantLevel: "error", wantCode: "ERROR"},
		{name: "error without status", status: 0, err: errors.New("boom"), wantLevel: "error", wantCode: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, code := determineSeverity(tt.status, tt.latency, tt.threshold, tt.err)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestRequestLogFields(t *testing.T) {
	buf := &bytes.Buffer{}
	s := New(newTestConfig(config.EnvDevelopment), newTestLogger(buf), nil)
	s.Echo().GET("/caches/:name/info", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	serve(s, http.MethodGet, "/caches/jobs/info", nil)

	out := buf.String()
	assert.Contains(t, out, `"http.route":"/caches/:name/info"`)
	assert.Contains(t, out, `"http.response.status_code":200`)
	assert.Contains(t, out, `"result_code":"INFO"`)
	assert.Contains(t, out, "GET /caches/jobs/info completed in")
}

func TestRateLimit(t *testing.T) {
	cfg := newTestConfig(config.EnvProduction)
	cfg.Server.RateLimit = 1
	s := New(cfg, newTestLogger(&bytes.Buffer{}), nil)
	s.Echo().GET("/limited", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Burst is twice the rate.
	for range 2 {
		rec := serve(s, http.MethodGet, "/limited", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(s, http.MethodGet, "/limited", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	errBody := decodeEnvelope(t, rec)["error"].(map[string]any)
	assert.Equal(t, "TOO_MANY_REQUESTS", errBody["code"])

	probe := serve(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, probe.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(0, newTestConfig(config.EnvProduction)))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for range 50 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
