package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityhub/platform/config"
	"github.com/communityhub/platform/logger"
)

type stubHealth struct {
	healthy bool
	details map[string]any
}

func (s stubHealth) Health(context.Context) (healthy bool, details map[string]any) {
	return s.healthy, s.details
}

func newTestConfig(env string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "cache-admin", Version: "test", Env: env},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 9090,
			Timeout: config.TimeoutConfig{
				Write: testLongTimeout,
			},
		},
	}
}

func newTestLogger(buf *bytes.Buffer) logger.Logger {
	return logger.NewWithWriter(buf, "debug")
}

func newTestServer(t *testing.T, env string, health HealthReporter) (*Server, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return New(newTestConfig(env), newTestLogger(buf), health), buf
}

func serve(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthIsAlwaysOK(t *testing.T) {
	s, _ := newTestServer(t, config.EnvDevelopment, stubHealth{healthy: false})

	rec := serve(s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyReflectsHealthReporter(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthReporter
		wantStatus int
		wantBody   string
	}{
		{
			name:       "nil reporter",
			health:     nil,
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name:       "healthy",
			health:     stubHealth{healthy: true, details: map[string]any{"redis": "connected"}},
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name:       "unhealthy",
			health:     stubHealth{healthy: false, details: map[string]any{"redis": "failed"}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, config.EnvDevelopment, tt.health)

			rec := serve(s, http.MethodGet, "/ready", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantBody, body["status"])
		})
	}
}

func TestProbesAreNotLogged(t *testing.T) {
	s, buf := newTestServer(t, config.EnvDevelopment, nil)

	serve(s, http.MethodGet, "/health", nil)
	serve(s, http.MethodGet, "/ready", nil)

	assert.NotContains(t, buf.String(), "completed in")
}

func TestAddress(t *testing.T) {
	s, _ := newTestServer(t, config.EnvDevelopment, nil)
	assert.Equal(t, "127.0.0.1:9090", s.Address())
	assert.NotNil(t, s.Handlers())
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s, buf := newTestServer(t, config.EnvProduction, nil)

	rec := serve(s, http.MethodGet, "/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeEnvelope(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errBody["code"])
	assert.NotContains(t, errBody, "details")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), "GET /nope completed in")
}

func TestCustomErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails bool
	}{
		{
			name:        "api error",
			env:         config.EnvProduction,
			err:         NewServiceUnavailableError(""),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "SERVICE_UNAVAILABLE",
			wantMessage: "Service temporarily unavailable",
		},
		{
			name:        "echo http error",
			env:         config.EnvProduction,
			err:         echo.NewHTTPError(http.StatusBadRequest, "bad input"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "BAD_REQUEST",
			wantMessage: "bad input",
		},
		{
			name:        "deadline exceeded",
			env:         config.EnvProduction,
			err:         context.DeadlineExceeded,
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "SERVICE_UNAVAILABLE",
			wantMessage: "Request timed out",
		},
		{
			name:        "internal error hidden in production",
			env:         config.EnvProduction,
			err:         errors.New("connection pool exhausted"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "An error occurred while processing your request",
		},
		{
			name:        "internal error detailed in development",
			env:         config.EnvDevelopment,
			err:         errors.New("connection pool exhausted"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "Internal server error",
			wantDetails: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

			customErrorHandler(tt.err, c, newTestConfig(tt.env), newTestLogger(&bytes.Buffer{}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeEnvelope(t, rec)
			errBody := body["error"].(map[string]any)
			assert.Equal(t, tt.wantCode, errBody["code"])
			assert.Equal(t, tt.wantMessage, errBody["message"])
			_, hasDetails := errBody["details"]
			assert.Equal(t, tt.wantDetails, hasDetails)
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	cfg := newTestConfig(config.EnvDevelopment)
	cfg.Server.Port = 0
	s := New(cfg, newTestLogger(&bytes.Buffer{}), nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	require.Eventually(t, func() bool {
		return s.Echo().ListenerAddr() != nil
	}, testLongTimeout, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), testLongTimeout)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	err := <-errCh
	assert.ErrorIs(t, err, http.ErrServerClosed)
}
