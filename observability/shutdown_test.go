package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

type mockProvider struct {
	shutdownErr    error
	shutdownCalled bool
	deadline       time.Time
}

func (m *mockProvider) MeterProvider() metric.MeterProvider {
	return metricnoop.NewMeterProvider()
}

func (m *mockProvider) Shutdown(ctx context.Context) error {
	m.shutdownCalled = true
	m.deadline, _ = ctx.Deadline()
	return m.shutdownErr
}

func (m *mockProvider) ForceFlush(_ context.Context) error {
	return nil
}

func TestShutdown(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := &mockProvider{}
		assert.NoError(t, Shutdown(mock, time.Second))
		assert.True(t, mock.shutdownCalled)
	})

	t.Run("nil provider", func(t *testing.T) {
		assert.NoError(t, Shutdown(nil, time.Second))
	})

	t.Run("default timeout", func(t *testing.T) {
		mock := &mockProvider{}
		start := time.Now()
		assert.NoError(t, Shutdown(mock, 0))
		assert.WithinDuration(t, start.Add(DefaultShutdownTimeout), mock.deadline, time.Second)
	})

	t.Run("error is wrapped", func(t *testing.T) {
		cause := errors.New("export failed")
		err := Shutdown(&mockProvider{shutdownErr: cause}, time.Second)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "observability shutdown failed")
	})
}
