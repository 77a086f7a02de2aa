package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Exporter: " STDOUT "}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, ExporterStdout, cfg.Exporter)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultExportTimeout, cfg.ExportTimeout)
	assert.True(t, cfg.Enabled())

	empty := Config{}
	empty.ApplyDefaults()
	assert.Equal(t, ExporterNone, empty.Exporter)
	assert.False(t, empty.Enabled())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{ServiceName: "svc", Interval: time.Second, ExportTimeout: 2 * time.Second}
	cfg.ApplyDefaults()

	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, 2*time.Second, cfg.ExportTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "none", cfg: Config{ServiceName: "svc", Exporter: ExporterNone}},
		{name: "stdout", cfg: Config{ServiceName: "svc", Exporter: ExporterStdout}},
		{name: "grpc", cfg: Config{ServiceName: "svc", Exporter: ExporterOTLPGRPC, Endpoint: "collector:4317"}},
		{name: "http", cfg: Config{ServiceName: "svc", Exporter: ExporterOTLPHTTP, Endpoint: "collector:4318"}},
		{name: "missing service name", cfg: Config{Exporter: ExporterNone}, wantErr: ErrMissingServiceName},
		{name: "unknown exporter", cfg: Config{ServiceName: "svc", Exporter: "prometheus"}, wantErr: ErrInvalidExporter},
		{name: "otlp without endpoint", cfg: Config{ServiceName: "svc", Exporter: ExporterOTLPGRPC}, wantErr: ErrMissingEndpoint},
		{name: "endpoint with scheme", cfg: Config{ServiceName: "svc", Exporter: ExporterOTLPHTTP, Endpoint: "http://collector:4318"}, wantErr: ErrInvalidEndpointFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrNilConfig)
	assert.False(t, cfg.Enabled())
}
