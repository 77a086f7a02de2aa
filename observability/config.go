package observability

import (
	"fmt"
	"strings"
	"time"
)

// Metric exporters understood by NewProvider.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

const (
	// DefaultInterval is how often the periodic reader exports.
	DefaultInterval = 30 * time.Second
	// DefaultExportTimeout bounds a single export.
	DefaultExportTimeout = 10 * time.Second
	// DefaultServiceName is used when no service name is configured.
	DefaultServiceName = "communityhub-cache"
)

// Config describes the meter provider to build.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Exporter selects the metric exporter, one of the Exporter* constants.
	Exporter string
	// Endpoint is host:port for the OTLP exporters.
	Endpoint string
	// Insecure disables TLS for the OTLP exporters.
	Insecure bool
	// Headers are sent with every OTLP export request.
	Headers map[string]string

	Interval      time.Duration
	ExportTimeout time.Duration
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	c.Exporter = strings.ToLower(strings.TrimSpace(c.Exporter))
	if c.Exporter == "" {
		c.Exporter = ExporterNone
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = DefaultExportTimeout
	}
}

// Enabled reports whether metrics leave the process.
func (c *Config) Enabled() bool {
	return c != nil && c.Exporter != "" && c.Exporter != ExporterNone
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	switch c.Exporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("%w: exporter %s", ErrMissingEndpoint, c.Exporter)
		}
		if strings.Contains(c.Endpoint, "://") {
			return fmt.Errorf("%w: %q must be host:port", ErrInvalidEndpointFormat, c.Endpoint)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidExporter, c.Exporter)
	}
	return nil
}
