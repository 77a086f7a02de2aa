// Package observability builds the OpenTelemetry meter provider that receives the cache
// instrumentation and exports it to stdout or an OTLP collector.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/communityhub/platform/logger"
)

// Provider owns the lifecycle of the process meter provider.
type Provider interface {
	// MeterProvider returns the configured meter provider.
	MeterProvider() metric.MeterProvider

	// Shutdown flushes pending data and stops exporting.
	Shutdown(ctx context.Context) error

	// ForceFlush immediately exports pending data.
	ForceFlush(ctx context.Context) error
}

// Option customizes NewProvider.
type Option func(*options)

type options struct {
	log     logger.Logger
	readers []sdkmetric.Reader
	stdout  io.Writer
}

// WithLogger reports provider setup and shutdown through log.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithReader registers an extra reader, typically a ManualReader in tests.
// A provider with extra readers is built even when the exporter is none.
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.readers = append(o.readers, r) }
}

// WithStdoutWriter redirects the stdout exporter.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

type provider struct {
	config        Config
	log           logger.Logger
	meterProvider *sdkmetric.MeterProvider
	mu            sync.Mutex
}

// NewProvider builds a meter provider from cfg and installs it as the global provider.
// With the none exporter and no extra readers it returns a no-op provider and leaves
// the global untouched.
func NewProvider(cfg *Config, opts ...Option) (Provider, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	safeCfg := *cfg
	safeCfg.ApplyDefaults()
	if err := safeCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	if !safeCfg.Enabled() && len(o.readers) == 0 {
		if o.log != nil {
			o.log.Debug().Msg("Metrics export disabled, using no-op meter provider")
		}
		return newNoopProvider(), nil
	}

	p := &provider{config: safeCfg, log: o.log}
	if err := p.initMeterProvider(o); err != nil {
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetMeterProvider(p.meterProvider)

	if p.log != nil {
		p.log.Info().
			Str("exporter", safeCfg.Exporter).
			Str("endpoint", safeCfg.Endpoint).
			Dur("interval", safeCfg.Interval).
			Msg("Meter provider initialized")
	}
	return p, nil
}

// MustNewProvider is like NewProvider but panics on error.
func MustNewProvider(cfg *Config, opts ...Option) Provider {
	p, err := NewProvider(cfg, opts...)
	if err != nil {
		panic(fmt.Errorf("failed to create observability provider: %w", err))
	}
	return p
}

// MeterProvider returns the configured meter provider.
func (p *provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Shutdown flushes and stops the meter provider.
func (p *provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.meterProvider.Shutdown(ctx); err != nil && !errors.Is(err, sdkmetric.ErrReaderShutdown) {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	if p.log != nil {
		p.log.Debug().Msg("Meter provider shut down")
	}
	return nil
}

// ForceFlush exports pending data now.
func (p *provider) ForceFlush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.meterProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("failed to flush meter provider: %w", err)
	}
	return nil
}
