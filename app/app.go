// Package app wires the cache process together: it owns the shared store connection,
// the registry of domain cache managers, the meter provider and the admin server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/communityhub/platform/cache/redis"
	"github.com/communityhub/platform/config"
	"github.com/communityhub/platform/logger"
	"github.com/communityhub/platform/observability"
	"github.com/communityhub/platform/server"
)

// SignalNotifier registers c to receive the given signals. signal.Notify satisfies it.
type SignalNotifier func(c chan<- os.Signal, sig ...os.Signal)

type options struct {
	connOpts     []redis.Option
	metricsOpts  []observability.Option
	signalNotify SignalNotifier
}

// Option configures an App.
type Option func(*options)

// WithConnectionOptions passes options to the store connection, e.g. a custom dialer.
func WithConnectionOptions(opts ...redis.Option) Option {
	return func(o *options) {
		o.connOpts = append(o.connOpts, opts...)
	}
}

// WithMetricsOptions passes options to the meter provider, e.g. a manual reader in tests.
func WithMetricsOptions(opts ...observability.Option) Option {
	return func(o *options) {
		o.metricsOpts = append(o.metricsOpts, opts...)
	}
}

// WithSignalNotify replaces signal.Notify, letting tests trigger shutdown.
func WithSignalNotify(fn SignalNotifier) Option {
	return func(o *options) {
		o.signalNotify = fn
	}
}

// App represents the cache process.
type App struct {
	cfg          *config.Config
	logger       logger.Logger
	metrics      observability.Provider
	conn         *redis.Connection
	registry     *Registry
	server       *server.Server
	healthProbes []HealthProbe
	signalNotify SignalNotifier
}

// New builds the meter provider, the shared store connection, the registry and the admin
// server, in that order. Components created before a failing step are released.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	o := &options{signalNotify: signal.Notify}
	for _, opt := range opts {
		opt(o)
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting cache service")

	metrics, err := observability.NewProvider(cfg.MetricsConfig(),
		append([]observability.Option{observability.WithLogger(log)}, o.metricsOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	conn, err := redis.NewConnection(cfg.RedisConfig(), log, o.connOpts...)
	if err != nil {
		_ = observability.Shutdown(metrics, observability.DefaultShutdownTimeout)
		return nil, fmt.Errorf("failed to connect to cache store: %w", err)
	}

	registry := NewRegistry(conn, log, cfg)

	a := &App{
		cfg:          cfg,
		logger:       log,
		metrics:      metrics,
		conn:         conn,
		registry:     registry,
		signalNotify: o.signalNotify,
	}
	a.healthProbes = []HealthProbe{
		storeHealthProbe(conn, func() string { return conn.State().String() }),
		registryHealthProbe(registry),
	}

	a.server = server.New(cfg, log, a)
	server.RegisterCacheRoutes(a.server.Handlers(), a.server.Echo(), registry)

	return a, nil
}

// Registry returns the cache registry.
func (a *App) Registry() *Registry { return a.registry }

// Connection returns the shared store connection.
func (a *App) Connection() *redis.Connection { return a.conn }

// Server returns the admin server.
func (a *App) Server() *server.Server { return a.server }

// Health runs the readiness probes. It implements server.HealthReporter.
func (a *App) Health(ctx context.Context) (healthy bool, details map[string]any) {
	return runHealthProbes(ctx, a.healthProbes)
}
