package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/communityhub/platform/observability"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Metrics exporter constants
const (
	MetricsExporterNone     = observability.ExporterNone
	MetricsExporterStdout   = observability.ExporterStdout
	MetricsExporterOTLPGRPC = observability.ExporterOTLPGRPC
	MetricsExporterOTLPHTTP = observability.ExporterOTLPHTTP
)

var (
	validEnvs      = []string{EnvDevelopment, EnvStaging, EnvProduction}
	validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	validExporters = []string{MetricsExporterNone, MetricsExporterStdout, MetricsExporterOTLPGRPC, MetricsExporterOTLPHTTP}
)

// Validate checks the resolved configuration and returns the first problem found.
func Validate(cfg *Config) error {
	if err := validateApp(&cfg.App); err != nil {
		return fmt.Errorf("app config: %w", err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if err := validateMetrics(&cfg.Observability.Metrics); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}
	return nil
}

func validateApp(cfg *AppConfig) error {
	if cfg.Name == "" {
		return NewMissingFieldError("app.name", "APP_NAME", "app.name")
	}
	if !slices.Contains(validEnvs, cfg.Env) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("invalid environment %q", cfg.Env), validEnvs)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return NewInvalidFieldError("server.port", fmt.Sprintf("invalid port %d (must be 1-65535)", cfg.Port), nil)
	}
	if cfg.Timeout.Shutdown < 0 {
		return NewInvalidFieldError("server.timeout.shutdown", "must not be negative", nil)
	}
	if cfg.RateLimit < 0 {
		return NewInvalidFieldError("server.rate_limit", "must not be negative", nil)
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	if !slices.Contains(validLogLevels, strings.ToLower(cfg.Level)) {
		return NewInvalidFieldError("log.level", fmt.Sprintf("invalid level %q", cfg.Level), validLogLevels)
	}
	return nil
}

// validateCache checks presence and ranges; cache/redis.Config.Validate does the rest
// when the connection is built.
func validateCache(cfg *CacheConfig) error {
	r := &cfg.Redis
	if r.URL == "" && r.Host == "" {
		return NewMissingFieldError("cache.redis.host", "CACHE_REDIS_HOST", "cache.redis.host")
	}
	if r.Database < 0 || r.Database > 15 {
		return NewInvalidFieldError("cache.redis.database", fmt.Sprintf("invalid database %d (must be 0-15)", r.Database), nil)
	}
	if r.MaxReconnectAttempts < 0 {
		return NewInvalidFieldError("cache.redis.max_reconnect_attempts", "must not be negative", nil)
	}
	if r.ReconnectBaseDelay > r.ReconnectMaxDelay && r.ReconnectMaxDelay > 0 {
		return NewInvalidFieldError("cache.redis.reconnect_base_delay", "must not exceed reconnect_max_delay", nil)
	}

	for name, d := range cfg.Domains {
		if d.DefaultTTL < 0 {
			return NewInvalidFieldError("cache.domains."+name+".default_ttl", "must not be negative", nil)
		}
	}
	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if cfg.Exporter == "" {
		cfg.Exporter = MetricsExporterNone
	}
	if !slices.Contains(validExporters, cfg.Exporter) {
		return NewInvalidFieldError("observability.metrics.exporter", fmt.Sprintf("unknown exporter %q", cfg.Exporter), validExporters)
	}
	if (cfg.Exporter == MetricsExporterOTLPGRPC || cfg.Exporter == MetricsExporterOTLPHTTP) && cfg.Endpoint == "" {
		return NewMissingFieldError("observability.metrics.endpoint", "OBSERVABILITY_METRICS_ENDPOINT", "observability.metrics.endpoint")
	}
	if cfg.Interval < 0 {
		return NewInvalidFieldError("observability.metrics.interval", "must not be negative", nil)
	}
	return nil
}
