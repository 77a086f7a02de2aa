package config

import (
	"github.com/communityhub/platform/cache"
	cacheredis "github.com/communityhub/platform/cache/redis"
	"github.com/communityhub/platform/observability"
)

// RedisConfig converts the cache.redis section into the connection configuration.
func (c *Config) RedisConfig() *cacheredis.Config {
	r := c.Cache.Redis
	return &cacheredis.Config{
		URL:                  r.URL,
		Host:                 r.Host,
		Port:                 r.Port,
		Password:             r.Password,
		Database:             r.Database,
		PoolSize:             r.PoolSize,
		ConnectTimeout:       r.ConnectTimeout,
		LazyConnect:          r.LazyConnect,
		MaxReconnectAttempts: r.MaxReconnectAttempts,
		ReconnectBaseDelay:   r.ReconnectBaseDelay,
		ReconnectMaxDelay:    r.ReconnectMaxDelay,
		HealthCheckInterval:  r.HealthCheckInterval,
	}
}

// MetricsConfig converts the observability.metrics section into the meter provider configuration.
func (c *Config) MetricsConfig() *observability.Config {
	m := c.Observability.Metrics
	return &observability.Config{
		ServiceName:    c.App.Name,
		ServiceVersion: c.App.Version,
		Environment:    c.App.Env,
		Exporter:       m.Exporter,
		Endpoint:       m.Endpoint,
		Insecure:       m.Insecure,
		Interval:       m.Interval,
	}
}

// DomainConfig returns base with any configured overrides for its domain applied.
func (c *Config) DomainConfig(base cache.ManagerConfig) cache.ManagerConfig {
	d, ok := c.Cache.Domains[base.Name]
	if !ok {
		return base
	}
	if d.Prefix != "" {
		base.Prefix = d.Prefix
	}
	if d.DefaultTTL > 0 {
		base.DefaultTTL = d.DefaultTTL
	}
	return base
}
