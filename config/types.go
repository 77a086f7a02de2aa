package config

import "time"

// Config represents the overall application configuration structure.
// Sections not declared here are accepted by the loader and ignored.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	Server        ServerConfig        `koanf:"server" json:"server" yaml:"server"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Cache         CacheConfig         `koanf:"cache" json:"cache" yaml:"cache"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
	Env     string `koanf:"env" json:"env" yaml:"env"`
}

// ServerConfig holds admin HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host" yaml:"host"`
	Port    int           `koanf:"port" json:"port" yaml:"port"`
	Timeout TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	// RateLimit is the per-client request rate in requests per second; 0 disables limiting.
	RateLimit int `koanf:"rate_limit" json:"rateLimit" yaml:"rate_limit"`
}

// TimeoutConfig holds various timeout durations for the server.
type TimeoutConfig struct {
	Read     time.Duration `koanf:"read" json:"read" yaml:"read"`
	Write    time.Duration `koanf:"write" json:"write" yaml:"write"`
	Idle     time.Duration `koanf:"idle" json:"idle" yaml:"idle"`
	Shutdown time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// CacheConfig holds the remote store connection and per-domain namespace settings.
type CacheConfig struct {
	Redis   RedisConfig             `koanf:"redis" json:"redis" yaml:"redis"`
	Domains map[string]DomainConfig `koanf:"domains" json:"domains" yaml:"domains"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	URL                  string        `koanf:"url" json:"url" yaml:"url"`
	Host                 string        `koanf:"host" json:"host" yaml:"host"`
	Port                 int           `koanf:"port" json:"port" yaml:"port"`
	Password             string        `koanf:"password" json:"-" yaml:"password"` //nolint:gosec // G117 - config field, loaded from env/vault
	Database             int           `koanf:"database" json:"database" yaml:"database"`
	PoolSize             int           `koanf:"pool_size" json:"poolSize" yaml:"pool_size"`
	ConnectTimeout       time.Duration `koanf:"connect_timeout" json:"connectTimeout" yaml:"connect_timeout"`
	LazyConnect          bool          `koanf:"lazy_connect" json:"lazyConnect" yaml:"lazy_connect"`
	MaxReconnectAttempts int           `koanf:"max_reconnect_attempts" json:"maxReconnectAttempts" yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `koanf:"reconnect_base_delay" json:"reconnectBaseDelay" yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `koanf:"reconnect_max_delay" json:"reconnectMaxDelay" yaml:"reconnect_max_delay"`
	HealthCheckInterval  time.Duration `koanf:"health_check_interval" json:"healthCheckInterval" yaml:"health_check_interval"`
}

// DomainConfig overrides the namespace prefix and default TTL of one cache domain.
// Zero values keep the built-in defaults of that domain.
type DomainConfig struct {
	Prefix     string        `koanf:"prefix" json:"prefix" yaml:"prefix"`
	DefaultTTL time.Duration `koanf:"default_ttl" json:"defaultTtl" yaml:"default_ttl"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// MetricsConfig selects and configures the metrics exporter.
type MetricsConfig struct {
	// Exporter is one of "none", "stdout", "otlp-grpc" or "otlp-http".
	Exporter string        `koanf:"exporter" json:"exporter" yaml:"exporter"`
	Endpoint string        `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Insecure bool          `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}
