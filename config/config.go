package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/communityhub/platform/cache/domains"
	cacheredis "github.com/communityhub/platform/cache/redis"
)

// envSections are the top-level sections environment variables may target.
var envSections = []string{"app", "server", "log", "cache", "observability"}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.<env>.yaml, then config.yaml
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// YAML files are optional
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config.yaml: %w", err)
	}

	if env := environmentName(k); env != "" {
		envFile := fmt.Sprintf("config.%s.yaml", env)
		if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := loadEnv(k, os.Environ); err != nil {
		return nil, err
	}

	return finish(k)
}

// LoadFromBytes resolves configuration from defaults and a YAML document only.
// The process environment is ignored.
func LoadFromBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// environmentName reads app.env, letting APP_ENV pick the environment file.
func environmentName(k *koanf.Koanf) string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return k.String("app.env")
}

// loadEnv maps UPPER_SNAKE variables onto known keys: CACHE_REDIS_POOL_SIZE becomes
// cache.redis.pool_size. Unknown variables of a known section fall back to replacing
// every '_' with '.'.
func loadEnv(k *koanf.Koanf, environ func() []string) error {
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}

	provider := envprovider.Provider(".", envprovider.Opt{
		EnvironFunc: environ,
		TransformFunc: func(name, value string) (string, any) {
			lower := strings.ToLower(name)
			if key, ok := known[lower]; ok {
				return key, value
			}
			section, _, _ := strings.Cut(lower, "_")
			for _, s := range envSections {
				if s == section {
					return strings.ReplaceAll(lower, "_", "."), value
				}
			}
			return "", nil
		},
	})

	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "communityhub-cache",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.timeout.read":     "15s",
		"server.timeout.write":    "30s",
		"server.timeout.idle":     "60s",
		"server.timeout.shutdown": "10s",
		"server.rate_limit":       20,

		"log.level":  "info",
		"log.pretty": false,

		"cache.redis.url":                    "",
		"cache.redis.host":                   "localhost",
		"cache.redis.port":                   cacheredis.DefaultPort,
		"cache.redis.password":               "",
		"cache.redis.database":               0,
		"cache.redis.pool_size":              cacheredis.DefaultPoolSize,
		"cache.redis.connect_timeout":        cacheredis.DefaultConnectTimeout.String(),
		"cache.redis.lazy_connect":           false,
		"cache.redis.max_reconnect_attempts": cacheredis.DefaultMaxReconnectAttempts,
		"cache.redis.reconnect_base_delay":   cacheredis.DefaultReconnectBaseDelay.String(),
		"cache.redis.reconnect_max_delay":    cacheredis.DefaultReconnectMaxDelay.String(),
		"cache.redis.health_check_interval":  "0s",

		"observability.metrics.exporter": MetricsExporterNone,
		"observability.metrics.endpoint": "",
		"observability.metrics.insecure": false,
		"observability.metrics.interval": "30s",
	}

	for _, d := range []struct {
		name   string
		prefix string
		ttl    string
	}{
		{domains.JobsName, domains.JobsConfig().Prefix, domains.JobsConfig().DefaultTTL.String()},
		{domains.UsersName, domains.UsersConfig().Prefix, domains.UsersConfig().DefaultTTL.String()},
		{domains.EventsName, domains.EventsConfig().Prefix, domains.EventsConfig().DefaultTTL.String()},
		{domains.SearchName, domains.SearchConfig().Prefix, domains.SearchConfig().DefaultTTL.String()},
	} {
		defaults["cache.domains."+d.name+".prefix"] = d.prefix
		defaults["cache.domains."+d.name+".default_ttl"] = d.ttl
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
