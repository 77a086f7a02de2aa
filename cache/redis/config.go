package redis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/communityhub/platform/cache"
)

// Connection defaults applied to zero-valued Config fields.
const (
	DefaultPort                 = 6379
	DefaultPoolSize             = 10
	DefaultConnectTimeout       = 10 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectBaseDelay   = 100 * time.Millisecond
	DefaultReconnectMaxDelay    = 3 * time.Second
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the resolved connection configuration. It is built by the caller
// (see config.CacheConfig) and never read from the environment here.
type Config struct {
	// URL is a redis:// or rediss:// connection URL. When set it takes precedence over
	// Host, Port, Password and Database.
	URL string `validate:"omitempty,url"`

	// Host is the server hostname or IP address. Required when URL is empty.
	Host string `validate:"required_without=URL"`

	// Port is the server port (default: 6379).
	Port int `validate:"gte=0,lte=65535"`

	// Password for authentication (optional).
	Password string //nolint:gosec // G117 - config field, loaded from env/vault

	// Database index, 0-15.
	Database int `validate:"gte=0,lte=15"`

	// PoolSize is the maximum number of socket connections (default: 10).
	PoolSize int `validate:"gte=0"`

	// ConnectTimeout bounds dialing and each liveness probe (default: 10s).
	ConnectTimeout time.Duration `validate:"gte=0"`

	// ReadTimeout and WriteTimeout are socket timeouts; zero uses the client defaults.
	ReadTimeout  time.Duration `validate:"gte=-1"`
	WriteTimeout time.Duration `validate:"gte=-1"`

	// MaxRetries is the per-command retry count of the client; -1 disables retries.
	MaxRetries int `validate:"gte=-1"`

	// LazyConnect defers the first connect until the first command.
	LazyConnect bool

	// MaxReconnectAttempts caps reconnect attempts after a failure before the
	// connection enters StateFailed (default: 5).
	MaxReconnectAttempts int `validate:"gte=0"`

	// ReconnectBaseDelay and ReconnectMaxDelay shape the backoff:
	// delay = min(attempt * ReconnectBaseDelay, ReconnectMaxDelay).
	ReconnectBaseDelay time.Duration `validate:"gte=0"`
	ReconnectMaxDelay  time.Duration `validate:"gte=0"`

	// HealthCheckInterval enables a periodic liveness probe that detects silent drops.
	// Zero disables it.
	HealthCheckInterval time.Duration `validate:"gte=0"`
}

// Validate performs fail-fast validation of the configuration and fills defaults.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return cache.NewConfigError("redis."+strings.ToLower(fe.Field()), validationMessage(fe), err)
		}
		return cache.NewConfigError("redis", "invalid configuration", err)
	}

	if c.URL != "" {
		if _, err := redis.ParseURL(c.URL); err != nil {
			return cache.NewConfigError("redis.url", "unparseable connection url", err)
		}
	}

	c.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
}

// Address returns the server address in "host:port" format.
func (c *Config) Address() string {
	if c.URL != "" {
		if opts, err := redis.ParseURL(c.URL); err == nil {
			return opts.Addr
		}
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// clientOptions builds go-redis options from the configuration.
func (c *Config) clientOptions() (*redis.Options, error) {
	opts := &redis.Options{
		Addr:     c.Address(),
		Password: c.Password,
		DB:       c.Database,
	}
	if c.URL != "" {
		parsed, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, cache.NewConfigError("redis.url", "unparseable connection url", err)
		}
		opts = parsed
	}

	opts.PoolSize = c.PoolSize
	opts.DialTimeout = c.ConnectTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.WriteTimeout = c.WriteTimeout
	opts.MaxRetries = c.MaxRetries
	return opts, nil
}

// reconnectDelay returns min(attempt*base, limit).
func reconnectDelay(attempt int, base, limit time.Duration) time.Duration {
	d := time.Duration(attempt) * base
	if d > limit {
		return limit
	}
	return d
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_without":
		return "host is required when url is empty"
	case "url":
		return "must be a valid url"
	case "gte", "lte":
		return fmt.Sprintf("value %v out of range (%s %s)", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
