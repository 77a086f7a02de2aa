package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityhub/platform/cache"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "valid host", cfg: Config{Host: "localhost"}},
		{name: "valid url", cfg: Config{URL: "redis://:secret@cache.internal:6380/2"}},
		{name: "missing host and url", cfg: Config{}, wantField: "redis.host"},
		{name: "port out of range", cfg: Config{Host: "localhost", Port: 70000}, wantField: "redis.port"},
		{name: "negative database", cfg: Config{Host: "localhost", Database: -1}, wantField: "redis.database"},
		{name: "database above 15", cfg: Config{Host: "localhost", Database: 16}, wantField: "redis.database"},
		{name: "negative pool size", cfg: Config{Host: "localhost", PoolSize: -1}, wantField: "redis.poolsize"},
		{name: "negative reconnect attempts", cfg: Config{Host: "localhost", MaxReconnectAttempts: -1}, wantField: "redis.maxreconnectattempts"},
		{name: "unsupported url scheme", cfg: Config{URL: "http://localhost:6379"}, wantField: "redis.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var cfgErr *cache.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestConfigValidateAppliesDefaults(t *testing.T) {
	cfg := Config{Host: "localhost"}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultPoolSize, cfg.PoolSize)
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.Equal(t, DefaultMaxReconnectAttempts, cfg.MaxReconnectAttempts)
	assert.Equal(t, DefaultReconnectBaseDelay, cfg.ReconnectBaseDelay)
	assert.Equal(t, DefaultReconnectMaxDelay, cfg.ReconnectMaxDelay)
	assert.Zero(t, cfg.HealthCheckInterval)
}

func TestConfigAddress(t *testing.T) {
	t.Run("host and port", func(t *testing.T) {
		cfg := Config{Host: "cache.internal", Port: 6380}
		assert.Equal(t, "cache.internal:6380", cfg.Address())
	})

	t.Run("url takes precedence", func(t *testing.T) {
		cfg := Config{URL: "redis://other:7000/1", Host: "ignored", Port: 1}
		assert.Equal(t, "other:7000", cfg.Address())
	})
}

func TestConfigClientOptions(t *testing.T) {
	cfg := Config{
		URL:            "redis://:pw@cache.internal:6380/3",
		PoolSize:       7,
		ConnectTimeout: time.Second,
		MaxRetries:     -1,
	}
	require.NoError(t, cfg.Validate())

	opts, err := cfg.clientOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, -1, opts.MaxRetries)
}

func TestReconnectDelay(t *testing.T) {
	base := 100 * time.Millisecond
	limit := 3 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 10, want: time.Second},
		{attempt: 30, want: 3 * time.Second},
		{attempt: 100, want: 3 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, reconnectDelay(tt.attempt, base, limit), "attempt %d", tt.attempt)
	}
}
