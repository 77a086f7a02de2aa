//go:build integration

package containers

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	cacheredis "github.com/communityhub/platform/cache/redis"
)

const (
	defaultStoreImage   = "redis:7-alpine"
	defaultStoreStartup = time.Minute
	storePort           = "6379/tcp"
)

type storeOptions struct {
	image   string
	startup time.Duration
}

// StoreOption customizes the store container.
type StoreOption func(*storeOptions)

// WithImage runs a different store image, e.g. "redis:6".
func WithImage(image string) StoreOption {
	return func(o *storeOptions) { o.image = image }
}

// WithStartupTimeout bounds how long to wait for the server to accept connections.
func WithStartupTimeout(d time.Duration) StoreOption {
	return func(o *storeOptions) { o.startup = d }
}

// Store is a running store container bound to a test.
type Store struct {
	container *tcredis.RedisContainer
	host      string
	port      int
}

// StartStore starts a store container and terminates it when t finishes. The test is
// skipped when no Docker daemon is reachable and failed when the container cannot start.
func StartStore(ctx context.Context, t *testing.T, opts ...StoreOption) *Store {
	t.Helper()

	o := storeOptions{image: defaultStoreImage, startup: defaultStoreStartup}
	for _, opt := range opts {
		opt(&o)
	}

	if !dockerReachable(ctx) {
		t.Skip("docker unavailable, skipping store integration test")
	}

	container, err := tcredis.Run(ctx, o.image,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(o.startup),
		),
	)
	if err != nil {
		t.Fatalf("start store container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate store container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("store container host: %v", err)
	}
	port, err := container.MappedPort(ctx, storePort)
	if err != nil {
		t.Fatalf("store container port: %v", err)
	}

	t.Logf("store container %s listening on %s:%d", o.image, host, port.Int())
	return &Store{container: container, host: host, port: port.Int()}
}

// Address returns host:port of the running store.
func (s *Store) Address() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Config returns a connection config pointing at the container with reconnect settings
// short enough for tests.
func (s *Store) Config() *cacheredis.Config {
	return &cacheredis.Config{
		Host:                 s.host,
		Port:                 s.port,
		PoolSize:             10,
		ConnectTimeout:       2 * time.Second,
		MaxReconnectAttempts: 30,
		ReconnectBaseDelay:   100 * time.Millisecond,
		ReconnectMaxDelay:    time.Second,
	}
}

// URLConfig is Config expressed through a redis:// connection URL.
func (s *Store) URLConfig(ctx context.Context, t *testing.T) *cacheredis.Config {
	t.Helper()
	url, err := s.container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("store connection string: %v", err)
	}
	cfg := s.Config()
	cfg.URL = url
	cfg.Host = ""
	cfg.Port = 0
	return cfg
}
