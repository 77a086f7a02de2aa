// Package redis implements the connection manager for the remote key-value store.
//
// A Connection owns one logical connection: it validates configuration, connects lazily or
// eagerly, runs an explicit state machine (disconnected, connecting, connected, reconnecting,
// failed) driven by a supervisor goroutine, and exposes the primitive store verbs. Every verb
// first ensures connectivity; operation errors are returned to the caller untouched.
package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/communityhub/platform/cache"
	"github.com/communityhub/platform/cache/internal/tracking"
	"github.com/communityhub/platform/logger"
)

// Dialer opens network connections to the store. It matches redis.Options.Dialer.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

// StateListener is notified after every state change.
type StateListener func(from, to State)

// Option customizes a Connection.
type Option func(*Connection)

// WithDialer overrides how network connections are opened.
func WithDialer(d Dialer) Option {
	return func(c *Connection) {
		c.dialer = d
	}
}

// WithStateListener registers a listener for state changes.
func WithStateListener(fn StateListener) Option {
	return func(c *Connection) {
		if fn != nil {
			c.listeners = append(c.listeners, fn)
		}
	}
}

// Connection is the single source of truth for the store connection.
// It implements cache.Store.
type Connection struct {
	cfg     *Config
	log     logger.Logger
	address string
	dialer  Dialer

	listenersMu sync.RWMutex
	listeners   []StateListener

	mu       sync.Mutex
	client   *redis.Client
	state    State
	attempts int

	// settled is closed when a connect or reconnect cycle ends and replaced when one begins.
	settled chan struct{}

	drops     chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ cache.Store = (*Connection)(nil)

// NewConnection validates cfg, creates the client and starts the supervisor.
// Unless cfg.LazyConnect is set it also connects, returning the connect error.
func NewConnection(cfg *Config, log logger.Logger, opts ...Option) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Connection{
		cfg:     cfg,
		address: cfg.Address(),
		drops:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
	close(c.settled)
	c.log = log.WithFields(map[string]any{
		"component": "cache.connection",
		"address":   c.address,
	})
	for _, opt := range opts {
		opt(c)
	}

	client, err := c.buildClient()
	if err != nil {
		return nil, err
	}
	c.client = client

	go c.supervise()

	c.log.Debug().
		Bool("lazy", cfg.LazyConnect).
		Int("pool_size", cfg.PoolSize).
		Msg("Store connection created")

	if !cfg.LazyConnect {
		ctx, cancel := context.WithTimeout(context.Background(), c.connectBudget())
		defer cancel()
		if err := c.Connect(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	return c, nil
}

// State returns the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Address returns the store address.
func (c *Connection) Address() string {
	return c.address
}

// OnStateChange registers a listener for state changes. Listeners run synchronously on the
// goroutine that performed the transition and must not block.
func (c *Connection) OnStateChange(fn StateListener) {
	if fn == nil {
		return
	}
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// ReconnectAttempts returns the attempt count of the current or last reconnect cycle.
func (c *Connection) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Connect establishes the connection. It is a no-op when already connected. While another
// connect or reconnect cycle is running it waits for that cycle and reports its outcome.
// After StateFailed or Disconnect a fresh client is created. On failure the call retries with
// capped linear backoff and returns ErrConnectionFailed once MaxReconnectAttempts is exhausted.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		settled := c.settled
		c.mu.Unlock()
		if err := c.awaitSettled(ctx, "connect", settled); err != nil {
			return err
		}
		_, err := c.settledClient("connect")
		return err
	}

	if c.client == nil || c.state == StateFailed {
		if c.client != nil {
			_ = c.client.Close()
		}
		client, err := c.buildClient()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.client = client
	}
	client := c.client
	c.attempts = 0
	from, to, _ := c.applyLocked(eventConnect)
	c.mu.Unlock()
	c.notify(from, to)

	err := c.ping(ctx, client)
	if err == nil {
		if !c.apply(client, eventSucceeded) {
			return cache.NewConnectionError("connect", c.address, cache.ErrNotConnected)
		}
		return nil
	}

	c.log.Warn().Err(err).Msg("Cache store connect attempt failed")
	if !c.apply(client, eventFailed) {
		return cache.NewConnectionError("connect", c.address, cache.ErrNotConnected)
	}
	return c.reconnect(ctx, client, err)
}

// Disconnect tears the connection down and releases the client. It is idempotent.
// Commands issued afterwards fail with ErrClientNotInitialized until Connect is called.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	from, to, _ := c.applyLocked(eventDisconnect)
	c.mu.Unlock()
	c.notify(from, to)

	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return cache.NewConnectionError("disconnect", c.address, err)
	}
	return nil
}

// Close disconnects and stops the supervisor. The Connection cannot be reused afterwards.
func (c *Connection) Close() error {
	err := c.Disconnect()
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
	return err
}

// Ping performs a round-trip liveness check. Failures are reported as false.
func (c *Connection) Ping(ctx context.Context) bool {
	client, err := c.ensure(ctx)
	if err != nil {
		return false
	}
	return c.observe(c.ping(ctx, client)) == nil
}

// IsHealthy reports whether the store answers a liveness check.
func (c *Connection) IsHealthy(ctx context.Context) bool {
	return c.Ping(ctx)
}

// ensure returns a connected client. It connects lazily from StateDisconnected, waits for a
// running connect or reconnect cycle within ctx, and fails fast in StateFailed.
func (c *Connection) ensure(ctx context.Context) (*redis.Client, error) {
	c.mu.Lock()
	client, state, settled := c.client, c.state, c.settled
	c.mu.Unlock()

	if client == nil {
		return nil, cache.NewConnectionError("ensure", c.address, cache.ErrClientNotInitialized)
	}

	switch state {
	case StateConnected:
		return client, nil
	case StateDisconnected:
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c.settledClient("ensure")
	case StateFailed:
		return nil, cache.NewConnectionError("ensure", c.address, cache.ErrConnectionFailed)
	default:
		if err := c.awaitSettled(ctx, "ensure", settled); err != nil {
			return nil, err
		}
		return c.settledClient("ensure")
	}
}

// awaitSettled blocks until the cycle that owns settled ends, ctx is done or the
// Connection is closed.
func (c *Connection) awaitSettled(ctx context.Context, op string, settled <-chan struct{}) error {
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return cache.NewConnectionError(op, c.address, fmt.Errorf("%w: %w", cache.ErrNotConnected, ctx.Err()))
	case <-c.stop:
		return cache.NewConnectionError(op, c.address, cache.ErrClientNotInitialized)
	}
}

// settledClient maps the state left by a finished cycle to a client or an error.
func (c *Connection) settledClient(op string) (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.client == nil:
		return nil, cache.NewConnectionError(op, c.address, cache.ErrClientNotInitialized)
	case c.state == StateConnected:
		return c.client, nil
	case c.state == StateFailed:
		return nil, cache.NewConnectionError(op, c.address, cache.ErrConnectionFailed)
	default:
		return nil, cache.NewConnectionError(op, c.address, cache.ErrNotConnected)
	}
}

// reconnect retries the liveness probe with delay = min(attempt*base, max) until it succeeds
// or MaxReconnectAttempts is reached, in which case the connection enters StateFailed.
func (c *Connection) reconnect(ctx context.Context, client *redis.Client, lastErr error) error {
	maxAttempts := c.cfg.MaxReconnectAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		delay := reconnectDelay(attempt, c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay)
		c.log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("delay", delay).
			Err(lastErr).
			Msg("Reconnecting to cache store")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-c.stop:
			timer.Stop()
			return cache.NewConnectionError("reconnect", c.address, cache.ErrClientNotInitialized)
		case <-ctx.Done():
			timer.Stop()
			c.apply(client, eventExhausted)
			return cache.NewConnectionError("reconnect", c.address, fmt.Errorf("%w: %w", cache.ErrConnectionFailed, ctx.Err()))
		}

		lastErr = c.ping(ctx, client)
		c.mu.Lock()
		c.attempts = attempt
		c.mu.Unlock()
		tracking.RecordReconnectAttempt(ctx, c.address, lastErr == nil)

		if lastErr == nil {
			if !c.apply(client, eventSucceeded) {
				return cache.NewConnectionError("reconnect", c.address, cache.ErrNotConnected)
			}
			c.log.Info().Int("attempt", attempt).Msg("Reconnected to cache store")
			return nil
		}
		if !c.apply(client, eventFailed) {
			return cache.NewConnectionError("reconnect", c.address, cache.ErrNotConnected)
		}
	}

	c.apply(client, eventExhausted)
	c.log.Error().Err(lastErr).Int("attempts", maxAttempts).Msg("Cache store reconnect budget exhausted")
	return cache.NewConnectionError("reconnect", c.address,
		fmt.Errorf("%w after %d attempts: %w", cache.ErrConnectionFailed, maxAttempts, lastErr))
}

// supervise consumes drop signals and periodic health probes until Close.
func (c *Connection) supervise() {
	defer close(c.done)

	var tick <-chan time.Time
	if c.cfg.HealthCheckInterval > 0 {
		ticker := time.NewTicker(c.cfg.HealthCheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.stop:
			return
		case <-c.drops:
			c.handleDrop()
		case <-tick:
			c.probe()
		}
	}
}

func (c *Connection) probe() {
	c.mu.Lock()
	client, state := c.client, c.state
	c.mu.Unlock()

	if client == nil || state != StateConnected {
		return
	}
	if err := c.ping(context.Background(), client); err != nil {
		c.log.Warn().Err(err).Msg("Cache store health probe failed")
		c.handleDrop()
	}
}

func (c *Connection) handleDrop() {
	c.mu.Lock()
	if c.state != StateConnected || c.client == nil {
		c.mu.Unlock()
		return
	}
	client := c.client
	c.attempts = 0
	from, to, _ := c.applyLocked(eventDropped)
	c.mu.Unlock()
	c.notify(from, to)

	c.log.Warn().Msg("Cache store connection dropped")
	_ = c.reconnect(context.Background(), client, errors.New("connection dropped"))
}

// observe signals the supervisor when err indicates a dropped connection and returns err unchanged.
func (c *Connection) observe(err error) error {
	if isConnectionDrop(err) {
		select {
		case c.drops <- struct{}{}:
		default:
		}
	}
	return err
}

func (c *Connection) ping(ctx context.Context, client *redis.Client) error {
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}
	return client.Ping(ctx).Err()
}

// apply transitions on ev if client is still the active client. It returns false when the
// transition no longer applies, e.g. because Disconnect ran concurrently.
func (c *Connection) apply(client *redis.Client, ev event) bool {
	c.mu.Lock()
	if c.client != client {
		c.mu.Unlock()
		return false
	}
	from, to, err := c.applyLocked(ev)
	c.mu.Unlock()
	if err != nil {
		return false
	}
	c.notify(from, to)
	return true
}

func (c *Connection) applyLocked(ev event) (from, to State, err error) {
	from = c.state
	to, err = transition(from, ev)
	if err != nil {
		c.log.Debug().Err(err).Msg("Ignoring connection state event")
		return from, from, err
	}
	c.state = to
	switch {
	case !from.inCycle() && to.inCycle():
		c.settled = make(chan struct{})
	case from.inCycle() && !to.inCycle():
		close(c.settled)
	}
	return from, to, nil
}

func (c *Connection) notify(from, to State) {
	if from == to {
		return
	}
	c.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("Cache connection state changed")
	tracking.RecordStateTransition(context.Background(), c.address, to.String())

	c.listenersMu.RLock()
	listeners := c.listeners
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(from, to)
	}
}

func (c *Connection) buildClient() (*redis.Client, error) {
	opts, err := c.cfg.clientOptions()
	if err != nil {
		return nil, err
	}
	if c.dialer != nil {
		opts.Dialer = c.dialer
	}
	return redis.NewClient(opts), nil
}

// connectBudget bounds an eager connect: one probe plus every backoff step and probe.
func (c *Connection) connectBudget() time.Duration {
	budget := c.cfg.ConnectTimeout
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		budget += reconnectDelay(attempt, c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay) + c.cfg.ConnectTimeout
	}
	return budget
}

// isConnectionDrop reports whether err means the network connection was lost,
// as opposed to a miss, a server-side error or a caller cancellation.
func isConnectionDrop(err error) bool {
	if err == nil ||
		errors.Is(err, redis.Nil) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
