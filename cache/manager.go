package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/communityhub/platform/cache/internal/tracking"
	"github.com/communityhub/platform/logger"
)

// ManagerConfig configures one namespaced Manager.
type ManagerConfig struct {
	Name       string        // Diagnostic name, also used as the metrics namespace
	Prefix     string        // Namespace prepended to every logical key
	DefaultTTL time.Duration // Lifetime used when a call passes no positive TTL
}

// Manager is a namespaced, TTL-aware cache over a Store.
//
// Every method degrades store failures to soft results and logs them: connection-level
// failures at error level, transient failures at warn level. Tag registration is a
// separate round trip from the value write and is best-effort; see InvalidateByTags.
type Manager struct {
	store      Store
	log        logger.Logger
	name       string
	prefix     string
	defaultTTL time.Duration
	stats      statsCounter
	now        func() time.Time

	unregisterMetrics func()
	closeOnce         sync.Once
}

// NewManager creates a Manager over store. A non-positive DefaultTTL is replaced by DefaultTTL.
func NewManager(store Store, log logger.Logger, cfg ManagerConfig) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.Name == "" {
		cfg.Name = DefaultManagerName
	}

	m := &Manager{
		store:      store,
		name:       cfg.Name,
		prefix:     cfg.Prefix,
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
	}
	m.log = log.WithFields(map[string]any{
		"component": "cache",
		"cache":     cfg.Name,
	})
	m.unregisterMetrics = tracking.RegisterManagerMetrics(func() tracking.ManagerStats {
		s := m.stats.snapshot()
		return tracking.ManagerStats{Hits: s.Hits, Misses: s.Misses, Sets: s.Sets, Deletes: s.Deletes}
	}, cfg.Name)

	return m
}

// Name returns the diagnostic name of the Manager.
func (m *Manager) Name() string { return m.name }

// Prefix returns the namespace prefix.
func (m *Manager) Prefix() string { return m.prefix }

// DefaultTTL returns the lifetime applied when no positive TTL is given.
func (m *Manager) DefaultTTL() time.Duration { return m.defaultTTL }

// Key returns the full store key for a logical key.
func (m *Manager) Key(key string, opts ...Option) string {
	return m.buildKey(key, collectOptions(opts))
}

// Close releases the Manager's metric registrations. The Store is not closed.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unregisterMetrics != nil {
			m.unregisterMetrics()
		}
	})
}

// Set stores value under key wrapped in an envelope, replacing any previous entry.
// With Raw() the value's plain string form is stored instead. With WithTags(...) the key is
// added to each tag index after the value write; a tag failure is logged and reported as false
// even though the value itself was written.
func (m *Manager) Set(ctx context.Context, key string, value any, opts ...Option) bool {
	o := collectOptions(opts)
	fullKey := m.buildKey(key, o)
	ttl := m.resolveTTL(o.ttl)

	var payload any
	if o.raw {
		payload = rawString(value)
	} else {
		data, err := encodeEntry(value, ttl, o.tags, m.now())
		if err != nil {
			m.logFailure(tracking.OpSet, fullKey, err)
			return false
		}
		payload = data
	}

	start := time.Now()
	err := m.store.Set(ctx, fullKey, payload, ttl)
	tracking.RecordCacheOperation(ctx, tracking.OpSet, time.Since(start), false, err, m.name)
	if err != nil {
		m.logFailure(tracking.OpSet, fullKey, err)
		return false
	}
	m.stats.set()

	if len(o.tags) > 0 {
		if err := m.registerTags(ctx, fullKey, o.tags, ttl); err != nil {
			m.logFailure("tag", fullKey, err)
			return false
		}
	}
	return true
}

// Get reads key into dest, which must be a non-nil pointer.
// Returns false on a miss, on a store failure, or when the stored envelope cannot be decoded.
// A corrupt envelope is deleted so the next read is a clean miss.
func (m *Manager) Get(ctx context.Context, key string, dest any, opts ...Option) bool {
	return m.lookup(ctx, tracking.OpGet, key, dest, opts)
}

// lookup implements Get, recording the read under op.
func (m *Manager) lookup(ctx context.Context, op, key string, dest any, opts []Option) bool {
	o := collectOptions(opts)
	fullKey := m.buildKey(key, o)

	start := time.Now()
	raw, err := m.store.Get(ctx, fullKey)
	if errors.Is(err, ErrNotFound) {
		tracking.RecordCacheOperation(ctx, op, time.Since(start), false, nil, m.name)
		m.stats.miss()
		return false
	}
	tracking.RecordCacheOperation(ctx, op, time.Since(start), err == nil, err, m.name)
	if err != nil {
		m.logFailure(op, fullKey, err)
		return false
	}
	m.stats.hit()

	if o.raw {
		if err := assignRaw(raw, dest); err != nil {
			m.logFailure(op, fullKey, err)
			return false
		}
		return true
	}

	if _, err := decodeEntry([]byte(raw), dest); err != nil {
		if errors.Is(err, ErrCorruptEntry) {
			m.log.Error().Err(err).Str("key", fullKey).Msg("Discarding corrupt cache entry")
			if _, delErr := m.store.Del(ctx, fullKey); delErr != nil {
				m.logFailure(tracking.OpDelete, fullKey, delErr)
			}
			return false
		}
		m.log.Warn().Err(err).Str("key", fullKey).Msg("Cache entry type mismatch")
		return false
	}
	return true
}

// Delete removes key. Returns true when an entry was removed.
func (m *Manager) Delete(ctx context.Context, key string, opts ...Option) bool {
	fullKey := m.buildKey(key, collectOptions(opts))

	start := time.Now()
	n, err := m.store.Del(ctx, fullKey)
	tracking.RecordCacheOperation(ctx, tracking.OpDelete, time.Since(start), false, err, m.name)
	if err != nil {
		m.logFailure(tracking.OpDelete, fullKey, err)
		return false
	}
	m.stats.deleted(n)
	return n > 0
}

// Exists reports whether key is present.
func (m *Manager) Exists(ctx context.Context, key string, opts ...Option) bool {
	fullKey := m.buildKey(key, collectOptions(opts))

	n, err := m.store.Exists(ctx, fullKey)
	if err != nil {
		m.logFailure("exists", fullKey, err)
		return false
	}
	return n > 0
}

// Expire resets the lifetime of key. A non-positive ttl applies the default.
func (m *Manager) Expire(ctx context.Context, key string, ttl time.Duration, opts ...Option) bool {
	fullKey := m.buildKey(key, collectOptions(opts))

	ok, err := m.store.Expire(ctx, fullKey, m.resolveTTL(ttl))
	if err != nil {
		m.logFailure("expire", fullKey, err)
		return false
	}
	return ok
}

// GetTTL returns the remaining lifetime of key, NoExpiryTTL for persistent keys and
// KeyMissingTTL for absent keys or store failures.
func (m *Manager) GetTTL(ctx context.Context, key string, opts ...Option) time.Duration {
	fullKey := m.buildKey(key, collectOptions(opts))

	ttl, err := m.store.TTL(ctx, fullKey)
	if err != nil {
		m.logFailure("ttl", fullKey, err)
		return KeyMissingTTL
	}
	return ttl
}

// Stats returns a snapshot of the usage counters.
func (m *Manager) Stats() Stats {
	return m.stats.snapshot()
}

// ResetStats zeroes the usage counters.
func (m *Manager) ResetStats() {
	prev := m.stats.snapshot()
	m.stats.reset()
	m.log.Debug().
		Int64("hits", prev.Hits).
		Int64("misses", prev.Misses).
		Float64("hit_rate", prev.HitRate).
		Msg("Cache stats reset")
}

// Info aggregates stats, store memory usage, the namespace key count and health.
func (m *Manager) Info(ctx context.Context) Info {
	info := Info{
		Name:    m.name,
		Prefix:  m.prefix,
		Stats:   m.stats.snapshot(),
		Healthy: m.store.IsHealthy(ctx),
	}

	if text, err := m.store.Info(ctx, "memory"); err != nil {
		m.log.Debug().Err(err).Msg("Store memory info unavailable")
	} else {
		info.Memory = usedMemory(text)
	}

	if keys, err := m.store.Keys(ctx, m.prefix+"*"); err != nil {
		m.logFailure("keys", m.prefix+"*", err)
	} else {
		info.KeyCount = len(keys)
	}

	return info
}

func (m *Manager) buildKey(key string, o options) string {
	if o.noPrefix {
		return key
	}
	return m.prefix + key
}

func (m *Manager) tagKey(tag string) string {
	return m.prefix + TagKeyPrefix + tag
}

func (m *Manager) resolveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return m.defaultTTL
	}
	return ttl
}

// registerTags adds fullKey to each tag index and extends the index TTL to at least ttl.
// An index is never shortened, so it expires with its longest-lived member.
func (m *Manager) registerTags(ctx context.Context, fullKey string, tags []string, ttl time.Duration) error {
	for _, tag := range tags {
		tagKey := m.tagKey(tag)
		if _, err := m.store.SAdd(ctx, tagKey, fullKey); err != nil {
			return NewOperationError("tag", tagKey, err)
		}

		remaining, err := m.store.TTL(ctx, tagKey)
		if err != nil {
			return NewOperationError("tag", tagKey, err)
		}
		if remaining >= ttl {
			continue
		}
		if _, err := m.store.Expire(ctx, tagKey, ttl); err != nil {
			return NewOperationError("tag", tagKey, err)
		}
	}
	return nil
}

func (m *Manager) logFailure(op, key string, err error) {
	event := m.log.Warn()
	if IsConnectionError(err) {
		event = m.log.Error()
	}
	event.Err(err).Str("op", op).Str("key", key).Msg("Cache operation failed")
}
