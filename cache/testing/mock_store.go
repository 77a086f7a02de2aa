package testing

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/communityhub/platform/cache"
)

// Operation names accepted by WithFailure, OperationCount and the assertion helpers.
const (
	OpGet      = "Get"
	OpSet      = "Set"
	OpDel      = "Del"
	OpExists   = "Exists"
	OpExpire   = "Expire"
	OpTTL      = "TTL"
	OpKeys     = "Keys"
	OpSAdd     = "SAdd"
	OpSMembers = "SMembers"
	OpInfo     = "Info"
	OpHealth   = "IsHealthy"
)

var errWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

var allOperations = []string{OpGet, OpSet, OpDel, OpExists, OpExpire, OpTTL, OpKeys, OpSAdd, OpSMembers, OpInfo, OpHealth}

// MockStore is an in-memory cache.Store for testing.
// It keeps string values and sets in one keyspace with per-key expiry, matches key patterns
// with path.Match glob semantics, and can inject failures per operation.
//
// MockStore is thread-safe and tracks all operations for assertion purposes.
//
// Example usage:
//
//	store := NewMockStore()
//	mgr := cache.NewManager(store, log, cache.ManagerConfig{Prefix: "app:"})
//	mgr.Set(ctx, "k", value)
//	AssertKeyExists(t, store, "app:k")
type MockStore struct {
	mu      sync.Mutex
	strings map[string]string
	sets    map[string]map[string]struct{}
	expiry  map[string]time.Time
	now     time.Time
	delay   time.Duration
	errs    map[string]error
	healthy bool
	info    string

	calls map[string]*atomic.Int64
}

var _ cache.Store = (*MockStore)(nil)

// NewMockStore creates an empty, healthy MockStore whose clock starts at the current time.
func NewMockStore() *MockStore {
	m := &MockStore{
		strings: make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		expiry:  make(map[string]time.Time),
		now:     time.Now(),
		errs:    make(map[string]error),
		healthy: true,
		info:    "# Memory\r\nused_memory:1048576\r\nused_memory_human:1.00M\r\n",
		calls:   make(map[string]*atomic.Int64, len(allOperations)),
	}
	for _, op := range allOperations {
		m.calls[op] = &atomic.Int64{}
	}
	return m
}

// Configuration methods (fluent API)

// WithDelay delays every operation, honouring context cancellation.
func (m *MockStore) WithDelay(delay time.Duration) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
	return m
}

// WithFailure makes operation op return err until cleared with a nil err.
func (m *MockStore) WithFailure(op string, err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
	} else {
		m.errs[op] = err
	}
	return m
}

// WithAllFailing makes every operation return err, simulating an outage.
func (m *MockStore) WithAllFailing(err error) *MockStore {
	for _, op := range allOperations {
		m.WithFailure(op, err)
	}
	return m.WithHealthy(err == nil)
}

// WithHealthy sets the IsHealthy result.
func (m *MockStore) WithHealthy(healthy bool) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// WithInfo sets the reply returned by Info.
func (m *MockStore) WithInfo(info string) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.info = info
	return m
}

// Advance moves the store clock forward, expiring keys whose TTL elapsed.
func (m *MockStore) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// cache.Store implementation

// Get returns the string value of key or cache.ErrNotFound.
func (m *MockStore) Get(ctx context.Context, key string) (string, error) {
	if err := m.begin(ctx, OpGet); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	v, ok := m.strings[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

// Set stores value under key. A positive ttl sets an expiry.
func (m *MockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := m.begin(ctx, OpSet); err != nil {
		return err
	}
	if ttl < 0 {
		return cache.NewOperationError("set", key, cache.ErrInvalidTTL)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	delete(m.sets, key)
	m.strings[key] = s
	if ttl > 0 {
		m.expiry[key] = m.now.Add(ttl)
	} else {
		delete(m.expiry, key)
	}
	return nil
}

// Del removes keys and returns how many existed.
func (m *MockStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := m.begin(ctx, OpDel); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, key := range keys {
		m.expireLocked(key)
		if m.existsLocked(key) {
			n++
		}
		m.removeLocked(key)
	}
	return n, nil
}

// Exists returns how many of keys exist.
func (m *MockStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	if err := m.begin(ctx, OpExists); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, key := range keys {
		m.expireLocked(key)
		if m.existsLocked(key) {
			n++
		}
	}
	return n, nil
}

// Expire sets the lifetime of key. Returns false when the key does not exist.
func (m *MockStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := m.begin(ctx, OpExpire); err != nil {
		return false, err
	}
	if ttl < 0 {
		return false, cache.NewOperationError("expire", key, cache.ErrInvalidTTL)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	if !m.existsLocked(key) {
		return false, nil
	}
	if ttl == 0 {
		m.removeLocked(key)
		return true, nil
	}
	m.expiry[key] = m.now.Add(ttl)
	return true, nil
}

// TTL returns the remaining lifetime of key, cache.NoExpiryTTL or cache.KeyMissingTTL.
func (m *MockStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := m.begin(ctx, OpTTL); err != nil {
		return cache.KeyMissingTTL, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	if !m.existsLocked(key) {
		return cache.KeyMissingTTL, nil
	}
	deadline, ok := m.expiry[key]
	if !ok {
		return cache.NoExpiryTTL, nil
	}
	return deadline.Sub(m.now), nil
}

// Keys returns the live keys matching a glob pattern, sorted.
func (m *MockStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := m.begin(ctx, OpKeys); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for _, key := range m.allKeysLocked() {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// SAdd adds members to the set at key and returns how many were new.
func (m *MockStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := m.begin(ctx, OpSAdd); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	if _, isString := m.strings[key]; isString {
		return 0, errWrongType
	}
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	var n int64
	for _, member := range members {
		if _, dup := set[member]; !dup {
			set[member] = struct{}{}
			n++
		}
	}
	return n, nil
}

// SMembers returns the members of the set at key, sorted.
func (m *MockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := m.begin(ctx, OpSMembers); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

// Info returns the configured INFO reply.
func (m *MockStore) Info(ctx context.Context, _ ...string) (string, error) {
	if err := m.begin(ctx, OpInfo); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, nil
}

// IsHealthy returns the configured health.
func (m *MockStore) IsHealthy(ctx context.Context) bool {
	if err := m.begin(ctx, OpHealth); err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// Test utility methods

// OperationCount returns the number of times op was called, failed calls included.
func (m *MockStore) OperationCount(op string) int64 {
	if c, ok := m.calls[op]; ok {
		return c.Load()
	}
	return 0
}

// OperationCounts returns every operation count, for debugging.
func (m *MockStore) OperationCounts() map[string]int64 {
	counts := make(map[string]int64, len(m.calls))
	for op, c := range m.calls {
		counts[op] = c.Load()
	}
	return counts
}

// ResetCounters zeroes all operation counters.
func (m *MockStore) ResetCounters() {
	for _, c := range m.calls {
		c.Store(0)
	}
}

// Has reports whether key holds a live value or set.
func (m *MockStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	return m.existsLocked(key)
}

// Value returns the raw string stored at key.
func (m *MockStore) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	v, ok := m.strings[key]
	return v, ok
}

// Members returns the sorted members of the set at key.
func (m *MockStore) Members(key string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key)
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// Put stores a raw string without counting an operation, e.g. to plant corrupt entries.
func (m *MockStore) Put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, key)
	m.strings[key] = value
	delete(m.expiry, key)
}

// AllKeys returns every live key, sorted.
func (m *MockStore) AllKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allKeysLocked()
}

// Clear removes every key.
func (m *MockStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings = make(map[string]string)
	m.sets = make(map[string]map[string]struct{})
	m.expiry = make(map[string]time.Time)
}

// Dump returns a formatted listing of the store contents for debugging.
func (m *MockStore) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	for _, key := range m.allKeysLocked() {
		ttl := "no expiry"
		if deadline, ok := m.expiry[key]; ok {
			ttl = deadline.Sub(m.now).String()
		}
		if v, ok := m.strings[key]; ok {
			fmt.Fprintf(&b, "%s (%s): %d bytes\n", key, ttl, len(v))
			continue
		}
		fmt.Fprintf(&b, "%s (%s): set of %d\n", key, ttl, len(m.sets[key]))
	}
	return b.String()
}

func (m *MockStore) begin(ctx context.Context, op string) error {
	m.calls[op].Add(1)

	m.mu.Lock()
	delay, err := m.delay, m.errs[op]
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return err
}

func (m *MockStore) expireLocked(key string) {
	if deadline, ok := m.expiry[key]; ok && !m.now.Before(deadline) {
		m.removeLocked(key)
	}
}

func (m *MockStore) existsLocked(key string) bool {
	if _, ok := m.strings[key]; ok {
		return true
	}
	_, ok := m.sets[key]
	return ok
}

func (m *MockStore) removeLocked(key string) {
	delete(m.strings, key)
	delete(m.sets, key)
	delete(m.expiry, key)
}

func (m *MockStore) allKeysLocked() []string {
	keys := make([]string, 0, len(m.strings)+len(m.sets))
	for key := range m.strings {
		keys = append(keys, key)
	}
	for key := range m.sets {
		keys = append(keys, key)
	}
	live := keys[:0]
	for _, key := range keys {
		m.expireLocked(key)
		if m.existsLocked(key) {
			live = append(live, key)
		}
	}
	sort.Strings(live)
	return live
}
