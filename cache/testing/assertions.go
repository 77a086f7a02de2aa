package testing

import (
	"context"
	"testing"
	"time"

	"github.com/communityhub/platform/cache"
)

// AssertCacheHit asserts that the envelope entry at key can be read through m.
// The read counts towards the Manager statistics.
//
// Example:
//
//	mgr.Set(ctx, "user:123", user)
//	AssertCacheHit(t, mgr, "user:123")
func AssertCacheHit(t *testing.T, m *cache.Manager, key string) {
	t.Helper()

	var v any
	if !m.Get(context.Background(), key, &v) {
		t.Errorf("expected cache hit for key %q in %s", m.Key(key), m.Name())
	}
}

// AssertCacheMiss asserts that key cannot be read through m.
func AssertCacheMiss(t *testing.T, m *cache.Manager, key string) {
	t.Helper()

	var v any
	if m.Get(context.Background(), key, &v) {
		t.Errorf("expected cache miss for key %q in %s, got %v", m.Key(key), m.Name(), v)
	}
}

// AssertStats asserts the hit, miss, set and delete counters of m. HitRate is not compared.
//
// Example:
//
//	AssertStats(t, mgr, cache.Stats{Hits: 1, Misses: 1, Sets: 1})
func AssertStats(t *testing.T, m *cache.Manager, expected cache.Stats) {
	t.Helper()

	actual := m.Stats()
	if actual.Hits != expected.Hits || actual.Misses != expected.Misses ||
		actual.Sets != expected.Sets || actual.Deletes != expected.Deletes {
		t.Errorf("expected stats hits=%d misses=%d sets=%d deletes=%d, got hits=%d misses=%d sets=%d deletes=%d",
			expected.Hits, expected.Misses, expected.Sets, expected.Deletes,
			actual.Hits, actual.Misses, actual.Sets, actual.Deletes)
	}
}

// AssertOperationCount asserts that a store operation was called exactly expected times.
//
// Example:
//
//	AssertOperationCount(t, store, OpGet, 5)
func AssertOperationCount(t *testing.T, store *MockStore, operation string, expected int64) {
	t.Helper()

	if actual := store.OperationCount(operation); actual != expected {
		t.Errorf("expected %d %s operations, got %d", expected, operation, actual)
	}
}

// AssertOperationCountAtLeast asserts that a store operation was called at least minimum times.
func AssertOperationCountAtLeast(t *testing.T, store *MockStore, operation string, minimum int64) {
	t.Helper()

	if actual := store.OperationCount(operation); actual < minimum {
		t.Errorf("expected at least %d %s operations, got %d", minimum, operation, actual)
	}
}

// AssertNoOperations asserts that the store was not used.
func AssertNoOperations(t *testing.T, store *MockStore) {
	t.Helper()

	counts := store.OperationCounts()
	var total int64
	for _, n := range counts {
		total += n
	}
	if total > 0 {
		t.Errorf("expected no store operations, but found %d: %+v", total, counts)
	}
}

// AssertKeyExists asserts that the full store key holds a live value or set.
func AssertKeyExists(t *testing.T, store *MockStore, key string) {
	t.Helper()

	if !store.Has(key) {
		t.Errorf("expected key %q to exist in store\nStore dump:\n%s", key, store.Dump())
	}
}

// AssertKeyNotExists asserts that the full store key is absent or expired.
func AssertKeyNotExists(t *testing.T, store *MockStore, key string) {
	t.Helper()

	if store.Has(key) {
		t.Errorf("expected key %q to be absent from store\nStore dump:\n%s", key, store.Dump())
	}
}

// AssertStoreEmpty asserts that the store holds no live keys.
func AssertStoreEmpty(t *testing.T, store *MockStore) {
	t.Helper()

	if keys := store.AllKeys(); len(keys) > 0 {
		t.Errorf("expected store to be empty, found %d keys: %v", len(keys), keys)
	}
}

// AssertStoreSize asserts the number of live keys, tag indexes included.
func AssertStoreSize(t *testing.T, store *MockStore, expected int) {
	t.Helper()

	if keys := store.AllKeys(); len(keys) != expected {
		t.Errorf("expected %d keys in store, got %d\nKeys: %v", expected, len(keys), keys)
	}
}

// AssertTagged asserts that the tag index of m for tag lists the full key of each logical key.
//
// Example:
//
//	mgr.Set(ctx, "a", v, cache.WithTags("jobs"))
//	AssertTagged(t, store, mgr, "jobs", "a")
func AssertTagged(t *testing.T, store *MockStore, m *cache.Manager, tag string, keys ...string) {
	t.Helper()

	tagKey := m.Prefix() + cache.TagKeyPrefix + tag
	members := make(map[string]struct{})
	for _, member := range store.Members(tagKey) {
		members[member] = struct{}{}
	}
	for _, key := range keys {
		if _, ok := members[m.Key(key)]; !ok {
			t.Errorf("expected %q to be tagged %q, tag index holds %v", m.Key(key), tag, store.Members(tagKey))
		}
	}
}

// AssertTTL asserts the remaining lifetime of a full store key within tolerance.
func AssertTTL(t *testing.T, store *MockStore, key string, expected, tolerance time.Duration) {
	t.Helper()

	actual, err := store.TTL(context.Background(), key)
	if err != nil {
		t.Errorf("failed to read TTL of %q: %v", key, err)
		return
	}
	if diff := actual - expected; diff > tolerance || diff < -tolerance {
		t.Errorf("expected TTL %v (±%v) for %q, got %v", expected, tolerance, key, actual)
	}
}

// ResetStore clears the store contents and operation counters.
func ResetStore(store *MockStore) {
	store.Clear()
	store.ResetCounters()
}
