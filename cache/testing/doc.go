// Package testing provides utilities for testing code built on the cache package.
// It offers an in-memory MockStore and assertion helpers that remove the need for a
// running store server in unit tests.
//
// The primary type is MockStore, which implements cache.Store with a controllable clock,
// per-operation failure injection and operation tracking.
//
// # Basic Usage
//
//	store := testing.NewMockStore()
//	mgr := cache.NewManager(store, log, cache.ManagerConfig{Name: "jobs", Prefix: "app:jobs:"})
//	mgr.Set(ctx, "list:abc", listings, cache.WithTags("jobs"))
//
// # Simulating Expiry and Failures
//
//	store.Advance(16 * time.Minute)                          // expire entries
//	store.WithFailure(testing.OpGet, cache.ErrNotConnected)  // fail reads
//	store.WithAllFailing(cache.ErrConnectionFailed)          // full outage
//
// # Assertions
//
//	AssertCacheHit(t, mgr, "list:abc")
//	AssertTagged(t, store, mgr, "jobs", "list:abc")
//	AssertOperationCount(t, store, testing.OpSet, 1)
//	AssertStats(t, mgr, cache.Stats{Hits: 1, Sets: 1})
//
// For tests requiring real store behavior, use miniredis with cache/redis, or the
// integration-tagged testcontainers helpers in testing/containers.
package testing
