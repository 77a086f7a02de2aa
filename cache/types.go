// Package cache provides a namespaced, TTL-aware cache manager with tag-based bulk
// invalidation, cache-aside helpers and per-instance usage statistics.
//
// The Manager never talks to the network directly. It issues commands through a Store,
// which in production is the redis.Connection from the cache/redis package:
//
//	conn, err := redis.NewConnection(cfg, log)
//	if err != nil {
//	    return err
//	}
//	jobs := cache.NewManager(conn, log, cache.ManagerConfig{
//	    Name:       "jobs",
//	    Prefix:     "app:jobs:",
//	    DefaultTTL: 30 * time.Minute,
//	})
//
//	jobs.Set(ctx, "list:abc", listings, cache.WithTTL(15*time.Minute), cache.WithTags("jobs", "job-list"))
//	listings, found := cache.Get[[]Job](ctx, jobs, "list:abc")
//	removed := jobs.InvalidateByTags(ctx, "jobs")
//
// Store errors are logged and degraded to soft results (false, miss, 0) so that a cache
// outage never breaks a caller's request path.
package cache

import (
	"context"
	"time"
)

// TTL sentinels returned by Store.TTL and Manager.GetTTL.
const (
	// NoExpiryTTL is reported for keys that exist without an expiry.
	NoExpiryTTL time.Duration = -1
	// KeyMissingTTL is reported for keys that don't exist.
	KeyMissingTTL time.Duration = -2
)

// Store is the subset of remote key-value primitives the Manager depends on.
// Implementations must be safe for concurrent use and must return ErrNotFound from Get
// for absent keys. Operation errors are returned untouched.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	Info(ctx context.Context, sections ...string) (string, error)
	IsHealthy(ctx context.Context) bool
}

// Stats holds process-local usage counters for one Manager.
// HitRate is Hits/(Hits+Misses), or 0 when no lookups were classified yet.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
	HitRate float64 `json:"hitRate"`
}

// Info is a diagnostic snapshot of a Manager and its store.
type Info struct {
	Name     string `json:"name"`
	Prefix   string `json:"prefix"`
	Stats    Stats  `json:"stats"`
	Memory   string `json:"memory"`
	KeyCount int    `json:"keyCount"`
	Healthy  bool   `json:"healthy"`
}

// Factory computes a value on a cache miss.
type Factory[T any] func(ctx context.Context) (T, error)

// SetItem is one element of a Manager.SetMany batch.
type SetItem struct {
	Key     string
	Value   any
	Options []Option
}

// SetResult reports the outcome of one SetMany element.
type SetResult struct {
	Key string
	OK  bool
}

// GetResult reports the outcome of one GetMany element.
type GetResult[T any] struct {
	Key   string
	Value T
	Found bool
}

// WarmItem describes an entry to pre-populate when absent.
type WarmItem struct {
	Key     string
	Factory Factory[any]
	Options []Option
}
