package cache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/communityhub/platform/cache/internal/tracking"
)

// Get reads key from m into a value of type T.
func Get[T any](ctx context.Context, m *Manager, key string, opts ...Option) (T, bool) {
	return lookupAs[T](ctx, m, tracking.OpGet, key, opts)
}

func lookupAs[T any](ctx context.Context, m *Manager, op, key string, opts []Option) (T, bool) {
	var v T
	if !m.lookup(ctx, op, key, &v, opts) {
		var zero T
		return zero, false
	}
	return v, true
}

// GetOrSet returns the cached value for key, or computes it with factory and stores it.
//
// There is no mutual exclusion: concurrent misses on the same key may each run factory and
// each write, with the last write winning. Use it with idempotent factories. A factory error
// is returned as is and nothing is stored.
func GetOrSet[T any](ctx context.Context, m *Manager, key string, factory Factory[T], opts ...Option) (T, error) {
	if v, ok := lookupAs[T](ctx, m, tracking.OpGetOrSet, key, opts); ok {
		return v, nil
	}

	v, err := factory(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	m.Set(ctx, key, v, opts...)
	return v, nil
}

// GetMany reads keys in parallel. Results keep the order of keys.
func GetMany[T any](ctx context.Context, m *Manager, keys []string, opts ...Option) []GetResult[T] {
	results := make([]GetResult[T], len(keys))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			v, found := Get[T](ctx, m, key, opts...)
			results[i] = GetResult[T]{Key: key, Value: v, Found: found}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// SetMany writes items in parallel. Results keep the order of items.
func (m *Manager) SetMany(ctx context.Context, items []SetItem) []SetResult {
	results := make([]SetResult, len(items))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = SetResult{Key: item.Key, OK: m.Set(ctx, item.Key, item.Value, item.Options...)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Warm computes and stores each item whose key is absent, leaving existing entries untouched.
// It returns the number of entries written. Factory failures are logged and skipped.
func (m *Manager) Warm(ctx context.Context, items []WarmItem) int {
	var warmed atomic.Int64

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for _, item := range items {
		g.Go(func() error {
			if m.Exists(ctx, item.Key, item.Options...) {
				return nil
			}
			value, err := item.Factory(ctx)
			if err != nil {
				m.log.Warn().Err(err).Str("key", m.Key(item.Key, item.Options...)).Msg("Cache warm factory failed")
				return nil
			}
			if m.Set(ctx, item.Key, value, item.Options...) {
				warmed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	m.log.Info().Int("requested", len(items)).Int64("warmed", warmed.Load()).Msg("Cache warm completed")
	return int(warmed.Load())
}
