package cache

import (
	"context"
	"strings"
	"time"

	"github.com/communityhub/platform/cache/internal/tracking"
)

// DeleteByPattern removes every key matching the glob pattern under the namespace and returns
// how many entries were removed. Matching tag indexes are removed as well but are not counted.
// The cost grows with the number of keys in the store, so it is meant for coarse operations
// such as clearing a namespace.
func (m *Manager) DeleteByPattern(ctx context.Context, pattern string, opts ...Option) int {
	fullPattern := m.buildKey(pattern, collectOptions(opts))

	start := time.Now()
	keys, err := m.store.Keys(ctx, fullPattern)
	if err != nil {
		tracking.RecordCacheOperation(ctx, tracking.OpPattern, time.Since(start), false, err, m.name)
		m.logFailure(tracking.OpPattern, fullPattern, err)
		return 0
	}

	entries, indexes := m.splitTagIndexes(keys)
	removed, err := m.deleteKeys(ctx, entries)
	if err == nil {
		_, err = m.deleteChunked(ctx, indexes)
	}
	tracking.RecordCacheOperation(ctx, tracking.OpPattern, time.Since(start), false, err, m.name)
	if err != nil {
		m.logFailure(tracking.OpPattern, fullPattern, err)
	}

	m.log.Debug().Str("pattern", fullPattern).Int64("removed", removed).Msg("Deleted keys by pattern")
	return int(removed)
}

// Clear removes every key in the namespace, tag indexes included, and returns the number of
// entries removed.
func (m *Manager) Clear(ctx context.Context) int {
	return m.DeleteByPattern(ctx, "*")
}

// InvalidateByTags deletes every entry registered under each tag, then the tag index itself,
// and returns the number of entries removed. Tags are processed in order without rollback:
// if a store call fails, earlier tags stay invalidated and the remaining tags are skipped.
// Index members whose keys already expired are tolerated and simply not counted.
func (m *Manager) InvalidateByTags(ctx context.Context, tags ...string) int {
	start := time.Now()
	var total int64

	for _, tag := range tags {
		tagKey := m.tagKey(tag)

		members, err := m.store.SMembers(ctx, tagKey)
		if err != nil {
			m.finishInvalidation(ctx, start, total, err, tagKey)
			return int(total)
		}

		removed, err := m.deleteKeys(ctx, members)
		total += removed
		if err != nil {
			m.finishInvalidation(ctx, start, total, err, tagKey)
			return int(total)
		}

		if _, err := m.store.Del(ctx, tagKey); err != nil {
			m.finishInvalidation(ctx, start, total, err, tagKey)
			return int(total)
		}
	}

	m.finishInvalidation(ctx, start, total, nil, "")
	return int(total)
}

func (m *Manager) finishInvalidation(ctx context.Context, start time.Time, removed int64, err error, tagKey string) {
	tracking.RecordCacheOperation(ctx, tracking.OpInvalidate, time.Since(start), false, err, m.name)
	if err != nil {
		m.logFailure(tracking.OpInvalidate, tagKey, err)
		return
	}
	m.log.Debug().Int64("removed", removed).Msg("Invalidated cache tags")
}

// deleteKeys removes entry keys in bounded chunks and updates the delete counter.
func (m *Manager) deleteKeys(ctx context.Context, keys []string) (int64, error) {
	removed, err := m.deleteChunked(ctx, keys)
	m.stats.deleted(removed)
	return removed, err
}

func (m *Manager) deleteChunked(ctx context.Context, keys []string) (int64, error) {
	var removed int64
	for start := 0; start < len(keys); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(keys))
		n, err := m.store.Del(ctx, keys[start:end]...)
		removed += n
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// splitTagIndexes separates tag index keys from entry keys.
func (m *Manager) splitTagIndexes(keys []string) (entries, indexes []string) {
	indexPrefix := m.prefix + TagKeyPrefix
	entries = make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, indexPrefix) {
			indexes = append(indexes, key)
			continue
		}
		entries = append(entries, key)
	}
	return entries, indexes
}
