package domains

import (
	"context"
	"strings"
	"time"

	"github.com/communityhub/platform/cache"
)

// TagSearch tags every search entry; per-index tags are "search:<index>".
const TagSearch = "search"

const searchResultsTTL = 5 * time.Minute

// SearchHit is one ranked document of a search result.
type SearchHit struct {
	ID        string         `cbor:"id" json:"id"`
	Type      string         `cbor:"type,omitempty" json:"type,omitempty"`
	Score     float64        `cbor:"score,omitempty" json:"score,omitempty"`
	Title     string         `cbor:"title,omitempty" json:"title,omitempty"`
	Highlight string         `cbor:"highlight,omitempty" json:"highlight,omitempty"`
	Fields    map[string]any `cbor:"fields,omitempty" json:"fields,omitempty"`
}

// SearchResults is the cached outcome of one search query.
type SearchResults struct {
	Hits   []SearchHit `cbor:"hits" json:"hits"`
	Total  int64       `cbor:"total" json:"total"`
	TookMs int64       `cbor:"tookMs,omitempty" json:"tookMs,omitempty"`
}

// searchQuery is the fingerprinted identity of a search.
type searchQuery struct {
	Query   string         `cbor:"q"`
	Filters map[string]any `cbor:"filters,omitempty"`
}

// Search caches search results per index.
type Search struct {
	m *cache.Manager
}

// NewSearch wraps m, which should be configured with SearchConfig.
func NewSearch(m *cache.Manager) *Search {
	return &Search{m: m}
}

// Manager returns the underlying manager.
func (s *Search) Manager() *cache.Manager { return s.m }

// ResultsKey returns the logical key results of query on index are stored under.
// Queries differing only in letter case or surrounding blanks share a key.
func (s *Search) ResultsKey(index, query string, filters map[string]any) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return key("results", index, Fingerprint(searchQuery{Query: normalized, Filters: filters}))
}

// CacheSearchResults stores results of query on index.
func (s *Search) CacheSearchResults(ctx context.Context, index, query string, filters map[string]any, results SearchResults) bool {
	return s.m.Set(ctx, s.ResultsKey(index, query, filters), results,
		cache.WithTTL(searchResultsTTL),
		cache.WithTags(TagSearch, indexTag(index)),
	)
}

// GetCachedSearchResults returns cached results of query on index.
func (s *Search) GetCachedSearchResults(ctx context.Context, index, query string, filters map[string]any) (SearchResults, bool) {
	return cache.Get[SearchResults](ctx, s.m, s.ResultsKey(index, query, filters))
}

// InvalidateSearchIndex drops the results of every query on index, e.g. after a reindex.
func (s *Search) InvalidateSearchIndex(ctx context.Context, index string) int {
	return s.m.InvalidateByTags(ctx, indexTag(index))
}

// InvalidateSearchCache drops every entry of the search domain.
func (s *Search) InvalidateSearchCache(ctx context.Context) int {
	return s.m.InvalidateByTags(ctx, TagSearch)
}

func indexTag(index string) string {
	return idTag(TagSearch, index)
}
