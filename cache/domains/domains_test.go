package domains

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityhub/platform/cache"
	cacheredis "github.com/communityhub/platform/cache/redis"
	cachetest "github.com/communityhub/platform/cache/testing"
	"github.com/communityhub/platform/logger"
)

func testLogger() logger.Logger {
	return logger.New("disabled", false)
}

func newMockManager(t *testing.T, cfg cache.ManagerConfig) (*cache.Manager, *cachetest.MockStore) {
	t.Helper()

	store := cachetest.NewMockStore()
	mgr := cache.NewManager(store, testLogger(), cfg)
	t.Cleanup(mgr.Close)
	return mgr, store
}

func TestFingerprint(t *testing.T) {
	remote := true

	t.Run("Deterministic", func(t *testing.T) {
		a := Fingerprint(JobFilter{Query: "ml", Remote: &remote})
		b := Fingerprint(JobFilter{Query: "ml", Remote: &remote})
		assert.Equal(t, a, b)
		assert.Len(t, a, 2*fingerprintBytes)
	})

	t.Run("DistinguishesFilters", func(t *testing.T) {
		assert.NotEqual(t, Fingerprint(JobFilter{Query: "ml"}), Fingerprint(JobFilter{Query: "go"}))
		assert.NotEqual(t, Fingerprint(JobFilter{Query: "ml"}), Fingerprint(JobFilter{Query: "ml", Page: 2}))
	})

	t.Run("MapOrderIndependent", func(t *testing.T) {
		a := map[string]any{"city": "Berlin", "remote": true, "level": "senior"}
		b := map[string]any{"level": "senior", "city": "Berlin", "remote": true}
		assert.Equal(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("UnencodableFallsBack", func(t *testing.T) {
		ch := make(chan int)
		assert.Len(t, Fingerprint(ch), 2*fingerprintBytes)
	})
}

func TestDomainConfigs(t *testing.T) {
	tests := []struct {
		cfg    cache.ManagerConfig
		name   string
		prefix string
		ttl    time.Duration
	}{
		{cfg: JobsConfig(), name: "jobs", prefix: "app:jobs:", ttl: 30 * time.Minute},
		{cfg: UsersConfig(), name: "users", prefix: "app:users:", ttl: time.Hour},
		{cfg: EventsConfig(), name: "events", prefix: "app:events:", ttl: 30 * time.Minute},
		{cfg: SearchConfig(), name: "search", prefix: "app:search:", ttl: 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.cfg.Name)
			assert.Equal(t, tt.prefix, tt.cfg.Prefix)
			assert.Equal(t, tt.ttl, tt.cfg.DefaultTTL)
		})
	}
}

// TestJobListEndToEnd runs the job listing flow against miniredis through a real Connection.
func TestJobListEndToEnd(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	conn, err := cacheredis.NewConnection(&cacheredis.Config{
		Host:       mr.Host(),
		Port:       mr.Server().Addr().Port,
		MaxRetries: -1,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	mgr := cache.NewManager(conn, testLogger(), JobsConfig())
	t.Cleanup(mgr.Close)
	jobs := NewJobs(mgr)

	filter := JobFilter{Query: "ml"}
	require.True(t, jobs.CacheJobList(ctx, filter, []Job{{ID: 1}}))

	fullKey := mgr.Key(jobs.ListKey(filter))
	assert.Equal(t, "app:jobs:list:"+Fingerprint(filter), fullKey)
	assert.Equal(t, 900*time.Second, mr.TTL(fullKey))

	for _, tag := range []string{TagJobs, TagJobList} {
		isMember, err := mr.SIsMember("app:jobs:tag:"+tag, fullKey)
		require.NoError(t, err)
		assert.True(t, isMember, "tag %s", tag)
	}

	got, found := jobs.GetCachedJobList(ctx, JobFilter{Query: "ml"})
	require.True(t, found)
	assert.Equal(t, []Job{{ID: 1}}, got)

	assert.Equal(t, 1, jobs.InvalidateJobCache(ctx))

	got, found = jobs.GetCachedJobList(ctx, filter)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	mgr, store := newMockManager(t, JobsConfig())
	jobs := NewJobs(mgr)
	assert.Same(t, mgr, jobs.Manager())

	posted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job := Job{ID: 42, Title: "Go Developer", Company: "Acme", Remote: true, Skills: []string{"go", "redis"}, PostedAt: posted}

	t.Run("SingleJob", func(t *testing.T) {
		require.True(t, jobs.CacheJob(ctx, job))
		cachetest.AssertTTL(t, store, "app:jobs:job:42", 30*time.Minute, time.Second)
		cachetest.AssertTagged(t, store, mgr, "job:42", "job:42")

		got, found := jobs.GetCachedJob(ctx, 42)
		require.True(t, found)
		assert.Equal(t, job, got)

		_, found = jobs.GetCachedJob(ctx, 7)
		assert.False(t, found)
	})

	t.Run("InvalidateJobKeepsLists", func(t *testing.T) {
		filter := JobFilter{Query: "go"}
		require.True(t, jobs.CacheJobList(ctx, filter, []Job{job}))

		assert.Equal(t, 1, jobs.InvalidateJob(ctx, 42))
		_, found := jobs.GetCachedJob(ctx, 42)
		assert.False(t, found)

		_, found = jobs.GetCachedJobList(ctx, filter)
		assert.True(t, found)

		assert.Equal(t, 1, jobs.InvalidateJobLists(ctx))
		_, found = jobs.GetCachedJobList(ctx, filter)
		assert.False(t, found)
	})

	t.Run("DistinctFiltersDistinctEntries", func(t *testing.T) {
		require.True(t, jobs.CacheJobList(ctx, JobFilter{Query: "go", Page: 1}, []Job{{ID: 1}}))
		require.True(t, jobs.CacheJobList(ctx, JobFilter{Query: "go", Page: 2}, []Job{{ID: 2}}))

		page2, found := jobs.GetCachedJobList(ctx, JobFilter{Query: "go", Page: 2})
		require.True(t, found)
		assert.Equal(t, []Job{{ID: 2}}, page2)

		assert.Equal(t, 2, jobs.InvalidateJobCache(ctx))
	})

	t.Run("StoreOutageDegradesToMiss", func(t *testing.T) {
		store.WithAllFailing(cache.ErrNotConnected)
		defer store.WithAllFailing(nil)

		assert.False(t, jobs.CacheJob(ctx, job))
		_, found := jobs.GetCachedJob(ctx, 42)
		assert.False(t, found)
		assert.Zero(t, jobs.InvalidateJobCache(ctx))
	})
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	mgr, store := newMockManager(t, UsersConfig())
	users := NewUsers(mgr)

	profile := UserProfile{ID: "u1", DisplayName: "Ada", Roles: []string{"member"}}
	memberships := []GroupMembership{{GroupID: "g1", GroupName: "Gophers", Role: "owner"}}

	require.True(t, users.CacheUserProfile(ctx, profile))
	require.True(t, users.CacheGroupMemberships(ctx, "u1", memberships))
	require.True(t, users.CacheGroupMemberships(ctx, "u2", nil))

	cachetest.AssertTTL(t, store, "app:users:profile:u1", time.Hour, time.Second)
	cachetest.AssertTTL(t, store, "app:users:memberships:u1", 15*time.Minute, time.Second)
	cachetest.AssertTagged(t, store, mgr, "user:u1", "profile:u1", "memberships:u1")
	cachetest.AssertTagged(t, store, mgr, TagMemberships, "memberships:u1", "memberships:u2")

	got, found := users.GetCachedUserProfile(ctx, "u1")
	require.True(t, found)
	assert.Equal(t, profile, got)

	gotMemberships, found := users.GetCachedGroupMemberships(ctx, "u1")
	require.True(t, found)
	assert.Equal(t, memberships, gotMemberships)

	t.Run("InvalidateMemberships", func(t *testing.T) {
		assert.Equal(t, 2, users.InvalidateMemberships(ctx))
		_, found := users.GetCachedGroupMemberships(ctx, "u1")
		assert.False(t, found)
		_, found = users.GetCachedUserProfile(ctx, "u1")
		assert.True(t, found)
	})

	t.Run("InvalidateUser", func(t *testing.T) {
		require.True(t, users.CacheUserProfile(ctx, UserProfile{ID: "u2"}))

		assert.Equal(t, 1, users.InvalidateUser(ctx, "u1"))
		_, found := users.GetCachedUserProfile(ctx, "u1")
		assert.False(t, found)
		_, found = users.GetCachedUserProfile(ctx, "u2")
		assert.True(t, found)
	})

	t.Run("InvalidateUserCache", func(t *testing.T) {
		assert.Equal(t, 1, users.InvalidateUserCache(ctx))
		_, found := users.GetCachedUserProfile(ctx, "u2")
		assert.False(t, found)
	})
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	mgr, store := newMockManager(t, EventsConfig())
	events := NewEvents(mgr)

	meetup := Event{
		ID:       9,
		Title:    "Gopher Meetup",
		Category: "meetup",
		Capacity: 80,
		StartsAt: time.Date(2026, 11, 5, 18, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 11, 5, 21, 0, 0, 0, time.UTC),
	}
	filter := EventFilter{Category: "meetup", From: "2026-11-01"}

	require.True(t, events.CacheEvent(ctx, meetup))
	require.True(t, events.CacheEventList(ctx, filter, []Event{meetup}))
	cachetest.AssertTTL(t, store, mgr.Key(events.ListKey(filter)), 10*time.Minute, time.Second)

	got, found := events.GetCachedEvent(ctx, 9)
	require.True(t, found)
	assert.Equal(t, meetup, got)

	list, found := events.GetCachedEventList(ctx, filter)
	require.True(t, found)
	assert.Equal(t, []Event{meetup}, list)

	// Changing one event drops it and all listings.
	assert.Equal(t, 2, events.InvalidateEvent(ctx, 9))
	_, found = events.GetCachedEventList(ctx, filter)
	assert.False(t, found)

	require.True(t, events.CacheEvent(ctx, meetup))
	assert.Equal(t, 1, events.InvalidateEventCache(ctx))
	_, found = events.GetCachedEvent(ctx, 9)
	assert.False(t, found)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	mgr, store := newMockManager(t, SearchConfig())
	search := NewSearch(mgr)

	results := SearchResults{
		Hits: []SearchHit{
			{ID: "job-1", Type: "job", Score: 3.5, Title: "ML Engineer", Fields: map[string]any{"city": "Berlin"}},
		},
		Total:  1,
		TookMs: 12,
	}
	filters := map[string]any{"type": "job", "city": "Berlin"}

	t.Run("QueryNormalization", func(t *testing.T) {
		assert.Equal(t,
			search.ResultsKey("jobs", "  Machine Learning ", filters),
			search.ResultsKey("jobs", "machine learning", map[string]any{"city": "Berlin", "type": "job"}),
		)
		assert.NotEqual(t,
			search.ResultsKey("jobs", "machine learning", nil),
			search.ResultsKey("events", "machine learning", nil),
		)
	})

	require.True(t, search.CacheSearchResults(ctx, "jobs", "Machine Learning", filters, results))
	require.True(t, search.CacheSearchResults(ctx, "events", "meetup", nil, SearchResults{Hits: []SearchHit{}}))
	cachetest.AssertTTL(t, store, mgr.Key(search.ResultsKey("jobs", "machine learning", filters)), 5*time.Minute, time.Second)

	got, found := search.GetCachedSearchResults(ctx, "jobs", "machine learning", filters)
	require.True(t, found)
	assert.Equal(t, results, got)

	_, found = search.GetCachedSearchResults(ctx, "jobs", "machine learning", nil)
	assert.False(t, found)

	assert.Equal(t, 1, search.InvalidateSearchIndex(ctx, "jobs"))
	_, found = search.GetCachedSearchResults(ctx, "jobs", "machine learning", filters)
	assert.False(t, found)
	_, found = search.GetCachedSearchResults(ctx, "events", "meetup", nil)
	assert.True(t, found)

	assert.Equal(t, 1, search.InvalidateSearchCache(ctx))
}
