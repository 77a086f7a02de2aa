package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communityhub/platform/cache"
	"github.com/communityhub/platform/cache/domains"
	cachetest "github.com/communityhub/platform/cache/testing"
	"github.com/communityhub/platform/logger"
)

type prefixResolver struct {
	prefix string
	ttl    time.Duration
}

func (p prefixResolver) DomainConfig(base cache.ManagerConfig) cache.ManagerConfig {
	if base.Name == domains.JobsName {
		base.Prefix = p.prefix
		base.DefaultTTL = p.ttl
	}
	return base
}

func newTestLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, "debug")
}

func newTestRegistry(t *testing.T, resolver ConfigResolver) (*Registry, *cachetest.MockStore) {
	t.Helper()
	store := cachetest.NewMockStore()
	reg := NewRegistry(store, newTestLogger(), resolver)
	t.Cleanup(reg.Close)
	return reg, store
}

func TestRegistryBuildsOneManagerPerDomain(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	assert.Equal(t, []string{"default", "events", "jobs", "search", "users"}, reg.Names())

	for _, domain := range AllDomains() {
		m, ok := reg.Get(string(domain))
		require.True(t, ok, "domain %s", domain)
		base, err := BaseConfig(domain)
		require.NoError(t, err)
		assert.Equal(t, base.Prefix, m.Prefix())
		assert.Equal(t, base.DefaultTTL, m.DefaultTTL())
	}

	_, ok := reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistryReturnsSharedInstances(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	first, _ := reg.Get(domains.JobsName)
	second, _ := reg.Get(domains.JobsName)
	assert.Same(t, first, second)
	assert.Same(t, first, reg.Jobs().Manager())

	users, _ := reg.Get(domains.UsersName)
	assert.Same(t, users, reg.Users().Manager())
	events, _ := reg.Get(domains.EventsName)
	assert.Same(t, events, reg.Events().Manager())
	search, _ := reg.Get(domains.SearchName)
	assert.Same(t, search, reg.Search().Manager())
	def, _ := reg.Get(cache.DefaultManagerName)
	assert.Same(t, def, reg.Default())
}

func TestRegistryNamesIsACopy(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)

	names := reg.Names()
	names[0] = "mutated"

	assert.Equal(t, "default", reg.Names()[0])
}

func TestRegistryAppliesResolver(t *testing.T) {
	reg, store := newTestRegistry(t, prefixResolver{prefix: "staging:jobs:", ttl: 5 * time.Minute})

	jobs := reg.Jobs().Manager()
	assert.Equal(t, "staging:jobs:", jobs.Prefix())
	assert.Equal(t, 5*time.Minute, jobs.DefaultTTL())
	assert.Equal(t, "app:users:", reg.Users().Manager().Prefix())

	require.True(t, reg.Jobs().CacheJob(context.Background(), domains.Job{ID: 7, Title: "Engineer"}))
	assert.True(t, store.Has("staging:jobs:job:7"), "keys: %v", store.AllKeys())
}

func TestRegistrySharesStore(t *testing.T) {
	reg, store := newTestRegistry(t, nil)
	ctx := context.Background()

	reg.Default().Set(ctx, "a", 1)
	reg.Users().Manager().Set(ctx, "b", 2)

	assert.True(t, store.Has("app:a"))
	assert.True(t, store.Has("app:users:b"))
}

func TestRegistryCloseIsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	assert.NotPanics(t, func() {
		reg.Close()
		reg.Close()
	})
}

func TestNewCacheManager(t *testing.T) {
	store := cachetest.NewMockStore()

	t.Run("built-in configuration", func(t *testing.T) {
		m, err := NewCacheManager(DomainSearch, store, newTestLogger(), Overrides{})
		require.NoError(t, err)
		defer m.Close()
		assert.Equal(t, domains.SearchName, m.Name())
		assert.Equal(t, "app:search:", m.Prefix())
		assert.Equal(t, 10*time.Minute, m.DefaultTTL())
	})

	t.Run("overrides", func(t *testing.T) {
		m, err := NewCacheManager(DomainUsers, store, newTestLogger(), Overrides{Prefix: "test:users:", DefaultTTL: time.Second})
		require.NoError(t, err)
		defer m.Close()
		assert.Equal(t, "test:users:", m.Prefix())
		assert.Equal(t, time.Second, m.DefaultTTL())
	})

	t.Run("independent of the registry", func(t *testing.T) {
		reg, _ := newTestRegistry(t, nil)
		m, err := NewCacheManager(DomainJobs, store, newTestLogger(), Overrides{})
		require.NoError(t, err)
		defer m.Close()
		assert.NotSame(t, reg.Jobs().Manager(), m)
	})

	t.Run("unknown domain", func(t *testing.T) {
		_, err := NewCacheManager(DomainType("billing"), store, newTestLogger(), Overrides{})
		assert.ErrorIs(t, err, ErrUnknownDomain)
	})
}
