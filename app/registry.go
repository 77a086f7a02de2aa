package app

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/communityhub/platform/cache"
	"github.com/communityhub/platform/cache/domains"
	"github.com/communityhub/platform/logger"
)

// DomainType selects the built-in configuration of a cache manager.
type DomainType string

// Known domains. The value doubles as the registry name.
const (
	DomainJobs    DomainType = domains.JobsName
	DomainUsers   DomainType = domains.UsersName
	DomainEvents  DomainType = domains.EventsName
	DomainSearch  DomainType = domains.SearchName
	DomainDefault DomainType = cache.DefaultManagerName
)

// DefaultPrefix namespaces the default manager.
const DefaultPrefix = "app:"

// ErrUnknownDomain is returned by the factory for a domain it has no configuration for.
var ErrUnknownDomain = errors.New("unknown cache domain")

// AllDomains lists the domains the registry builds, in construction order.
func AllDomains() []DomainType {
	return []DomainType{DomainDefault, DomainJobs, DomainUsers, DomainEvents, DomainSearch}
}

// BaseConfig returns the built-in manager configuration of domain.
func BaseConfig(domain DomainType) (cache.ManagerConfig, error) {
	switch domain {
	case DomainJobs:
		return domains.JobsConfig(), nil
	case DomainUsers:
		return domains.UsersConfig(), nil
	case DomainEvents:
		return domains.EventsConfig(), nil
	case DomainSearch:
		return domains.SearchConfig(), nil
	case DomainDefault:
		return cache.ManagerConfig{Name: cache.DefaultManagerName, Prefix: DefaultPrefix, DefaultTTL: cache.DefaultTTL}, nil
	default:
		return cache.ManagerConfig{}, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
}

// Overrides adjusts a domain's built-in configuration. Zero fields keep the default.
type Overrides struct {
	Prefix     string
	DefaultTTL time.Duration
}

// NewCacheManager builds a fresh Manager for domain that is not shared with the registry.
// Use it where the shared instance's configuration is unsuitable, such as isolated tests.
func NewCacheManager(domain DomainType, store cache.Store, log logger.Logger, overrides Overrides) (*cache.Manager, error) {
	cfg, err := BaseConfig(domain)
	if err != nil {
		return nil, err
	}
	if overrides.Prefix != "" {
		cfg.Prefix = overrides.Prefix
	}
	if overrides.DefaultTTL > 0 {
		cfg.DefaultTTL = overrides.DefaultTTL
	}
	return cache.NewManager(store, log, cfg), nil
}

// ConfigResolver applies deployment overrides to a domain's built-in configuration.
// *config.Config implements it.
type ConfigResolver interface {
	DomainConfig(base cache.ManagerConfig) cache.ManagerConfig
}

// Registry holds one Manager per domain over a single shared store. It is built once at
// startup and passed to the components that need it.
type Registry struct {
	managers map[string]*cache.Manager
	names    []string

	jobs   *domains.Jobs
	users  *domains.Users
	events *domains.Events
	search *domains.Search

	closeOnce sync.Once
}

// NewRegistry builds every domain Manager over store. resolver may be nil to keep the
// built-in configurations.
func NewRegistry(store cache.Store, log logger.Logger, resolver ConfigResolver) *Registry {
	r := &Registry{managers: make(map[string]*cache.Manager)}

	for _, domain := range AllDomains() {
		cfg, _ := BaseConfig(domain)
		if resolver != nil {
			cfg = resolver.DomainConfig(cfg)
		}
		r.managers[cfg.Name] = cache.NewManager(store, log, cfg)
		r.names = append(r.names, cfg.Name)
	}
	sort.Strings(r.names)

	r.jobs = domains.NewJobs(r.managers[domains.JobsName])
	r.users = domains.NewUsers(r.managers[domains.UsersName])
	r.events = domains.NewEvents(r.managers[domains.EventsName])
	r.search = domains.NewSearch(r.managers[domains.SearchName])

	log.Info().Int("managers", len(r.managers)).Msg("Cache registry initialized")
	return r
}

// Get returns the shared Manager registered under name.
func (r *Registry) Get(name string) (*cache.Manager, bool) {
	m, ok := r.managers[name]
	return m, ok
}

// Names returns the registered manager names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Default returns the general-purpose Manager.
func (r *Registry) Default() *cache.Manager { return r.managers[cache.DefaultManagerName] }

// Jobs returns the jobs facade.
func (r *Registry) Jobs() *domains.Jobs { return r.jobs }

// Users returns the users facade.
func (r *Registry) Users() *domains.Users { return r.users }

// Events returns the events facade.
func (r *Registry) Events() *domains.Events { return r.events }

// Search returns the search facade.
func (r *Registry) Search() *domains.Search { return r.search }

// Close releases the metric registrations of every Manager. The shared store is not closed.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		for _, m := range r.managers {
			m.Close()
		}
	})
}
