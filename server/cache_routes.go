package server

import (
	"github.com/communityhub/platform/cache"
)

// CacheRegistry resolves named cache managers for the admin routes.
type CacheRegistry interface {
	Get(name string) (*cache.Manager, bool)
	Names() []string
}

// CacheSummary describes one registered cache manager.
type CacheSummary struct {
	Name       string      `json:"name"`
	Prefix     string      `json:"prefix"`
	DefaultTTL string      `json:"defaultTtl"`
	Stats      cache.Stats `json:"stats"`
}

// CacheNameRequest selects a cache by path parameter.
type CacheNameRequest struct {
	Name string `param:"name" validate:"required"`
}

// InvalidateRequest lists the tags to invalidate in one cache.
type InvalidateRequest struct {
	Name string   `param:"name" json:"-" validate:"required"`
	Tags []string `json:"tags" validate:"required,min=1,dive,cache_tag"`
}

// RemovedResponse reports how many keys an invalidation removed.
type RemovedResponse struct {
	Removed int `json:"removed"`
}

type cacheRoutes struct {
	registry CacheRegistry
}

// RegisterCacheRoutes mounts the cache administration endpoints on r:
//
//	GET    /caches                     list managers with their stats
//	GET    /caches/:name/info          store diagnostics for one manager
//	POST   /caches/:name/invalidate    invalidate by tags
//	DELETE /caches/:name               remove every key in the namespace
//	POST   /caches/:name/stats/reset   zero the usage counters
func RegisterCacheRoutes(hr *HandlerRegistry, r RouteRegistrar, registry CacheRegistry) {
	h := &cacheRoutes{registry: registry}

	GET(hr, r, "/caches", h.list)
	GET(hr, r, "/caches/:name/info", h.info)
	POST(hr, r, "/caches/:name/invalidate", h.invalidate)
	DELETE(hr, r, "/caches/:name", h.clear)
	POST(hr, r, "/caches/:name/stats/reset", h.resetStats)
}

func (h *cacheRoutes) lookup(name string) (*cache.Manager, IAPIError) {
	mgr, ok := h.registry.Get(name)
	if !ok {
		return nil, NewNotFoundError("cache " + name)
	}
	return mgr, nil
}

func (h *cacheRoutes) list(_ struct{}, _ HandlerContext) ([]CacheSummary, IAPIError) {
	names := h.registry.Names()
	out := make([]CacheSummary, 0, len(names))
	for _, name := range names {
		mgr, ok := h.registry.Get(name)
		if !ok {
			continue
		}
		out = append(out, CacheSummary{
			Name:       mgr.Name(),
			Prefix:     mgr.Prefix(),
			DefaultTTL: mgr.DefaultTTL().String(),
			Stats:      mgr.Stats(),
		})
	}
	return out, nil
}

func (h *cacheRoutes) info(req CacheNameRequest, ctx HandlerContext) (cache.Info, IAPIError) {
	mgr, apiErr := h.lookup(req.Name)
	if apiErr != nil {
		return cache.Info{}, apiErr
	}
	return mgr.Info(ctx.Echo.Request().Context()), nil
}

func (h *cacheRoutes) invalidate(req InvalidateRequest, ctx HandlerContext) (RemovedResponse, IAPIError) {
	mgr, apiErr := h.lookup(req.Name)
	if apiErr != nil {
		return RemovedResponse{}, apiErr
	}

	removed := mgr.InvalidateByTags(ctx.Echo.Request().Context(), req.Tags...)
	ctx.Logger.Info().
		Str("cache", mgr.Name()).
		Strs("tags", req.Tags).
		Int("removed", removed).
		Msg("Cache invalidated by tags")
	return RemovedResponse{Removed: removed}, nil
}

func (h *cacheRoutes) clear(req CacheNameRequest, ctx HandlerContext) (RemovedResponse, IAPIError) {
	mgr, apiErr := h.lookup(req.Name)
	if apiErr != nil {
		return RemovedResponse{}, apiErr
	}

	removed := mgr.Clear(ctx.Echo.Request().Context())
	ctx.Logger.Warn().
		Str("cache", mgr.Name()).
		Int("removed", removed).
		Msg("Cache namespace cleared")
	return RemovedResponse{Removed: removed}, nil
}

func (h *cacheRoutes) resetStats(req CacheNameRequest, _ HandlerContext) (NoContentResult, IAPIError) {
	mgr, apiErr := h.lookup(req.Name)
	if apiErr != nil {
		return NoContentResult{}, apiErr
	}
	mgr.ResetStats()
	return NoContent(), nil
}
