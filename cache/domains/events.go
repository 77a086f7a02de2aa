package domains

import (
	"context"
	"time"

	"github.com/communityhub/platform/cache"
)

// Event tags.
const (
	TagEvents    = "events"
	TagEventList = "event-list"
)

const eventListTTL = 10 * time.Minute

// Event is the cached projection of a community event.
type Event struct {
	ID        int64     `cbor:"id" json:"id"`
	Title     string    `cbor:"title,omitempty" json:"title,omitempty"`
	Category  string    `cbor:"category,omitempty" json:"category,omitempty"`
	Venue     string    `cbor:"venue,omitempty" json:"venue,omitempty"`
	Online    bool      `cbor:"online,omitempty" json:"online,omitempty"`
	Capacity  int       `cbor:"capacity,omitempty" json:"capacity,omitempty"`
	Attendees int       `cbor:"attendees,omitempty" json:"attendees,omitempty"`
	StartsAt  time.Time `cbor:"startsAt,omitempty" json:"startsAt,omitzero"`
	EndsAt    time.Time `cbor:"endsAt,omitempty" json:"endsAt,omitzero"`
}

// EventFilter describes an event listing query.
type EventFilter struct {
	Query    string `cbor:"q,omitempty" json:"q,omitempty"`
	Category string `cbor:"category,omitempty" json:"category,omitempty"`
	From     string `cbor:"from,omitempty" json:"from,omitempty"`
	To       string `cbor:"to,omitempty" json:"to,omitempty"`
	Online   *bool  `cbor:"online,omitempty" json:"online,omitempty"`
	Page     int    `cbor:"page,omitempty" json:"page,omitempty"`
	Limit    int    `cbor:"limit,omitempty" json:"limit,omitempty"`
}

// Events caches event listings and single events.
type Events struct {
	m *cache.Manager
}

// NewEvents wraps m, which should be configured with EventsConfig.
func NewEvents(m *cache.Manager) *Events {
	return &Events{m: m}
}

// Manager returns the underlying manager.
func (e *Events) Manager() *cache.Manager { return e.m }

// ListKey returns the logical key a listing for filter is stored under.
func (e *Events) ListKey(filter EventFilter) string {
	return key("list", Fingerprint(filter))
}

// CacheEventList stores the result page of a listing query.
func (e *Events) CacheEventList(ctx context.Context, filter EventFilter, events []Event) bool {
	return e.m.Set(ctx, e.ListKey(filter), events,
		cache.WithTTL(eventListTTL),
		cache.WithTags(TagEvents, TagEventList),
	)
}

// GetCachedEventList returns a previously cached listing for filter.
func (e *Events) GetCachedEventList(ctx context.Context, filter EventFilter) ([]Event, bool) {
	return cache.Get[[]Event](ctx, e.m, e.ListKey(filter))
}

// CacheEvent stores a single event for the domain default TTL.
func (e *Events) CacheEvent(ctx context.Context, event Event) bool {
	id := formatID(event.ID)
	return e.m.Set(ctx, key("event", id), event, cache.WithTags(TagEvents, idTag("event", id)))
}

// GetCachedEvent returns the cached event with the given id.
func (e *Events) GetCachedEvent(ctx context.Context, id int64) (Event, bool) {
	return cache.Get[Event](ctx, e.m, key("event", formatID(id)))
}

// InvalidateEvent drops the cached event with the given id and every cached listing,
// since attendance and schedule changes show up in listings too.
func (e *Events) InvalidateEvent(ctx context.Context, id int64) int {
	return e.m.InvalidateByTags(ctx, idTag("event", formatID(id)), TagEventList)
}

// InvalidateEventCache drops every entry of the events domain.
func (e *Events) InvalidateEventCache(ctx context.Context) int {
	return e.m.InvalidateByTags(ctx, TagEvents)
}
