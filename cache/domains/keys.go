// Package domains holds the per-domain cache facades (jobs, users, events, search).
//
// Each facade wraps one *cache.Manager, fixes how keys are derived from domain objects and
// owns the tag vocabulary of its domain. Callers outside a facade must not tag entries of
// that domain themselves; use the facade's Invalidate methods instead.
package domains

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/minio/sha256-simd"

	"github.com/communityhub/platform/cache"
)

// Domain names, also used as registry names and metric namespaces.
const (
	JobsName   = "jobs"
	UsersName  = "users"
	EventsName = "events"
	SearchName = "search"
)

// fingerprintBytes is the digest prefix kept in derived keys (128 bits).
const fingerprintBytes = 16

// JobsConfig returns the default Manager configuration of the jobs domain.
func JobsConfig() cache.ManagerConfig {
	return cache.ManagerConfig{Name: JobsName, Prefix: "app:jobs:", DefaultTTL: 30 * time.Minute}
}

// UsersConfig returns the default Manager configuration of the users domain.
func UsersConfig() cache.ManagerConfig {
	return cache.ManagerConfig{Name: UsersName, Prefix: "app:users:", DefaultTTL: time.Hour}
}

// EventsConfig returns the default Manager configuration of the events domain.
func EventsConfig() cache.ManagerConfig {
	return cache.ManagerConfig{Name: EventsName, Prefix: "app:events:", DefaultTTL: 30 * time.Minute}
}

// SearchConfig returns the default Manager configuration of the search domain.
func SearchConfig() cache.ManagerConfig {
	return cache.ManagerConfig{Name: SearchName, Prefix: "app:search:", DefaultTTL: 10 * time.Minute}
}

// Fingerprint derives a stable, compact key segment from a filter object.
// Equal filters yield equal fingerprints regardless of map iteration order, because the
// filter is encoded as canonical CBOR before hashing.
func Fingerprint(filter any) string {
	data, err := cache.Marshal(filter)
	if err != nil {
		// fmt prints maps with sorted keys, so the fallback stays deterministic.
		data = []byte(fmt.Sprintf("%#v", filter))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// key joins key segments with ':'.
func key(parts ...string) string {
	return strings.Join(parts, ":")
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// idTag builds an entity-scoped tag such as "job:42".
func idTag(entity, id string) string {
	return entity + ":" + id
}
