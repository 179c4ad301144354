// Package types defines the shared cache data model: entries, tiers and
// per-tier TTL defaults with proper tenant isolation.
package types

import (
	"time"

	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// Tier is a named cache bucket with its own default time-to-live, used to
// separate frequently-changing data from rarely-changing data.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// DefaultTTL returns the configured default TTL for a tier. Unknown tiers
// fall back to the warm default.
func (t Tier) DefaultTTL() time.Duration {
	switch t {
	case TierHot:
		return config.HotTierTTL
	case TierWarm:
		return config.WarmTierTTL
	case TierCold:
		return config.ColdTierTTL
	default:
		return config.WarmTierTTL
	}
}

// TenantTagPrefix namespaces the implicit per-tenant tag.
const TenantTagPrefix = "tenant:"

// TenantTag returns the implicit tag attached to every entry that belongs to
// a tenant, so invalidation by tenant needs only the tag index.
func TenantTag(tenantID string) string {
	return TenantTagPrefix + tenantID
}

// Entry is a single cache entry. Immutable once stored; a Set with the same
// key replaces the whole entry.
type Entry struct {
	Key       string        `json:"key"`
	Value     any           `json:"value"`
	Tier      Tier          `json:"tier"`
	TTL       time.Duration `json:"ttl"`
	Tags      []string      `json:"tags,omitempty"`
	TenantID  string        `json:"tenantId,omitempty"`
	Pattern   string        `json:"pattern,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Expired reports whether the entry's TTL has elapsed.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// StoreStats is a snapshot of store-level counters.
type StoreStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// EvictTiming controls when a registered eviction rule runs relative to the
// wrapped operation.
type EvictTiming string

const (
	EvictBefore EvictTiming = "before"
	EvictAfter  EvictTiming = "after"
)
