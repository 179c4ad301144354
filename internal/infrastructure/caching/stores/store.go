// Package stores implements the in-memory tiered cache store. Entries carry
// per-entry TTLs, tags for bulk invalidation, and an operation pattern for
// pattern-scoped invalidation. Expired entries are evicted lazily on read
// and by the cleanup worker's periodic sweep.
package stores

import (
	"sync"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
)

// Store is a tenant-aware key/value store with tag and pattern indexes.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*types.Entry

	// tag -> keys and pattern -> keys, maintained in lockstep with entries
	tagIndex     map[string]map[string]struct{}
	patternIndex map[string]map[string]struct{}

	maxEntries int
	stats      types.StoreStats
	logger     *logging.ChanneledLogger
	now        func() time.Time
}

// NewStore creates a store bounded at maxEntries. A maxEntries of zero or
// less means unbounded.
func NewStore(maxEntries int, logger *logging.ChanneledLogger) *Store {
	return &Store{
		entries:      make(map[string]*types.Entry),
		tagIndex:     make(map[string]map[string]struct{}),
		patternIndex: make(map[string]map[string]struct{}),
		maxEntries:   maxEntries,
		logger:       logger,
		now:          time.Now,
	}
}

// Get returns the cached value for key. Expired entries are removed on the
// spot and reported as misses.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists {
		s.stats.Misses++
		return nil, false
	}
	if entry.Expired(s.now()) {
		s.removeLocked(key)
		s.stats.Expired++
		s.stats.Misses++
		return nil, false
	}
	s.stats.Hits++
	return entry.Value, true
}

// Set stores a value. A tenant tag is appended automatically when tenantID
// is known so tenant-wide invalidation can find the entry via the tag index.
// When the store is full, the entry closest to expiry is evicted first.
func (s *Store) Set(key string, value any, tier types.Tier, ttl time.Duration, tags []string, tenantID, pattern string) {
	if ttl <= 0 {
		ttl = tier.DefaultTTL()
	}
	entryTags := make([]string, 0, len(tags)+1)
	entryTags = append(entryTags, tags...)
	if tenantID != "" {
		entryTags = append(entryTags, types.TenantTag(tenantID))
	}

	now := s.now()
	entry := &types.Entry{
		Key:       key,
		Value:     value,
		Tier:      tier,
		TTL:       ttl,
		Tags:      entryTags,
		TenantID:  tenantID,
		Pattern:   pattern,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		s.removeLocked(key)
	} else if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictSoonestExpiringLocked()
	}

	s.entries[key] = entry
	for _, tag := range entryTags {
		s.indexAdd(s.tagIndex, tag, key)
	}
	if pattern != "" {
		s.indexAdd(s.patternIndex, pattern, key)
	}
	s.stats.Sets++
}

// Delete removes a single key. Returns whether it existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		return false
	}
	s.removeLocked(key)
	s.stats.Deletes++
	return true
}

// DeleteByTag removes every entry carrying the tag. Returns the count removed.
func (s *Store) DeleteByTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteIndexedLocked(s.tagIndex, tag)
}

// DeleteByTagForTenant removes entries carrying the tag that belong to the
// tenant, leaving other tenants' entries under the same tag alone.
func (s *Store) DeleteByTagForTenant(tag, tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, exists := s.tagIndex[tag]
	if !exists {
		return 0
	}
	removed := 0
	for key := range keys {
		if entry := s.entries[key]; entry == nil || entry.TenantID != tenantID {
			continue
		}
		s.removeLocked(key)
		s.stats.Deletes++
		removed++
	}
	return removed
}

// DeleteByTenant removes every entry owned by the tenant.
func (s *Store) DeleteByTenant(tenantID string) int {
	return s.DeleteByTag(types.TenantTag(tenantID))
}

// DeleteByPattern removes every entry stored under the operation pattern,
// optionally restricted to a tenant.
func (s *Store) DeleteByPattern(pattern, tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, exists := s.patternIndex[pattern]
	if !exists {
		return 0
	}
	removed := 0
	for key := range keys {
		if tenantID != "" {
			if entry := s.entries[key]; entry == nil || entry.TenantID != tenantID {
				continue
			}
		}
		s.removeLocked(key)
		s.stats.Deletes++
		removed++
	}
	return removed
}

// Sweep removes all expired entries and returns the count removed. Called
// by the cleanup worker.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.Expired(now) {
			s.removeLocked(key)
			s.stats.Expired++
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() types.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := s.stats
	stats.Entries = len(s.entries)
	return stats
}

// TagKeys returns the keys currently indexed under a tag. Used in tests and
// diagnostics; the invalidation engine goes through DeleteByTag instead.
func (s *Store) TagKeys(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.tagIndex[tag]))
	for key := range s.tagIndex[tag] {
		keys = append(keys, key)
	}
	return keys
}

func (s *Store) deleteIndexedLocked(index map[string]map[string]struct{}, label string) int {
	keys, exists := index[label]
	if !exists {
		return 0
	}
	removed := 0
	for key := range keys {
		s.removeLocked(key)
		s.stats.Deletes++
		removed++
	}
	return removed
}

// removeLocked unlinks an entry from the store and both indexes. Caller
// holds the write lock.
func (s *Store) removeLocked(key string) {
	entry, exists := s.entries[key]
	if !exists {
		return
	}
	delete(s.entries, key)
	for _, tag := range entry.Tags {
		s.indexRemove(s.tagIndex, tag, key)
	}
	if entry.Pattern != "" {
		s.indexRemove(s.patternIndex, entry.Pattern, key)
	}
}

func (s *Store) evictSoonestExpiringLocked() {
	var victim string
	var soonest time.Time
	for key, entry := range s.entries {
		if victim == "" || entry.ExpiresAt.Before(soonest) {
			victim = key
			soonest = entry.ExpiresAt
		}
	}
	if victim == "" {
		return
	}
	s.removeLocked(victim)
	s.stats.Evictions++
	if s.logger != nil {
		s.logger.Cache().Debug("Evicted entry at capacity", "key", victim)
	}
}

func (s *Store) indexAdd(index map[string]map[string]struct{}, label, key string) {
	keys, exists := index[label]
	if !exists {
		keys = make(map[string]struct{})
		index[label] = keys
	}
	keys[key] = struct{}{}
}

func (s *Store) indexRemove(index map[string]map[string]struct{}, label, key string) {
	keys, exists := index[label]
	if !exists {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(index, label)
	}
}
