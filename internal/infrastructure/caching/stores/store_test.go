package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
)

func newTestStore(maxEntries int) (*Store, *time.Time) {
	s := NewStore(maxEntries, nil)
	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(0)
	s.Set("products:list:T1:abc", []string{"a", "b"}, types.TierHot, time.Minute, nil, "T1", "products:list")

	value, hit := s.Get("products:list:T1:abc")
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)

	_, hit = s.Get("products:list:T1:missing")
	assert.False(t, hit)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestLazyExpiry(t *testing.T) {
	s, clock := newTestStore(0)
	s.Set("k", "v", types.TierHot, time.Minute, nil, "", "p")

	*clock = clock.Add(61 * time.Second)
	_, hit := s.Get("k")
	assert.False(t, hit)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(1), s.Stats().Expired)
}

func TestTierDefaultTTL(t *testing.T) {
	s, clock := newTestStore(0)
	s.Set("hot", "v", types.TierHot, 0, nil, "", "p")
	s.Set("cold", "v", types.TierCold, 0, nil, "", "p")

	*clock = clock.Add(types.TierHot.DefaultTTL() + time.Second)
	_, hotAlive := s.Get("hot")
	_, coldAlive := s.Get("cold")
	assert.False(t, hotAlive)
	assert.True(t, coldAlive)
}

func TestDeleteByTagRemovesIndexEntries(t *testing.T) {
	s, _ := newTestStore(0)
	s.Set("a", 1, types.TierWarm, time.Minute, []string{"inventory"}, "T1", "inventory:list")
	s.Set("b", 2, types.TierWarm, time.Minute, []string{"inventory"}, "T1", "inventory:list")
	s.Set("c", 3, types.TierWarm, time.Minute, []string{"orders"}, "T1", "orders:list")

	removed := s.DeleteByTag("inventory")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.TagKeys("inventory"))

	_, hit := s.Get("c")
	assert.True(t, hit)
}

func TestDeleteByTenantIsolation(t *testing.T) {
	s, _ := newTestStore(0)
	s.Set("t1-a", 1, types.TierWarm, time.Minute, []string{"products"}, "T1", "products:list")
	s.Set("t1-b", 2, types.TierWarm, time.Minute, []string{"products"}, "T1", "products:detail")
	s.Set("t2-a", 3, types.TierWarm, time.Minute, []string{"products"}, "T2", "products:list")

	removed := s.DeleteByTenant("T1")
	assert.Equal(t, 2, removed)

	_, hit := s.Get("t2-a")
	assert.True(t, hit)
}

func TestDeleteByPatternScopedToTenant(t *testing.T) {
	s, _ := newTestStore(0)
	s.Set("t1", 1, types.TierWarm, time.Minute, nil, "T1", "products:list")
	s.Set("t2", 2, types.TierWarm, time.Minute, nil, "T2", "products:list")

	removed := s.DeleteByPattern("products:list", "T1")
	assert.Equal(t, 1, removed)

	_, hit := s.Get("t2")
	assert.True(t, hit)

	removed = s.DeleteByPattern("products:list", "")
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, s.Len())
}

func TestReplaceDoesNotLeakOldTags(t *testing.T) {
	s, _ := newTestStore(0)
	s.Set("k", 1, types.TierWarm, time.Minute, []string{"old"}, "T1", "p")
	s.Set("k", 2, types.TierWarm, time.Minute, []string{"new"}, "T1", "p")

	assert.Empty(t, s.TagKeys("old"))
	assert.Equal(t, 0, s.DeleteByTag("old"))
	assert.Equal(t, 1, s.DeleteByTag("new"))
}

func TestCapacityEvictsSoonestExpiring(t *testing.T) {
	s, _ := newTestStore(2)
	s.Set("short", 1, types.TierWarm, time.Minute, nil, "", "p")
	s.Set("long", 2, types.TierWarm, time.Hour, nil, "", "p")
	s.Set("third", 3, types.TierWarm, 30*time.Minute, nil, "", "p")

	assert.Equal(t, 2, s.Len())
	_, hit := s.Get("short")
	assert.False(t, hit)
	_, hit = s.Get("long")
	assert.True(t, hit)
	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s, clock := newTestStore(0)
	s.Set("stale", 1, types.TierWarm, time.Minute, nil, "", "p")
	s.Set("fresh", 2, types.TierWarm, time.Hour, nil, "", "p")

	*clock = clock.Add(2 * time.Minute)
	removed := s.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}
