// Package invalidation removes cache entries by operation pattern, by tag,
// or wholesale for a tenant. Failures are logged and swallowed; a late
// eviction is acceptable where crashing the caller's write path is not.
package invalidation

import (
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
)

// Store is the slice of the cache store the engine needs. Counts returned
// are entries removed.
type Store interface {
	DeleteByPattern(pattern, tenantID string) int
	DeleteByTag(tag string) int
	DeleteByTagForTenant(tag, tenantID string) int
	DeleteByTenant(tenantID string) int
}

// Engine coordinates bulk cache invalidation.
type Engine struct {
	store  Store
	logger *logging.ChanneledLogger
}

// NewEngine creates an invalidation engine over a cache store.
func NewEngine(store Store, logger *logging.ChanneledLogger) *Engine {
	return &Engine{store: store, logger: logger}
}

// InvalidateByPatterns removes all entries stored under the given operation
// patterns. When tenantID is non-empty only that tenant's entries go.
func (e *Engine) InvalidateByPatterns(patterns []string, tenantID string) int {
	removed := 0
	for _, pattern := range patterns {
		removed += e.guarded("pattern", pattern, tenantID, func() int {
			return e.store.DeleteByPattern(pattern, tenantID)
		})
	}
	e.logResult("patterns", removed, tenantID)
	return removed
}

// InvalidateByTags removes all entries carrying the given tags. When
// tenantID is supplied the removal is scoped to that tenant so a shared
// business tag never crosses tenant boundaries.
func (e *Engine) InvalidateByTags(tags []string, tenantID string) int {
	removed := 0
	for _, tag := range tags {
		removed += e.guarded("tag", tag, tenantID, func() int {
			if tenantID != "" {
				return e.store.DeleteByTagForTenant(tag, tenantID)
			}
			return e.store.DeleteByTag(tag)
		})
	}
	e.logResult("tags", removed, tenantID)
	return removed
}

// InvalidateAllForTenant removes every entry owned by the tenant.
func (e *Engine) InvalidateAllForTenant(tenantID string) int {
	if tenantID == "" {
		return 0
	}
	removed := e.guarded("tenant", tenantID, tenantID, func() int {
		return e.store.DeleteByTenant(tenantID)
	})
	e.logResult("tenant", removed, tenantID)
	return removed
}

// guarded runs one store removal, converting a store panic into a logged
// no-op.
func (e *Engine) guarded(kind, target, tenantID string, remove func() int) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			removed = 0
			if e.logger != nil {
				e.logger.Cache().Error("Cache invalidation failed",
					"kind", kind, "target", target, "tenantId", tenantID, "panic", r)
			}
		}
	}()
	return remove()
}

func (e *Engine) logResult(kind string, removed int, tenantID string) {
	if e.logger == nil || removed == 0 {
		return
	}
	e.logger.Cache().Debug("Cache invalidated",
		"kind", kind, "removed", removed, "tenantId", tenantID)
}
