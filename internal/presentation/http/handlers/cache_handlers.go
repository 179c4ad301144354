package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/application/services"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/invalidation"
)

// CacheHandlers exposes cache statistics, manual invalidation, and on-demand
// warmup for operators.
type CacheHandlers struct {
	perf        *services.PerformanceService
	invalidator *invalidation.Engine
	warmup      *services.WarmupService
}

// NewCacheHandlers creates the cache admin handler set.
func NewCacheHandlers(perf *services.PerformanceService, invalidator *invalidation.Engine, warmup *services.WarmupService) *CacheHandlers {
	return &CacheHandlers{perf: perf, invalidator: invalidator, warmup: warmup}
}

// GetStats returns cumulative store counters.
func (h *CacheHandlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.perf.CacheStats())
}

type invalidateRequest struct {
	Patterns     []string `json:"patterns"`
	Tags         []string `json:"tags"`
	TenantID     string   `json:"tenantId"`
	AllForTenant bool     `json:"allForTenant"`
}

// Invalidate removes cache entries by pattern, tag, or whole tenant.
func (h *CacheHandlers) Invalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if req.AllForTenant {
		if req.TenantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "allForTenant requires tenantId"})
			return
		}
		removed := h.invalidator.InvalidateAllForTenant(req.TenantID)
		c.JSON(http.StatusOK, gin.H{"removed": removed})
		return
	}

	if len(req.Patterns) == 0 && len(req.Tags) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to invalidate: provide patterns, tags, or allForTenant"})
		return
	}

	removed := 0
	if len(req.Patterns) > 0 {
		removed += h.invalidator.InvalidateByPatterns(req.Patterns, req.TenantID)
	}
	if len(req.Tags) > 0 {
		removed += h.invalidator.InvalidateByTags(req.Tags, req.TenantID)
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type warmupRequest struct {
	TenantID string `json:"tenantId"`
}

// TriggerWarmup preloads caches for one tenant, or every active tenant when
// the body omits tenantId.
func (h *CacheHandlers) TriggerWarmup(c *gin.Context) {
	var req warmupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	var results []services.WarmupResult
	if req.TenantID != "" {
		results = h.warmup.WarmupTenant(c.Request.Context(), req.TenantID)
	} else {
		results = h.warmup.WarmupAll(c.Request.Context())
	}

	type warmupEntry struct {
		TenantID string `json:"tenantId"`
		Pattern  string `json:"pattern"`
		TookMs   int64  `json:"tookMs"`
		Error    string `json:"error,omitempty"`
	}
	entries := make([]warmupEntry, 0, len(results))
	failures := 0
	for _, r := range results {
		entry := warmupEntry{TenantID: r.TenantID, Pattern: r.Pattern, TookMs: r.Duration.Milliseconds()}
		if r.Err != nil {
			entry.Error = r.Err.Error()
			failures++
		}
		entries = append(entries, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"warmed":   len(entries) - failures,
		"failures": failures,
		"results":  entries,
	})
}
