// Package handlers contains the gin HTTP handlers for the API surface.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/application/services"
)

// PerformanceHandlers serves the monitoring query surface. These routes are
// an operator surface; the tenantId query param selects a scope and an
// absent one means global.
type PerformanceHandlers struct {
	perf *services.PerformanceService
}

// NewPerformanceHandlers creates the performance handler set.
func NewPerformanceHandlers(perf *services.PerformanceService) *PerformanceHandlers {
	return &PerformanceHandlers{perf: perf}
}

// GetMetrics returns the live metrics snapshot for a scope.
func (h *PerformanceHandlers) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.perf.GetCurrentMetrics(c.Query("tenantId")))
}

// GetReport builds a performance report over the requested trailing period
// (default 24h).
func (h *PerformanceHandlers) GetReport(c *gin.Context) {
	period := 24 * time.Hour
	if raw := c.Query("period"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period: " + err.Error()})
			return
		}
		period = parsed
	}

	report, err := h.perf.GetPerformanceReport(c.Query("tenantId"), period)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetHealth returns per-check verdicts plus an overall status. Degraded and
// unhealthy states still answer 200; the payload carries the verdict.
func (h *PerformanceHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.perf.GetSystemHealth())
}

// GetAlerts returns the bounded alert history, newest first.
func (h *PerformanceHandlers) GetAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": h.perf.RecentAlerts()})
}

// SetBaseline captures the current metrics as the comparison reference.
func (h *PerformanceHandlers) SetBaseline(c *gin.Context) {
	snapshot := h.perf.SetBaseline(c.Query("tenantId"))
	c.JSON(http.StatusCreated, gin.H{"baseline": snapshot})
}

// CompareBaseline measures current metrics against the stored baseline.
func (h *PerformanceHandlers) CompareBaseline(c *gin.Context) {
	comparison, err := h.perf.CompareWithBaseline(c.Query("tenantId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, comparison)
}
