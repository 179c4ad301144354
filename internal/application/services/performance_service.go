package services

import (
	"fmt"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/stores"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/reports"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/snapshots"
)

// Check statuses for system health.
const (
	CheckPass = "pass"
	CheckWarn = "warn"
	CheckFail = "fail"
)

// HealthCheck is one named pass/warn/fail verdict.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthReport is the aggregate system health answer.
type HealthReport struct {
	Status    string        `json:"status"`
	Checks    []HealthCheck `json:"checks"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// PerformanceService is the query surface over the monitoring subsystem.
type PerformanceService struct {
	collector  *metrics.Collector
	snapshots  *snapshots.Store
	reports    *reports.Generator
	alerts     *alerting.Engine
	cacheStore *stores.Store
	thresholds alerting.Thresholds
	logger     *logging.ChanneledLogger
}

// NewPerformanceService wires the monitoring components behind one facade.
func NewPerformanceService(
	collector *metrics.Collector,
	snapshotStore *snapshots.Store,
	generator *reports.Generator,
	alerts *alerting.Engine,
	cacheStore *stores.Store,
	thresholds alerting.Thresholds,
	logger *logging.ChanneledLogger,
) *PerformanceService {
	return &PerformanceService{
		collector:  collector,
		snapshots:  snapshotStore,
		reports:    generator,
		alerts:     alerts,
		cacheStore: cacheStore,
		thresholds: thresholds,
		logger:     logger,
	}
}

// GetCurrentMetrics returns the live (not yet snapshotted) metrics for a
// scope. Pass "" for global.
func (s *PerformanceService) GetCurrentMetrics(tenantID string) metrics.Snapshot {
	return s.collector.Snapshot(tenantID)
}

// GetPerformanceReport builds the report over the trailing period.
func (s *PerformanceService) GetPerformanceReport(tenantID string, period time.Duration) (reports.Report, error) {
	return s.reports.Generate(tenantID, period)
}

// SetBaseline captures the current global metrics as the comparison
// reference for a scope.
func (s *PerformanceService) SetBaseline(tenantID string) metrics.Snapshot {
	return s.snapshots.SetBaseline(tenantID)
}

// CompareWithBaseline measures current metrics against the stored baseline.
func (s *PerformanceService) CompareWithBaseline(tenantID string) (reports.Comparison, error) {
	return s.reports.CompareWithBaseline(tenantID)
}

// RecentAlerts returns the bounded alert history, newest first.
func (s *PerformanceService) RecentAlerts() []alerting.Alert {
	return s.alerts.History()
}

// CacheStats exposes the cache store counters.
func (s *PerformanceService) CacheStats() types.StoreStats {
	return s.cacheStore.Stats()
}

// GetSystemHealth evaluates the live snapshot against the threshold table
// and reports per-check verdicts plus an overall status.
func (s *PerformanceService) GetSystemHealth() HealthReport {
	snapshot := s.collector.Snapshot("")
	checks := []HealthCheck{
		usageCheck("cpu", snapshot.System.CPUUsagePercent, s.thresholds.MaxCPUPercent),
		usageCheck("memory", snapshot.System.MemoryUsagePercent, s.thresholds.MaxMemoryPercent),
		s.cacheHealthCheck(snapshot.Cache),
		s.queryHealthCheck(snapshot.Database),
		s.ingestionCheck(),
	}

	status := "healthy"
	for _, check := range checks {
		switch check.Status {
		case CheckFail:
			status = "unhealthy"
		case CheckWarn:
			if status == "healthy" {
				status = "degraded"
			}
		}
	}
	return HealthReport{Status: status, Checks: checks, CheckedAt: time.Now()}
}

func usageCheck(name string, usage, limit float64) HealthCheck {
	check := HealthCheck{Name: name, Status: CheckPass}
	switch {
	case usage >= 95:
		check.Status = CheckFail
	case usage > limit:
		check.Status = CheckWarn
	}
	if check.Status != CheckPass {
		check.Detail = formatPercent(usage) + " exceeds " + formatPercent(limit)
	}
	return check
}

func (s *PerformanceService) cacheHealthCheck(cache metrics.CacheMetrics) HealthCheck {
	check := HealthCheck{Name: "cacheHitRatio", Status: CheckPass}
	if cache.TotalRequests >= s.thresholds.MinHitRatioRequests && cache.HitRatio < s.thresholds.MinCacheHitRatio {
		check.Status = CheckWarn
		check.Detail = formatPercent(cache.HitRatio) + " below " + formatPercent(s.thresholds.MinCacheHitRatio)
	}
	return check
}

func (s *PerformanceService) queryHealthCheck(db metrics.DatabaseMetrics) HealthCheck {
	check := HealthCheck{Name: "slowQueries", Status: CheckPass}
	if db.QueryCount > 0 && db.SlowQueries*10 > db.QueryCount {
		check.Status = CheckWarn
		check.Detail = "more than 10% of queries exceeded the slow threshold"
	}
	return check
}

func (s *PerformanceService) ingestionCheck() HealthCheck {
	check := HealthCheck{Name: "metricIngestion", Status: CheckPass}
	if dropped := s.collector.DroppedEvents(); dropped > 0 {
		check.Status = CheckWarn
		check.Detail = "metric events were dropped on queue overflow"
	}
	return check
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
