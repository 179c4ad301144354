// Package alerting evaluates metrics against configured thresholds and
// fans resulting alerts out to notification channels. Delivery is
// fire-and-forget; the engine never blocks on a notifier.
package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one threshold breach.
type Alert struct {
	ID              string         `json:"id"`
	Severity        Severity       `json:"severity"`
	Category        string         `json:"category"`
	Message         string         `json:"message"`
	Metric          map[string]any `json:"metric,omitempty"`
	TenantID        string         `json:"tenantId,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Notifier delivers an alert to an external channel.
type Notifier interface {
	Notify(alert Alert) error
}

// Thresholds are the breach limits the engine evaluates against.
type Thresholds struct {
	SlowQueryMs         float64
	SlowAPIMs           float64
	MinCacheHitRatio    float64
	MinHitRatioRequests int64
	MaxCPUPercent       float64
	MaxMemoryPercent    float64
}

// DefaultThresholds builds the threshold table from configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowQueryMs:         float64(config.SlowQueryThresholdMs),
		SlowAPIMs:           float64(config.SlowAPIThresholdMs),
		MinCacheHitRatio:    config.MinCacheHitRatio,
		MinHitRatioRequests: int64(config.MinHitRatioRequests),
		MaxCPUPercent:       config.MaxCPUPercent,
		MaxMemoryPercent:    config.MaxMemoryPercent,
	}
}

// Engine holds the threshold table, bounded alert history, and notifiers.
type Engine struct {
	thresholds Thresholds

	mu          sync.RWMutex
	history     []Alert
	historySize int

	notifiers []Notifier
	logger    *logging.ChanneledLogger
	now       func() time.Time
}

// NewEngine creates an alert engine with the given thresholds.
func NewEngine(thresholds Thresholds, logger *logging.ChanneledLogger) *Engine {
	return &Engine{
		thresholds:  thresholds,
		historySize: config.AlertHistorySize,
		logger:      logger,
		now:         time.Now,
	}
}

// AddNotifier registers a delivery channel. Not safe to call once alerts
// are flowing; wire notifiers during startup.
func (e *Engine) AddNotifier(n Notifier) {
	e.notifiers = append(e.notifiers, n)
}

// CheckQuery evaluates one query duration. A duration at or beyond twice
// the slow query threshold raises an alert.
func (e *Engine) CheckQuery(sql string, durationMs float64, tenantID string) {
	limit := e.thresholds.SlowQueryMs * 2
	if durationMs < limit {
		return
	}
	e.raise(Alert{
		Severity: severityForOverrun(durationMs, limit),
		Category: "database",
		Message:  fmt.Sprintf("Slow query took %.0fms (threshold %.0fms)", durationMs, e.thresholds.SlowQueryMs),
		Metric: map[string]any{
			"sql":        truncate(sql, 200),
			"durationMs": durationMs,
		},
		TenantID: tenantID,
		Recommendations: []string{
			"Inspect the query plan for missing indexes",
			"Consider caching this query through the cache-aside layer",
			"Check for lock contention during the slow window",
		},
	})
}

// CheckAPIResponse evaluates one API response time. A response at or beyond
// twice the slow API threshold raises an alert.
func (e *Engine) CheckAPIResponse(method, path string, durationMs float64, tenantID string) {
	limit := e.thresholds.SlowAPIMs * 2
	if durationMs < limit {
		return
	}
	e.raise(Alert{
		Severity: severityForOverrun(durationMs, limit),
		Category: "api",
		Message:  fmt.Sprintf("Slow response on %s %s took %.0fms (threshold %.0fms)", method, path, durationMs, e.thresholds.SlowAPIMs),
		Metric: map[string]any{
			"method":     method,
			"path":       path,
			"durationMs": durationMs,
		},
		TenantID: tenantID,
		Recommendations: []string{
			"Profile the handler for blocking downstream calls",
			"Verify cache hit ratio for the data this endpoint reads",
		},
	})
}

// EvaluateSnapshot checks the aggregate thresholds (cache hit ratio, CPU,
// memory) against a captured snapshot.
func (e *Engine) EvaluateSnapshot(snapshot metrics.Snapshot) {
	cache := snapshot.Cache
	if cache.TotalRequests >= e.thresholds.MinHitRatioRequests && cache.HitRatio < e.thresholds.MinCacheHitRatio {
		e.raise(Alert{
			Severity: SeverityWarning,
			Category: "cache",
			Message:  fmt.Sprintf("Cache hit ratio %.1f%% below %.0f%% over %d requests", cache.HitRatio, e.thresholds.MinCacheHitRatio, cache.TotalRequests),
			Metric: map[string]any{
				"hitRatio":      cache.HitRatio,
				"totalRequests": cache.TotalRequests,
			},
			TenantID: snapshot.TenantID,
			Recommendations: []string{
				"Review TTLs on frequently invalidated operations",
				"Check whether warmup covers the hot query patterns",
				"Look for overly broad tag invalidation after writes",
			},
		})
	}

	system := snapshot.System
	if system.CPUUsagePercent > e.thresholds.MaxCPUPercent {
		e.raise(Alert{
			Severity: severityForUsage(system.CPUUsagePercent),
			Category: "system",
			Message:  fmt.Sprintf("CPU usage %.1f%% above %.0f%%", system.CPUUsagePercent, e.thresholds.MaxCPUPercent),
			Metric:   map[string]any{"cpuUsage": system.CPUUsagePercent},
			TenantID: snapshot.TenantID,
			Recommendations: []string{
				"Check for runaway goroutines or busy loops",
				"Review recent deployment changes",
			},
		})
	}
	if system.MemoryUsagePercent > e.thresholds.MaxMemoryPercent {
		e.raise(Alert{
			Severity: severityForUsage(system.MemoryUsagePercent),
			Category: "system",
			Message:  fmt.Sprintf("Memory usage %.1f%% above %.0f%%", system.MemoryUsagePercent, e.thresholds.MaxMemoryPercent),
			Metric: map[string]any{
				"memoryUsage": system.MemoryUsagePercent,
				"heapAllocMB": system.HeapAllocMB,
			},
			TenantID: snapshot.TenantID,
			Recommendations: []string{
				"Lower the cache entry cap if the store dominates the heap",
				"Capture a heap profile and compare against baseline",
			},
		})
	}
}

// History returns the bounded alert history, newest first.
func (e *Engine) History() []Alert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Alert, len(e.history))
	for i, alert := range e.history {
		out[len(e.history)-1-i] = alert
	}
	return out
}

func (e *Engine) raise(alert Alert) {
	alert.ID = ulid.Make().String()
	alert.Timestamp = e.now()

	e.mu.Lock()
	e.history = append(e.history, alert)
	if len(e.history) > e.historySize {
		e.history = e.history[len(e.history)-e.historySize:]
	}
	e.mu.Unlock()

	if e.logger != nil {
		e.logger.Alert().Warn("Performance alert raised",
			"severity", string(alert.Severity), "category", alert.Category,
			"message", alert.Message, "tenantId", alert.TenantID)
	}

	for _, notifier := range e.notifiers {
		go func(n Notifier) {
			defer func() {
				if r := recover(); r != nil && e.logger != nil {
					e.logger.Alert().Error("Alert notifier panicked", "panic", r)
				}
			}()
			if err := n.Notify(alert); err != nil && e.logger != nil {
				e.logger.Alert().Error("Alert delivery failed", "error", err)
			}
		}(notifier)
	}
}

// severityForOverrun escalates to critical when the duration reaches twice
// the alerting limit (four times the base threshold).
func severityForOverrun(durationMs, limit float64) Severity {
	if durationMs >= limit*2 {
		return SeverityCritical
	}
	return SeverityWarning
}

func severityForUsage(percent float64) Severity {
	if percent >= 95 {
		return SeverityCritical
	}
	return SeverityWarning
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
