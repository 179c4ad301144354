// Package reports turns snapshot history into health scores, trend
// classifications, and baseline comparisons.
package reports

import (
	"fmt"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/snapshots"
)

// Trend classifies how a metric moved across a window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// Health labels derived from the performance score.
const (
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthFair      = "fair"
	HealthPoor      = "poor"
)

// trendThresholdPercent is the change below which a metric counts as stable.
const trendThresholdPercent = 5.0

// Summary holds the window averages a report is scored from.
type Summary struct {
	AverageQueryTimeMs   float64 `json:"averageQueryTime"`
	AverageAPIResponseMs float64 `json:"averageApiResponseTime"`
	CacheHitRatio        float64 `json:"cacheHitRatio"`
	APIErrorRate         float64 `json:"apiErrorRate"`
	AverageCPUPercent    float64 `json:"averageCpuUsage"`
	AverageMemoryPercent float64 `json:"averageMemoryUsage"`
	TotalQueries         int64   `json:"totalQueries"`
	TotalRequests        int64   `json:"totalRequests"`
	TotalCacheRequests   int64   `json:"totalCacheRequests"`
	SlowQueries          int64   `json:"slowQueries"`
}

// Report is the generated performance report for one scope and window.
type Report struct {
	TenantID        string        `json:"tenantId,omitempty"`
	Period          time.Duration `json:"-"`
	PeriodLabel     string        `json:"period"`
	GeneratedAt     time.Time     `json:"generatedAt"`
	SnapshotCount   int           `json:"snapshotCount"`
	Score           float64       `json:"score"`
	Health          string        `json:"health"`
	Summary         Summary       `json:"summary"`
	ResponseTrend   Trend         `json:"responseTimeTrend"`
	HitRatioTrend   Trend         `json:"cacheHitRatioTrend"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

// Comparison is the result of measuring current metrics against a baseline.
type Comparison struct {
	TenantID             string    `json:"tenantId,omitempty"`
	BaselineAt           time.Time `json:"baselineAt"`
	ComparedAt           time.Time `json:"comparedAt"`
	QueryTimeChangePct   float64   `json:"queryTimeChangePct"`
	APIResponseChangePct float64   `json:"apiResponseChangePct"`
	CacheHitRatioChange  float64   `json:"cacheHitRatioChangePct"`
	Verdict              string    `json:"verdict"`
}

// Generator builds reports from snapshot history.
type Generator struct {
	store      *snapshots.Store
	collector  *metrics.Collector
	thresholds alerting.Thresholds
	logger     *logging.ChanneledLogger
	now        func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(store *snapshots.Store, collector *metrics.Collector, thresholds alerting.Thresholds, logger *logging.ChanneledLogger) *Generator {
	return &Generator{
		store:      store,
		collector:  collector,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate builds the report for one scope over the trailing period.
func (g *Generator) Generate(tenantID string, period time.Duration) (Report, error) {
	if period <= 0 {
		return Report{}, fmt.Errorf("report period must be positive, got %s", period)
	}
	window := g.store.Window(tenantID, period)
	if len(window) == 0 {
		return Report{}, fmt.Errorf("no snapshots captured in the last %s", period)
	}

	summary := summarize(window)
	score := g.score(summary)

	report := Report{
		TenantID:      tenantID,
		Period:        period,
		PeriodLabel:   period.String(),
		GeneratedAt:   g.now(),
		SnapshotCount: len(window),
		Score:         score,
		Health:        healthLabel(score),
		Summary:       summary,
		ResponseTrend: TrendStable,
		HitRatioTrend: TrendStable,
	}

	if len(window) >= 2 {
		first, second := splitWindow(window)
		report.ResponseTrend = classifyTrend(
			averageOf(first, apiResponse), averageOf(second, apiResponse), false)
		report.HitRatioTrend = classifyTrend(
			averageOf(first, hitRatio), averageOf(second, hitRatio), true)
	}

	report.Recommendations = g.recommend(summary, report)
	return report, nil
}

// CompareWithBaseline measures the scope's current metrics against its
// stored baseline.
func (g *Generator) CompareWithBaseline(tenantID string) (Comparison, error) {
	baseline, exists := g.store.Baseline(tenantID)
	if !exists {
		return Comparison{}, fmt.Errorf("no baseline set for scope %q", scopeLabel(tenantID))
	}
	current := g.collector.Snapshot(tenantID)

	comparison := Comparison{
		TenantID:             tenantID,
		BaselineAt:           baseline.Timestamp,
		ComparedAt:           current.Timestamp,
		QueryTimeChangePct:   percentChange(baseline.Database.AverageQueryTimeMs, current.Database.AverageQueryTimeMs),
		APIResponseChangePct: percentChange(baseline.API.AverageResponseTimeMs, current.API.AverageResponseTimeMs),
		CacheHitRatioChange:  percentChange(baseline.Cache.HitRatio, current.Cache.HitRatio),
	}
	comparison.Verdict = verdict(comparison)
	return comparison, nil
}

// score starts at 100 and deducts per breached threshold category.
func (g *Generator) score(s Summary) float64 {
	score := 100.0
	if s.AverageQueryTimeMs > g.thresholds.SlowQueryMs {
		score -= 20
	}
	if s.AverageAPIResponseMs > g.thresholds.SlowAPIMs {
		score -= 20
	}
	if s.TotalCacheRequests >= g.thresholds.MinHitRatioRequests && s.CacheHitRatio < g.thresholds.MinCacheHitRatio {
		score -= 20
	}
	if s.AverageCPUPercent > g.thresholds.MaxCPUPercent {
		score -= 15
	}
	if s.AverageMemoryPercent > g.thresholds.MaxMemoryPercent {
		score -= 15
	}
	if s.APIErrorRate > 5 {
		score -= 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (g *Generator) recommend(s Summary, report Report) []string {
	var out []string
	if s.AverageQueryTimeMs > g.thresholds.SlowQueryMs {
		out = append(out, "Average query time exceeds the slow query threshold; review indexes on the hottest tables")
	}
	if s.TotalCacheRequests >= g.thresholds.MinHitRatioRequests && s.CacheHitRatio < g.thresholds.MinCacheHitRatio {
		out = append(out, "Cache hit ratio is below target; extend TTLs or add warmup coverage for frequent reads")
	}
	if s.APIErrorRate > 5 {
		out = append(out, "API error rate is elevated; check the slow endpoint list for failing routes")
	}
	if report.ResponseTrend == TrendDegrading {
		out = append(out, "Response times are trending worse across the reporting window")
	}
	return out
}

func summarize(window []metrics.Snapshot) Summary {
	var s Summary
	n := float64(len(window))
	for _, snapshot := range window {
		s.AverageQueryTimeMs += snapshot.Database.AverageQueryTimeMs / n
		s.AverageAPIResponseMs += snapshot.API.AverageResponseTimeMs / n
		s.CacheHitRatio += snapshot.Cache.HitRatio / n
		s.APIErrorRate += snapshot.API.ErrorRate / n
		s.AverageCPUPercent += snapshot.System.CPUUsagePercent / n
		s.AverageMemoryPercent += snapshot.System.MemoryUsagePercent / n
		s.TotalQueries += snapshot.Database.QueryCount
		s.TotalRequests += snapshot.API.RequestCount
		s.TotalCacheRequests += snapshot.Cache.TotalRequests
		s.SlowQueries += snapshot.Database.SlowQueries
	}
	return s
}

func splitWindow(window []metrics.Snapshot) (first, second []metrics.Snapshot) {
	mid := len(window) / 2
	return window[:mid], window[mid:]
}

func apiResponse(s metrics.Snapshot) float64 { return s.API.AverageResponseTimeMs }
func hitRatio(s metrics.Snapshot) float64    { return s.Cache.HitRatio }

func averageOf(window []metrics.Snapshot, metric func(metrics.Snapshot) float64) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, snapshot := range window {
		sum += metric(snapshot)
	}
	return sum / float64(len(window))
}

// classifyTrend compares first and second half averages. higherIsBetter
// flips the direction for metrics like hit ratio.
func classifyTrend(first, second float64, higherIsBetter bool) Trend {
	change := percentChange(first, second)
	if change > -trendThresholdPercent && change < trendThresholdPercent {
		return TrendStable
	}
	increased := change > 0
	if increased == higherIsBetter {
		return TrendImproving
	}
	return TrendDegrading
}

func percentChange(from, to float64) float64 {
	if from == 0 {
		if to == 0 {
			return 0
		}
		return 100
	}
	return (to - from) / from * 100
}

func verdict(c Comparison) string {
	score := 0
	for _, change := range []struct {
		pct            float64
		higherIsBetter bool
	}{
		{c.QueryTimeChangePct, false},
		{c.APIResponseChangePct, false},
		{c.CacheHitRatioChange, true},
	} {
		if change.pct > -trendThresholdPercent && change.pct < trendThresholdPercent {
			continue
		}
		if (change.pct > 0) == change.higherIsBetter {
			score++
		} else {
			score--
		}
	}
	switch {
	case score > 0:
		return "better"
	case score < 0:
		return "worse"
	default:
		return "similar"
	}
}

func healthLabel(score float64) string {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 75:
		return HealthGood
	case score >= 60:
		return HealthFair
	default:
		return HealthPoor
	}
}

func scopeLabel(tenantID string) string {
	if tenantID == "" {
		return metrics.GlobalScope
	}
	return tenantID
}
