package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/snapshots"
)

func testThresholds() alerting.Thresholds {
	return alerting.Thresholds{
		SlowQueryMs:         1000,
		SlowAPIMs:           2000,
		MinCacheHitRatio:    70,
		MinHitRatioRequests: 100,
		MaxCPUPercent:       80,
		MaxMemoryPercent:    85,
	}
}

func TestClassifyTrend(t *testing.T) {
	// lower is better for response times
	assert.Equal(t, TrendImproving, classifyTrend(100, 90, false))
	assert.Equal(t, TrendDegrading, classifyTrend(100, 110, false))
	assert.Equal(t, TrendStable, classifyTrend(100, 104, false))
	assert.Equal(t, TrendStable, classifyTrend(100, 96, false))

	// higher is better for hit ratio
	assert.Equal(t, TrendImproving, classifyTrend(70, 80, true))
	assert.Equal(t, TrendDegrading, classifyTrend(80, 70, true))
	assert.Equal(t, TrendStable, classifyTrend(80, 81, true))
}

func TestHealthLabels(t *testing.T) {
	assert.Equal(t, HealthExcellent, healthLabel(90))
	assert.Equal(t, HealthGood, healthLabel(75))
	assert.Equal(t, HealthFair, healthLabel(60))
	assert.Equal(t, HealthPoor, healthLabel(59))
}

func TestScoreDeductions(t *testing.T) {
	g := NewGenerator(nil, nil, testThresholds(), nil)

	clean := Summary{
		AverageQueryTimeMs:   50,
		AverageAPIResponseMs: 200,
		CacheHitRatio:        90,
		TotalCacheRequests:   500,
		AverageCPUPercent:    40,
		AverageMemoryPercent: 50,
		APIErrorRate:         0.5,
	}
	assert.InDelta(t, 100, g.score(clean), 1e-9)

	degraded := clean
	degraded.AverageQueryTimeMs = 1500
	degraded.CacheHitRatio = 60
	assert.InDelta(t, 60, g.score(degraded), 1e-9)

	awful := Summary{
		AverageQueryTimeMs:   5000,
		AverageAPIResponseMs: 9000,
		CacheHitRatio:        10,
		TotalCacheRequests:   1000,
		AverageCPUPercent:    99,
		AverageMemoryPercent: 99,
		APIErrorRate:         50,
	}
	assert.InDelta(t, 0, g.score(awful), 1e-9)
}

func TestGenerateValidatesPeriod(t *testing.T) {
	store := snapshots.NewStore(newCollector(t), nil, nil)
	g := NewGenerator(store, nil, testThresholds(), nil)

	_, err := g.Generate("", 0)
	assert.Error(t, err)
	_, err = g.Generate("", -time.Hour)
	assert.Error(t, err)
	_, err = g.Generate("", time.Hour)
	assert.ErrorContains(t, err, "no snapshots")
}

func newCollector(t *testing.T) *metrics.Collector {
	t.Helper()
	c := metrics.NewCollector(nil)
	c.Start()
	t.Cleanup(c.Stop)
	return c
}

// captureInterval feeds the collector one interval's worth of traffic and
// snapshots it, producing a history entry with known averages.
func captureInterval(t *testing.T, c *metrics.Collector, store *snapshots.Store, responseMs float64, hitPercent int) {
	t.Helper()
	for i := 0; i < hitPercent; i++ {
		c.RecordCacheOperation("hit", "products:list", 0.2, "")
	}
	for i := hitPercent; i < 100; i++ {
		c.RecordCacheOperation("miss", "products:list", 0.4, "")
	}
	for i := 0; i < 10; i++ {
		c.RecordAPIRequest("GET", "/api/v1/products", responseMs, 200, "")
	}
	require.Eventually(t, func() bool {
		s := c.Snapshot("")
		return s.Cache.TotalRequests == 100 && s.API.RequestCount == 10
	}, 2*time.Second, 5*time.Millisecond)
	store.Collect()
}

func TestGenerateReportWithTrends(t *testing.T) {
	c := newCollector(t)
	store := snapshots.NewStore(c, nil, nil)
	// response times degrade, hit ratio improves
	captureInterval(t, c, store, 100, 60)
	captureInterval(t, c, store, 110, 62)
	captureInterval(t, c, store, 300, 85)
	captureInterval(t, c, store, 320, 88)
	g := NewGenerator(store, c, testThresholds(), nil)

	report, err := g.Generate("", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 4, report.SnapshotCount)
	assert.Equal(t, TrendDegrading, report.ResponseTrend)
	assert.Equal(t, TrendImproving, report.HitRatioTrend)
	assert.Contains(t, report.Recommendations, "Response times are trending worse across the reporting window")
	assert.Equal(t, HealthExcellent, report.Health)
}

func TestCompareWithBaseline(t *testing.T) {
	c := newCollector(t)
	store := snapshots.NewStore(c, nil, nil)
	g := NewGenerator(store, c, testThresholds(), nil)

	_, err := g.CompareWithBaseline("")
	assert.ErrorContains(t, err, "no baseline")

	// baseline with slow queries, then a faster current state
	for i := 0; i < 10; i++ {
		c.RecordQuery("SELECT heavy", 800, "")
	}
	require.Eventually(t, func() bool {
		return c.Snapshot("").Database.QueryCount == 10
	}, 2*time.Second, 5*time.Millisecond)
	store.SetBaseline("")

	for i := 0; i < 90; i++ {
		c.RecordQuery("SELECT light", 10, "")
	}
	require.Eventually(t, func() bool {
		return c.Snapshot("").Database.QueryCount == 100
	}, 2*time.Second, 5*time.Millisecond)

	comparison, err := g.CompareWithBaseline("")
	require.NoError(t, err)
	assert.Less(t, comparison.QueryTimeChangePct, -trendThresholdPercent)
	assert.Equal(t, "better", comparison.Verdict)
}
