package alerting

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
)

func testThresholds() Thresholds {
	return Thresholds{
		SlowQueryMs:         1000,
		SlowAPIMs:           2000,
		MinCacheHitRatio:    70,
		MinHitRatioRequests: 100,
		MaxCPUPercent:       80,
		MaxMemoryPercent:    85,
	}
}

func TestSlowQueryAlertFiresAtDoubleThreshold(t *testing.T) {
	e := NewEngine(testThresholds(), nil)

	e.CheckQuery("SELECT heavy", 1999, "T1")
	assert.Empty(t, e.History())

	e.CheckQuery("SELECT heavy", 2000, "T1")
	history := e.History()
	require.Len(t, history, 1)
	assert.Equal(t, SeverityWarning, history[0].Severity)
	assert.Equal(t, "database", history[0].Category)
	assert.Equal(t, "T1", history[0].TenantID)
	assert.NotEmpty(t, history[0].Recommendations)
	assert.NotEmpty(t, history[0].ID)
}

func TestExtremeQueryEscalatesToCritical(t *testing.T) {
	e := NewEngine(testThresholds(), nil)
	e.CheckQuery("SELECT heavy", 4000, "")

	history := e.History()
	require.Len(t, history, 1)
	assert.Equal(t, SeverityCritical, history[0].Severity)
}

func TestSlowAPIResponseAlert(t *testing.T) {
	e := NewEngine(testThresholds(), nil)

	e.CheckAPIResponse("GET", "/api/v1/products", 3999, "")
	assert.Empty(t, e.History())

	e.CheckAPIResponse("GET", "/api/v1/products", 4000, "")
	history := e.History()
	require.Len(t, history, 1)
	assert.Equal(t, "api", history[0].Category)
}

func TestHitRatioAlertRequiresMinimumTraffic(t *testing.T) {
	e := NewEngine(testThresholds(), nil)

	cold := metrics.Snapshot{Cache: metrics.CacheMetrics{TotalRequests: 50, HitRatio: 10, MissRatio: 90}}
	e.EvaluateSnapshot(cold)
	assert.Empty(t, e.History())

	busy := metrics.Snapshot{
		TenantID: "T1",
		Cache:    metrics.CacheMetrics{TotalRequests: 100, HitRatio: 69.9, MissRatio: 30.1},
	}
	e.EvaluateSnapshot(busy)
	history := e.History()
	require.Len(t, history, 1)
	assert.Equal(t, "cache", history[0].Category)
	assert.Equal(t, "T1", history[0].TenantID)
}

func TestHealthyHitRatioRaisesNothing(t *testing.T) {
	e := NewEngine(testThresholds(), nil)
	e.EvaluateSnapshot(metrics.Snapshot{
		Cache: metrics.CacheMetrics{TotalRequests: 500, HitRatio: 92, MissRatio: 8},
	})
	assert.Empty(t, e.History())
}

func TestSystemThresholds(t *testing.T) {
	e := NewEngine(testThresholds(), nil)
	e.EvaluateSnapshot(metrics.Snapshot{
		System: metrics.SystemMetrics{CPUUsagePercent: 81, MemoryUsagePercent: 96},
	})

	history := e.History()
	require.Len(t, history, 2)
	// newest first: memory alert was raised second
	assert.Equal(t, SeverityCritical, history[0].Severity)
	assert.Equal(t, SeverityWarning, history[1].Severity)
}

func TestHistoryIsBounded(t *testing.T) {
	e := NewEngine(testThresholds(), nil)
	e.historySize = 100

	for i := 0; i < 150; i++ {
		e.CheckQuery("SELECT heavy", 2000+float64(i), "")
	}

	history := e.History()
	require.Len(t, history, 100)
	// the oldest 50 were discarded
	assert.Contains(t, history[99].Message, "2050ms")
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (n *recordingNotifier) Notify(alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func TestNotifiersReceiveAlerts(t *testing.T) {
	e := NewEngine(testThresholds(), nil)
	healthy := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("smtp down")}
	e.AddNotifier(failing)
	e.AddNotifier(healthy)

	e.CheckQuery("SELECT heavy", 5000, "T1")

	require.Eventually(t, func() bool {
		return healthy.count() == 1 && failing.count() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, e.History(), 1)
}
