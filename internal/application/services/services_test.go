package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/invalidation"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/keys"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/orchestrator"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/stores"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/reports"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/snapshots"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/persistence/database"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

type fixture struct {
	db        *database.DB
	repo      *database.InventoryRepository
	store     *stores.Store
	inventory *InventoryService
	collector *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	collector := metrics.NewCollector(nil)
	collector.Start()
	t.Cleanup(collector.Stop)

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"), collector, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := database.NewInventoryRepository(db)
	require.NoError(t, err)

	reg := registry.New()
	store := stores.NewStore(0, nil)
	engine := invalidation.NewEngine(store, nil)
	orch := orchestrator.New(reg, keys.NewDeriver(nil), store, engine, collector, nil)

	inventory, err := NewInventoryService(repo, orch, reg, nil)
	require.NoError(t, err)

	return &fixture{db: db, repo: repo, store: store, inventory: inventory, collector: collector}
}

func (f *fixture) seed(t *testing.T, tenantID string, count int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < count; i++ {
		err := f.repo.UpsertProduct(ctx, database.Product{
			ID:       tenantID + "-p" + string(rune('a'+i)),
			TenantID: tenantID,
			SKU:      "SKU-" + string(rune('A'+i)),
			Name:     "Product " + string(rune('A'+i)),
			Price:    10,
			IsActive: true,
		}, 5, 10) // quantity under reorder point, so everything is low stock
		require.NoError(t, err)
	}
}

func TestActiveProductsServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 3)
	ctx := tenant.WithTenant(context.Background(), "T1")

	first, err := f.inventory.ActiveProducts(ctx, "T1", 20, 0)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := f.inventory.ActiveProducts(ctx, "T1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.store.Stats().Hits)
}

func TestUpsertEvictsProductCaches(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 2)
	ctx := tenant.WithTenant(context.Background(), "T1")

	products, err := f.inventory.ActiveProducts(ctx, "T1", 20, 0)
	require.NoError(t, err)
	require.Len(t, products, 2)

	err = f.inventory.UpsertProduct(ctx, database.Product{
		ID: "T1-new", TenantID: "T1", SKU: "SKU-NEW", Name: "Newcomer", Price: 99, IsActive: true,
	}, 50, 10)
	require.NoError(t, err)

	refreshed, err := f.inventory.ActiveProducts(ctx, "T1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, refreshed, 3)
}

func TestAdjustStockEvictsLowStockCache(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 1)
	ctx := tenant.WithTenant(context.Background(), "T1")

	low, err := f.inventory.LowStockItems(ctx, "T1")
	require.NoError(t, err)
	require.Len(t, low, 1)

	// restock well above the reorder point
	quantity, err := f.inventory.AdjustStock(ctx, "T1-pa", 100)
	require.NoError(t, err)
	assert.Equal(t, 105, quantity)

	low, err = f.inventory.LowStockItems(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, low)
}

func TestDashboardSummaryAggregates(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 2)
	ctx := tenant.WithTenant(context.Background(), "T1")

	summary, err := f.inventory.DashboardSummary(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProductCount)
	assert.Equal(t, 2, summary.ActiveCount)
	assert.Equal(t, 2, summary.LowStockCount)
	assert.Equal(t, 10, summary.TotalUnits)
	assert.InDelta(t, 100, summary.StockValue, 1e-9)
}

func TestWarmupPopulatesCache(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 2)
	f.seed(t, "T2", 1)

	tenants := tenant.NewRegistry(nil)
	tenants.Activate("T1")
	tenants.Activate("T2")
	warmup := NewWarmupService(f.inventory, tenants, nil)

	results := warmup.WarmupAll(context.Background())
	require.Len(t, results, 6)
	for _, result := range results {
		assert.NoError(t, result.Err)
	}

	// warm reads are now hits
	ctx := tenant.WithTenant(context.Background(), "T1")
	before := f.store.Stats().Hits
	_, err := f.inventory.DashboardSummary(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, before+1, f.store.Stats().Hits)
}

func TestWarmupFailuresDoNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 1)
	require.NoError(t, f.db.Close())

	warmup := NewWarmupService(f.inventory, tenant.NewRegistry(nil), nil)
	results := warmup.WarmupTenant(context.Background(), "T1")

	require.Len(t, results, 3)
	for _, result := range results {
		assert.Error(t, result.Err)
	}
}

func TestPerformanceServiceSurface(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "T1", 1)

	thresholds := alerting.Thresholds{
		SlowQueryMs:         1000,
		SlowAPIMs:           2000,
		MinCacheHitRatio:    70,
		MinHitRatioRequests: 100,
		MaxCPUPercent:       80,
		MaxMemoryPercent:    85,
	}
	alertEngine := alerting.NewEngine(thresholds, nil)
	snapshotStore := snapshots.NewStore(f.collector, alertEngine, nil)
	generator := reports.NewGenerator(snapshotStore, f.collector, thresholds, nil)
	perf := NewPerformanceService(f.collector, snapshotStore, generator, alertEngine, f.store, thresholds, nil)

	ctx := tenant.WithTenant(context.Background(), "T1")
	_, err := f.inventory.ActiveProducts(ctx, "T1", 20, 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return perf.GetCurrentMetrics("").Database.QueryCount > 0
	}, 2*time.Second, 5*time.Millisecond)

	health := perf.GetSystemHealth()
	require.NotEmpty(t, health.Checks)
	for _, check := range health.Checks {
		assert.Contains(t, []string{CheckPass, CheckWarn, CheckFail}, check.Status)
	}

	baseline := perf.SetBaseline("")
	assert.NotEmpty(t, baseline.ID)

	comparison, err := perf.CompareWithBaseline("")
	require.NoError(t, err)
	assert.Equal(t, "similar", comparison.Verdict)

	snapshotStore.Collect()
	report, err := perf.GetPerformanceReport("", time.Hour)
	require.NoError(t, err)
	assert.NotZero(t, report.Score)

	_, err = perf.GetPerformanceReport("", -time.Minute)
	assert.Error(t, err)

	assert.Empty(t, perf.RecentAlerts())
	assert.NotZero(t, perf.CacheStats().Sets)
}
