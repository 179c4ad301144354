package services

import (
	"context"
	"sync"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

// WarmupResult is the outcome of one warmup query.
type WarmupResult struct {
	TenantID string
	Pattern  string
	Duration time.Duration
	Err      error
}

// WarmupService proactively populates the cache with the known hot query
// patterns so the first real request of the day is served warm.
type WarmupService struct {
	inventory *InventoryService
	tenants   *tenant.Registry
	logger    *logging.ChanneledLogger
}

// NewWarmupService creates the warmup service.
func NewWarmupService(inventory *InventoryService, tenants *tenant.Registry, logger *logging.ChanneledLogger) *WarmupService {
	return &WarmupService{inventory: inventory, tenants: tenants, logger: logger}
}

// WarmupTenant issues the fixed hot query list for one tenant. Queries run
// independently; one failure never aborts the batch, and every outcome is
// collected.
func (s *WarmupService) WarmupTenant(ctx context.Context, tenantID string) []WarmupResult {
	ctx = tenant.WithTenant(ctx, tenantID)

	queries := []struct {
		pattern string
		run     func(context.Context) error
	}{
		{PatternActiveProducts, func(ctx context.Context) error {
			_, err := s.inventory.ActiveProducts(ctx, tenantID, 20, 0)
			return err
		}},
		{PatternLowStock, func(ctx context.Context) error {
			_, err := s.inventory.LowStockItems(ctx, tenantID)
			return err
		}},
		{PatternDashboard, func(ctx context.Context) error {
			_, err := s.inventory.DashboardSummary(ctx, tenantID)
			return err
		}},
	}

	results := make([]WarmupResult, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, pattern string, run func(context.Context) error) {
			defer wg.Done()
			start := time.Now()
			err := run(ctx)
			results[i] = WarmupResult{
				TenantID: tenantID,
				Pattern:  pattern,
				Duration: time.Since(start),
				Err:      err,
			}
		}(i, query.pattern, query.run)
	}
	wg.Wait()

	if s.logger != nil {
		failures := 0
		for _, result := range results {
			if result.Err != nil {
				failures++
				s.logger.Warmup().Error("Warmup query failed",
					"tenantId", tenantID, "pattern", result.Pattern, "error", result.Err)
			}
		}
		s.logger.Warmup().Info("Tenant warmup finished",
			"tenantId", tenantID, "queries", len(results), "failures", failures)
	}
	return results
}

// WarmupAll warms every active tenant sequentially. Scheduled for the
// deployment's low-traffic hour.
func (s *WarmupService) WarmupAll(ctx context.Context) []WarmupResult {
	start := time.Now()
	var all []WarmupResult
	for _, tenantID := range s.tenants.ActiveTenants() {
		all = append(all, s.WarmupTenant(ctx, tenantID)...)
	}
	if s.logger != nil {
		s.logger.Warmup().Info("Warmup pass complete",
			"tenants", len(s.tenants.ActiveTenants()), "queries", len(all), "took", time.Since(start).String())
	}
	return all
}
