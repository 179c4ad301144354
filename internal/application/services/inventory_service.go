// Package services holds the application services wiring domain reads and
// writes through the caching and observability infrastructure.
package services

import (
	"context"
	"fmt"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/orchestrator"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/types"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/persistence/database"
)

// Cache operation patterns for the inventory domain.
const (
	PatternActiveProducts = "products:active"
	PatternLowStock       = "inventory:low-stock"
	PatternDashboard      = "dashboard:summary"
	PatternProductUpsert  = "products:upsert"
	PatternStockAdjust    = "inventory:adjust"
)

// InventoryService serves product and stock reads through the cache-aside
// layer. Writes evict the affected read patterns.
type InventoryService struct {
	repo   *database.InventoryRepository
	cache  *orchestrator.Orchestrator
	logger *logging.ChanneledLogger
}

// NewInventoryService creates the service and registers its cache
// operations. Registration failures indicate a broken startup table and
// are returned eagerly.
func NewInventoryService(repo *database.InventoryRepository, cache *orchestrator.Orchestrator, reg *registry.Registry, logger *logging.ChanneledLogger) (*InventoryService, error) {
	operations := []*registry.Operation{
		{
			Pattern: PatternActiveProducts,
			Tier:    types.TierHot,
			Tags:    []string{"products"},
			Version: 1,
		},
		{
			Pattern: PatternLowStock,
			Tier:    types.TierHot,
			Tags:    []string{"inventory"},
			Version: 1,
		},
		{
			Pattern: PatternDashboard,
			Tier:    types.TierWarm,
			Tags:    []string{"dashboard"},
			Version: 1,
		},
		{
			Pattern: PatternProductUpsert,
			Tier:    types.TierHot,
			// writes are never cached
			Condition: func(args []any) bool { return false },
			EvictRules: []registry.EvictRule{
				{Patterns: []string{PatternActiveProducts, PatternDashboard}, Timing: types.EvictBefore},
			},
		},
		{
			Pattern:   PatternStockAdjust,
			Tier:      types.TierHot,
			Condition: func(args []any) bool { return false },
			EvictRules: []registry.EvictRule{
				{
					Tags:   []string{"inventory", "dashboard"},
					Timing: types.EvictAfter,
					When: func(result any) bool {
						_, adjusted := result.(int)
						return adjusted
					},
				},
			},
		},
	}
	for _, op := range operations {
		if err := reg.Register(op); err != nil {
			return nil, fmt.Errorf("register cache operation: %w", err)
		}
	}

	return &InventoryService{repo: repo, cache: cache, logger: logger}, nil
}

// ActiveProducts returns the tenant's active product list, cached hot.
func (s *InventoryService) ActiveProducts(ctx context.Context, tenantID string, limit, offset int) ([]database.Product, error) {
	args := []any{map[string]any{"tenantId": tenantID, "limit": limit, "offset": offset}}
	value, err := s.cache.GetOrCompute(ctx, PatternActiveProducts, args, func(ctx context.Context) (any, error) {
		return s.repo.ActiveProducts(ctx, tenantID, limit, offset)
	})
	if err != nil {
		return nil, err
	}
	products, _ := value.([]database.Product)
	return products, nil
}

// LowStockItems returns positions at or under their reorder point, cached hot.
func (s *InventoryService) LowStockItems(ctx context.Context, tenantID string) ([]database.StockItem, error) {
	args := []any{map[string]any{"tenantId": tenantID}}
	value, err := s.cache.GetOrCompute(ctx, PatternLowStock, args, func(ctx context.Context) (any, error) {
		return s.repo.LowStockItems(ctx, tenantID)
	})
	if err != nil {
		return nil, err
	}
	items, _ := value.([]database.StockItem)
	return items, nil
}

// DashboardSummary returns the tenant's dashboard aggregate, cached warm.
func (s *InventoryService) DashboardSummary(ctx context.Context, tenantID string) (database.DashboardSummary, error) {
	args := []any{map[string]any{"tenantId": tenantID}}
	value, err := s.cache.GetOrCompute(ctx, PatternDashboard, args, func(ctx context.Context) (any, error) {
		return s.repo.Summary(ctx, tenantID)
	})
	if err != nil {
		return database.DashboardSummary{}, err
	}
	summary, _ := value.(database.DashboardSummary)
	return summary, nil
}

// UpsertProduct writes a product and evicts the product and dashboard
// read caches before the write lands.
func (s *InventoryService) UpsertProduct(ctx context.Context, product database.Product, quantity, reorderPoint int) error {
	args := []any{map[string]any{"tenantId": product.TenantID, "id": product.ID}}
	_, err := s.cache.GetOrCompute(ctx, PatternProductUpsert, args, func(ctx context.Context) (any, error) {
		return nil, s.repo.UpsertProduct(ctx, product, quantity, reorderPoint)
	})
	return err
}

// AdjustStock applies a stock delta; the low-stock and dashboard caches are
// evicted once the new quantity is known.
func (s *InventoryService) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	args := []any{map[string]any{"id": productID}}
	value, err := s.cache.GetOrCompute(ctx, PatternStockAdjust, args, func(ctx context.Context) (any, error) {
		return s.repo.AdjustStock(ctx, productID, delta)
	})
	if err != nil {
		return 0, err
	}
	quantity, _ := value.(int)
	return quantity, nil
}
