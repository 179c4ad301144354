// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/application/container"
	"github.com/mrzlfz/stokcerdas-go/internal/presentation/http/handlers"
	"github.com/mrzlfz/stokcerdas-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.MetricsMiddleware(container.Collector, container.AlertEngine))

	// Initialize handlers
	inventoryHandlers := handlers.NewInventoryHandlers(container.Inventory)
	performanceHandlers := handlers.NewPerformanceHandlers(container.Performance)
	cacheHandlers := handlers.NewCacheHandlers(container.Performance, container.Invalidator, container.Warmup)
	adminHandlers := handlers.NewAdminHandlers(container.Logger, container.Tenants)
	wsHandlers := handlers.NewWSHandlers(container.Broadcaster, container.Logger)

	// Live alert and metrics stream for the monitoring dashboard.
	r.GET("/ws/alerts", wsHandlers.StreamAlerts)

	// Operator surface: monitoring, cache control, runtime knobs. These are
	// cross-tenant and sit outside the tenant middleware.
	ops := r.Group("/api/v1")
	{
		performance := ops.Group("/performance")
		{
			performance.GET("/metrics", performanceHandlers.GetMetrics)
			performance.GET("/report", performanceHandlers.GetReport)
			performance.GET("/health", performanceHandlers.GetHealth)
			performance.GET("/alerts", performanceHandlers.GetAlerts)
			performance.POST("/baseline", performanceHandlers.SetBaseline)
			performance.GET("/baseline/compare", performanceHandlers.CompareBaseline)
		}

		cache := ops.Group("/cache")
		{
			cache.GET("/stats", cacheHandlers.GetStats)
			cache.POST("/invalidate", cacheHandlers.Invalidate)
			cache.POST("/warmup", cacheHandlers.TriggerWarmup)
		}

		admin := ops.Group("/admin")
		{
			admin.GET("/tenants", adminHandlers.ListTenants)
			admin.GET("/logs/levels", adminHandlers.GetLogLevels)
			admin.POST("/logs/levels", adminHandlers.SetLogLevel)
		}
	}

	// Tenant-facing API. Every route resolves and requires a tenant.
	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(container.Tenants, container.Logger))
	{
		api.GET("/products", inventoryHandlers.ListProducts)
		api.POST("/products", inventoryHandlers.UpsertProduct)
		api.GET("/inventory/low-stock", inventoryHandlers.ListLowStock)
		api.POST("/inventory/:productId/adjust", inventoryHandlers.AdjustStock)
		api.GET("/dashboard/summary", inventoryHandlers.GetDashboard)
	}

	return r
}
