// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/mrzlfz/stokcerdas-go/internal/application/services"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/cleanup"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/invalidation"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/keys"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/orchestrator"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/registry"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/caching/stores"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/email"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/messaging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/reports"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/snapshots"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/persistence/database"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies.
// Every instance is isolated, so tests can construct as many as they need.
type Container struct {
	Logger *logging.ChanneledLogger

	// Caching infrastructure
	Registry    *registry.Registry
	CacheStore  *stores.Store
	Invalidator *invalidation.Engine
	Cache       *orchestrator.Orchestrator
	Cleanup     *cleanup.Worker

	// Observability infrastructure
	Collector     *metrics.Collector
	AlertEngine   *alerting.Engine
	SnapshotStore *snapshots.Store
	Reports       *reports.Generator
	Broadcaster   *messaging.AlertBroadcaster

	// Persistence
	DB            *database.DB
	InventoryRepo *database.InventoryRepository

	// Application services
	Inventory   *services.InventoryService
	Warmup      *services.WarmupService
	Performance *services.PerformanceService

	// Tenant bookkeeping
	Tenants *tenant.Registry
}

// NewContainer creates and wires all singleton services. Background
// goroutines are not started here; the startup sequence owns lifecycles.
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	c := &Container{Logger: logger}

	// caching layer
	c.Registry = registry.New()
	c.CacheStore = stores.NewStore(config.MaxCacheEntries, logger)
	c.Invalidator = invalidation.NewEngine(c.CacheStore, logger)
	c.Cleanup = cleanup.NewWorker(c.CacheStore, logger)

	// observability layer
	c.Collector = metrics.NewCollector(logger)
	thresholds := alerting.DefaultThresholds()
	c.AlertEngine = alerting.NewEngine(thresholds, logger)
	c.SnapshotStore = snapshots.NewStore(c.Collector, c.AlertEngine, logger)
	c.Reports = reports.NewGenerator(c.SnapshotStore, c.Collector, thresholds, logger)
	c.Broadcaster = messaging.NewAlertBroadcaster(c.Collector, logger)
	c.AlertEngine.AddNotifier(c.Broadcaster)

	if emailService, err := email.NewService(); err == nil {
		c.AlertEngine.AddNotifier(email.NewAlertNotifier(emailService))
		logger.Startup().Info("Email alert notifier enabled")
	} else {
		logger.Startup().Info("Email alert notifier disabled", "reason", err.Error())
	}

	deriver := keys.NewDeriver(logger)
	c.Cache = orchestrator.New(c.Registry, deriver, c.CacheStore, c.Invalidator, c.Collector, logger)

	// persistence
	db, err := database.NewConnection(config.DemoDatabasePath, c.Collector, c.AlertEngine, logger)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	c.DB = db

	c.InventoryRepo, err = database.NewInventoryRepository(db)
	if err != nil {
		return nil, err
	}

	// application services
	c.Tenants = tenant.NewRegistry(logger)
	for _, tenantID := range config.SeedTenants {
		c.Tenants.Activate(tenantID)
	}
	c.Inventory, err = services.NewInventoryService(c.InventoryRepo, c.Cache, c.Registry, logger)
	if err != nil {
		return nil, err
	}
	c.Warmup = services.NewWarmupService(c.Inventory, c.Tenants, logger)
	c.Performance = services.NewPerformanceService(
		c.Collector, c.SnapshotStore, c.Reports, c.AlertEngine, c.CacheStore, thresholds, logger)

	return c, nil
}

// Close releases the container's external resources.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
