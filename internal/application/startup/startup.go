// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/application/container"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/presentation/http/server"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	// Step 1: Validate configuration
	log.Println("Validating configuration...")
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	// Step 2: Create the channeled logger
	log.Println("Initializing channeled logging...")
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized - switching to structured output")

	// Step 3: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(logger)
	if err != nil {
		return fmt.Errorf("container initialization failed: %w", err)
	}
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 4: Start the metric pipeline and alert broadcaster
	logger.Startup().Info("Starting metric collector...")
	appContainer.Collector.Start()
	go appContainer.Broadcaster.Run()

	// Step 5: Start the background cache sweep worker
	logger.Startup().Info("Starting cache cleanup worker...")
	appContainer.Cleanup.Start()

	// Step 6: Boot-time cache warmup
	logger.Startup().Info("Running boot cache warmup...")
	startWarmTime := time.Now()
	results := appContainer.Warmup.WarmupAll(context.Background())
	logger.Startup().Info("Boot cache warmup finished",
		"queries", len(results), "duration", time.Since(startWarmTime).String())

	// Step 7: Start the cron scheduler
	logger.Startup().Info("Starting scheduler...")
	scheduler, err := newScheduler(appContainer)
	if err != nil {
		return fmt.Errorf("scheduler setup failed: %w", err)
	}
	scheduler.Start()
	logger.Startup().Info("Scheduler started",
		"snapshotSpec", config.SnapshotSpec,
		"warmupHour", config.WarmupLocalHour,
		"reportHour", config.ReportLocalHour)

	// Step 8: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("HTTP server listening", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start).String(),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Stop accepting requests first
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Then the recurring jobs, so no new work starts
	logger.Shutdown().Info("Stopping scheduler...")
	<-scheduler.Stop().Done()

	// Then the background workers and the metric pipeline
	logger.Shutdown().Info("Stopping cleanup worker and broadcaster...")
	appContainer.Cleanup.Stop()
	appContainer.Broadcaster.Stop()

	logger.Shutdown().Info("Stopping metric collector...")
	appContainer.Collector.Stop()

	logger.Shutdown().Info("Closing container resources...")
	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start).String(),
		"shutdownDuration", time.Since(shutdownStart).String())

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
