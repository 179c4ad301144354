// Package config provides centralized default values for the performance core
package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Cache Tier TTLs
	HotTierTTL  time.Duration
	WarmTierTTL time.Duration
	ColdTierTTL time.Duration

	// Cache Store
	MaxCacheEntries int
	StoreTimeout    time.Duration
	SweepInterval   time.Duration
	SweepVerbose    bool

	// Metric Collection
	EventQueueSize   int
	SlowItemLimit    int
	SnapshotSpec     string
	SnapshotWindow   time.Duration
	MaxSnapshots     int
	AlertHistorySize int

	// Alert Thresholds
	SlowQueryThresholdMs float64
	SlowAPIThresholdMs   float64
	MinCacheHitRatio     float64
	MinHitRatioRequests  int64
	MaxCPUPercent        float64
	MaxMemoryPercent     float64

	// Scheduling
	WarmupLocalHour int
	ReportLocalHour int
	LocalTimezone   string

	// Demo database used by warmup producers
	DemoDatabasePath string

	// Tenants pre-activated at startup so scheduled warmup has a roster
	// before the first request arrives
	SeedTenants []string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Cache Tier TTLs
	HotTierTTL = time.Duration(getEnvInt("HOT_TIER_TTL_MINUTES", 5)) * time.Minute
	WarmTierTTL = time.Duration(getEnvInt("WARM_TIER_TTL_MINUTES", 30)) * time.Minute
	ColdTierTTL = time.Duration(getEnvInt("COLD_TIER_TTL_MINUTES", 60)) * time.Minute

	// Cache Store
	MaxCacheEntries = getEnvInt("MAX_CACHE_ENTRIES", 100000)
	StoreTimeout = getEnvDuration("CACHE_STORE_TIMEOUT", 250*time.Millisecond)
	SweepInterval = time.Duration(getEnvInt("CACHE_SWEEP_INTERVAL_MINUTES", 5)) * time.Minute
	SweepVerbose = getEnvBool("CACHE_SWEEP_VERBOSE", false)

	// Metric Collection
	EventQueueSize = getEnvInt("METRIC_EVENT_QUEUE_SIZE", 4096)
	SlowItemLimit = getEnvInt("SLOW_ITEM_LIMIT", 10)
	SnapshotSpec = getEnvString("SNAPSHOT_CRON_SPEC", "@every 1m")
	SnapshotWindow = time.Duration(getEnvInt("SNAPSHOT_WINDOW_HOURS", 24)) * time.Hour
	MaxSnapshots = getEnvInt("MAX_SNAPSHOTS_PER_SCOPE", 1440)
	AlertHistorySize = getEnvInt("ALERT_HISTORY_SIZE", 100)

	// Alert Thresholds
	SlowQueryThresholdMs = getEnvFloat("SLOW_QUERY_THRESHOLD_MS", 1000)
	SlowAPIThresholdMs = getEnvFloat("SLOW_API_THRESHOLD_MS", 2000)
	MinCacheHitRatio = getEnvFloat("MIN_CACHE_HIT_RATIO", 70)
	MinHitRatioRequests = int64(getEnvInt("MIN_HIT_RATIO_REQUESTS", 100))
	MaxCPUPercent = getEnvFloat("MAX_CPU_PERCENT", 80)
	MaxMemoryPercent = getEnvFloat("MAX_MEMORY_PERCENT", 85)

	// Scheduling
	WarmupLocalHour = getEnvInt("WARMUP_LOCAL_HOUR", 2)
	ReportLocalHour = getEnvInt("REPORT_LOCAL_HOUR", 6)
	LocalTimezone = getEnvString("LOCAL_TIMEZONE", "Local")

	// Demo database
	DemoDatabasePath = getEnvString("DEMO_DATABASE_PATH", "data/stokcerdas.db")

	// Tenant roster
	SeedTenants = splitList(getEnvString("SEED_TENANT_IDS", ""))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects invalid threshold and scheduling configuration eagerly so
// a bad deployment fails at startup instead of producing silent garbage later.
func Validate() error {
	if SlowQueryThresholdMs <= 0 {
		return fmt.Errorf("SLOW_QUERY_THRESHOLD_MS must be positive, got %g", SlowQueryThresholdMs)
	}
	if SlowAPIThresholdMs <= 0 {
		return fmt.Errorf("SLOW_API_THRESHOLD_MS must be positive, got %g", SlowAPIThresholdMs)
	}
	if MinCacheHitRatio < 0 || MinCacheHitRatio > 100 {
		return fmt.Errorf("MIN_CACHE_HIT_RATIO must be within [0,100], got %g", MinCacheHitRatio)
	}
	if MaxCPUPercent <= 0 || MaxCPUPercent > 100 {
		return fmt.Errorf("MAX_CPU_PERCENT must be within (0,100], got %g", MaxCPUPercent)
	}
	if MaxMemoryPercent <= 0 || MaxMemoryPercent > 100 {
		return fmt.Errorf("MAX_MEMORY_PERCENT must be within (0,100], got %g", MaxMemoryPercent)
	}
	if SnapshotWindow <= 0 {
		return fmt.Errorf("SNAPSHOT_WINDOW_HOURS must be positive, got %s", SnapshotWindow)
	}
	if MaxSnapshots <= 0 {
		return fmt.Errorf("MAX_SNAPSHOTS_PER_SCOPE must be positive, got %d", MaxSnapshots)
	}
	if AlertHistorySize <= 0 {
		return fmt.Errorf("ALERT_HISTORY_SIZE must be positive, got %d", AlertHistorySize)
	}
	if WarmupLocalHour < 0 || WarmupLocalHour > 23 {
		return fmt.Errorf("WARMUP_LOCAL_HOUR must be within [0,23], got %d", WarmupLocalHour)
	}
	if ReportLocalHour < 0 || ReportLocalHour > 23 {
		return fmt.Errorf("REPORT_LOCAL_HOUR must be within [0,23], got %d", ReportLocalHour)
	}
	if MaxCacheEntries <= 0 {
		return fmt.Errorf("MAX_CACHE_ENTRIES must be positive, got %d", MaxCacheEntries)
	}
	return nil
}
