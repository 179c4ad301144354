package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrzlfz/stokcerdas-go/internal/application/container"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// cronLogger adapts a slog channel to the cron logger contract.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// newScheduler wires the recurring jobs: metric snapshots every interval,
// cache warmup at the low-traffic hour, and a daily report summary. Jobs
// that are still running when their next tick arrives are skipped.
func newScheduler(c *container.Container) (*cron.Cron, error) {
	location, err := time.LoadLocation(config.LocalTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", config.LocalTimezone, err)
	}

	logger := cronLogger{logger: c.Logger.System()}
	scheduler := cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := scheduler.AddFunc(config.SnapshotSpec, c.SnapshotStore.Collect); err != nil {
		return nil, fmt.Errorf("snapshot schedule: %w", err)
	}

	warmupSpec := fmt.Sprintf("0 %d * * *", config.WarmupLocalHour)
	if _, err := scheduler.AddFunc(warmupSpec, func() {
		c.Warmup.WarmupAll(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("warmup schedule: %w", err)
	}

	reportSpec := fmt.Sprintf("0 %d * * *", config.ReportLocalHour)
	if _, err := scheduler.AddFunc(reportSpec, func() {
		logDailyReport(c)
	}); err != nil {
		return nil, fmt.Errorf("report schedule: %w", err)
	}

	return scheduler, nil
}

// logDailyReport generates the trailing-24h global report and logs its
// headline numbers on the performance channel.
func logDailyReport(c *container.Container) {
	report, err := c.Reports.Generate("", 24*time.Hour)
	if err != nil {
		c.Logger.Perf().Warn("Daily report skipped", "error", err)
		return
	}

	c.Logger.Perf().Info("Daily performance report",
		"health", report.Health,
		"score", report.Score,
		"avgQueryMs", report.Summary.AverageQueryTimeMs,
		"avgResponseMs", report.Summary.AverageAPIResponseMs,
		"cacheHitRatio", report.Summary.CacheHitRatio,
		"snapshots", report.SnapshotCount,
		"recommendations", len(report.Recommendations))
	for _, recommendation := range report.Recommendations {
		c.Logger.Perf().Info("Recommendation", "text", recommendation)
	}
}
