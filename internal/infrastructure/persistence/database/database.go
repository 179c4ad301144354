// Package database provides the instrumented database connection. Every
// query reports its duration to the metric collector and is checked against
// the slow query alert threshold, without the caller doing anything extra.
package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// QueryRecorder receives one event per executed query. Implementations
// must not block.
type QueryRecorder interface {
	RecordQuery(sql string, durationMs float64, tenantID string)
}

// QueryChecker evaluates a query duration against alert thresholds.
type QueryChecker interface {
	CheckQuery(sql string, durationMs float64, tenantID string)
}

// DB wraps a standard SQL connection with query instrumentation.
type DB struct {
	*sql.DB
	recorder QueryRecorder
	checker  QueryChecker
	logger   *logging.ChanneledLogger
}

// NewConnection establishes an instrumented sqlite connection. recorder and
// checker may be nil.
func NewConnection(dataSourceName string, recorder QueryRecorder, checker QueryChecker, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	if logger != nil {
		logger.Database().Debug("Creating database connection", "dataSource", dataSourceName)
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		if logger != nil {
			logger.Database().Error("Failed to open database connection", "error", err.Error())
		}
		return nil, err
	}

	if err = db.Ping(); err != nil {
		if logger != nil {
			logger.Database().Error("Database ping failed", "error", err.Error())
		}
		return nil, err
	}

	if logger != nil {
		logger.Database().Info("Database connection established",
			"dataSource", dataSourceName, "duration", time.Since(start))
	}

	return &DB{DB: db, recorder: recorder, checker: checker, logger: logger}, nil
}

// QueryContext runs a query and reports its duration.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.observe(ctx, query, start)
	return rows, err
}

// QueryRowContext runs a single-row query and reports its duration.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	db.observe(ctx, query, start)
	return row
}

// ExecContext runs a statement and reports its duration.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.observe(ctx, query, start)
	return result, err
}

func (db *DB) observe(ctx context.Context, query string, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	tenantID, _ := tenant.FromContext(ctx)

	if db.recorder != nil {
		db.recorder.RecordQuery(query, durationMs, tenantID)
	}
	if db.checker != nil {
		db.checker.CheckQuery(query, durationMs, tenantID)
	}
	if db.logger != nil && durationMs >= float64(config.SlowQueryThresholdMs) {
		db.logger.LogSlowQuery(query, time.Since(start), tenantID)
	}
}
