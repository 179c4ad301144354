// Package snapshots maintains the rolling per-scope history of metric
// snapshots captured on a schedule, plus the baseline used for
// before/after comparisons.
package snapshots

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

// Store captures collector state into bounded per-scope rolling histories.
// Each capture resets the collector's counters so consecutive snapshots
// cover disjoint intervals.
type Store struct {
	collector *metrics.Collector
	alerts    *alerting.Engine
	logger    *logging.ChanneledLogger

	mu        sync.RWMutex
	history   map[string][]metrics.Snapshot
	baselines map[string]metrics.Snapshot

	window       time.Duration
	maxSnapshots int
	collecting   atomic.Bool
	now          func() time.Time
}

// NewStore creates a snapshot store. alerts may be nil.
func NewStore(collector *metrics.Collector, alerts *alerting.Engine, logger *logging.ChanneledLogger) *Store {
	return &Store{
		collector:    collector,
		alerts:       alerts,
		logger:       logger,
		history:      make(map[string][]metrics.Snapshot),
		baselines:    make(map[string]metrics.Snapshot),
		window:       config.SnapshotWindow,
		maxSnapshots: config.MaxSnapshots,
		now:          time.Now,
	}
}

// Collect captures and resets every active scope, evaluates aggregate
// alert thresholds, and prunes history beyond the rolling window. An
// overlapping invocation is skipped to avoid double counting.
func (s *Store) Collect() {
	if !s.collecting.CompareAndSwap(false, true) {
		if s.logger != nil {
			s.logger.Perf().Debug("Snapshot collection already running, skipping")
		}
		return
	}
	defer s.collecting.Store(false)

	for _, scope := range s.collector.ActiveScopes() {
		tenantID := ""
		if scope != metrics.GlobalScope {
			tenantID = scope
		}
		snapshot := s.collector.SnapshotAndReset(tenantID)
		s.append(scope, snapshot)

		if s.alerts != nil {
			s.alerts.EvaluateSnapshot(snapshot)
		}
	}
}

// History returns the stored snapshots for a scope, oldest first. Pass ""
// for the global scope.
func (s *Store) History(tenantID string) []metrics.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]metrics.Snapshot(nil), s.history[scopeKey(tenantID)]...)
}

// Window returns the scope's snapshots captured within the trailing period.
func (s *Store) Window(tenantID string, period time.Duration) []metrics.Snapshot {
	cutoff := s.now().Add(-period)

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.history[scopeKey(tenantID)]
	out := make([]metrics.Snapshot, 0, len(all))
	for _, snapshot := range all {
		if !snapshot.Timestamp.Before(cutoff) {
			out = append(out, snapshot)
		}
	}
	return out
}

// SetBaseline captures the scope's current metrics without resetting the
// collector and stores them as the comparison reference.
func (s *Store) SetBaseline(tenantID string) metrics.Snapshot {
	snapshot := s.collector.Snapshot(tenantID)

	s.mu.Lock()
	s.baselines[scopeKey(tenantID)] = snapshot
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Perf().Info("Performance baseline captured",
			"scope", scopeKey(tenantID), "snapshotId", snapshot.ID)
	}
	return snapshot
}

// Baseline returns the stored baseline for a scope.
func (s *Store) Baseline(tenantID string) (metrics.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	baseline, exists := s.baselines[scopeKey(tenantID)]
	return baseline, exists
}

func (s *Store) append(scope string, snapshot metrics.Snapshot) {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.history[scope], snapshot)
	for len(history) > 0 && history[0].Timestamp.Before(cutoff) {
		history = history[1:]
	}
	if len(history) > s.maxSnapshots {
		history = history[len(history)-s.maxSnapshots:]
	}
	s.history[scope] = history
}

func scopeKey(tenantID string) string {
	if tenantID == "" {
		return metrics.GlobalScope
	}
	return tenantID
}
