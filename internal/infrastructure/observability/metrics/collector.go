package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/pkg/config"
)

type eventKind int

const (
	eventQuery eventKind = iota
	eventAPIRequest
	eventCacheOperation
	eventBusiness
)

type event struct {
	kind       eventKind
	tenantID   string
	durationMs float64

	sql        string
	method     string
	path       string
	statusCode int
	operation  string
	name       string
	value      float64
}

// scopeStats holds one scope's accumulators. All access goes through the
// collector mutex.
type scopeStats struct {
	db        DatabaseMetrics
	cache     CacheMetrics
	api       APIMetrics
	endpoints map[string]*EndpointMetrics
	business  map[string]float64
}

func newScopeStats() *scopeStats {
	return &scopeStats{
		endpoints: make(map[string]*EndpointMetrics),
		business:  make(map[string]float64),
	}
}

// Collector ingests instrumentation events through a bounded queue so the
// request path that produced them never blocks on metric recording. Events
// that arrive while the queue is full are dropped and counted.
type Collector struct {
	mu     sync.RWMutex
	scopes map[string]*scopeStats

	events  chan event
	dropped atomic.Int64

	slowQueryThresholdMs float64
	slowItemLimit        int

	sampler *systemSampler
	logger  *logging.ChanneledLogger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewCollector creates a collector using the configured queue size and
// thresholds. Call Start before recording.
func NewCollector(logger *logging.ChanneledLogger) *Collector {
	return &Collector{
		scopes:               map[string]*scopeStats{GlobalScope: newScopeStats()},
		events:               make(chan event, config.EventQueueSize),
		slowQueryThresholdMs: float64(config.SlowQueryThresholdMs),
		slowItemLimit:        config.SlowItemLimit,
		sampler:              newSystemSampler(),
		logger:               logger,
		stop:                 make(chan struct{}),
		done:                 make(chan struct{}),
	}
}

// Start launches the drain goroutine.
func (c *Collector) Start() {
	c.startOnce.Do(func() {
		go c.drain()
	})
}

// Stop drains remaining queued events and halts the collector.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// RecordQuery records one executed database query.
func (c *Collector) RecordQuery(sql string, durationMs float64, tenantID string) {
	c.enqueue(event{kind: eventQuery, sql: sql, durationMs: durationMs, tenantID: tenantID})
}

// RecordAPIRequest records one completed HTTP request.
func (c *Collector) RecordAPIRequest(method, path string, durationMs float64, statusCode int, tenantID string) {
	c.enqueue(event{kind: eventAPIRequest, method: method, path: path, durationMs: durationMs, statusCode: statusCode, tenantID: tenantID})
}

// RecordCacheOperation records one cache operation (hit, miss, set, evict).
func (c *Collector) RecordCacheOperation(operation, pattern string, durationMs float64, tenantID string) {
	c.enqueue(event{kind: eventCacheOperation, operation: operation, name: pattern, durationMs: durationMs, tenantID: tenantID})
}

// RecordBusinessMetric adds to a free-form named counter.
func (c *Collector) RecordBusinessMetric(name string, value float64, tenantID string) {
	c.enqueue(event{kind: eventBusiness, name: name, value: value, tenantID: tenantID})
}

// DroppedEvents reports how many events were discarded on queue overflow.
func (c *Collector) DroppedEvents() int64 {
	return c.dropped.Load()
}

func (c *Collector) enqueue(e event) {
	select {
	case c.events <- e:
	default:
		if c.dropped.Add(1) == 1 && c.logger != nil {
			c.logger.Perf().Warn("Metric event queue full, dropping events")
		}
	}
}

func (c *Collector) drain() {
	defer close(c.done)
	for {
		select {
		case e := <-c.events:
			c.apply(e)
		case <-c.stop:
			for {
				select {
				case e := <-c.events:
					c.apply(e)
				default:
					return
				}
			}
		}
	}
}

func (c *Collector) apply(e event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.applyToScope(c.scopeLocked(GlobalScope), e)
	if e.tenantID != "" {
		c.applyToScope(c.scopeLocked(e.tenantID), e)
	}
}

func (c *Collector) scopeLocked(key string) *scopeStats {
	stats, exists := c.scopes[key]
	if !exists {
		stats = newScopeStats()
		c.scopes[key] = stats
	}
	return stats
}

func (c *Collector) applyToScope(s *scopeStats, e event) {
	switch e.kind {
	case eventQuery:
		s.db.QueryCount++
		s.db.AverageQueryTimeMs = runningMean(s.db.AverageQueryTimeMs, e.durationMs, s.db.QueryCount)
		if e.durationMs >= c.slowQueryThresholdMs {
			s.db.SlowQueries++
			s.db.TopSlowQueries = appendBounded(s.db.TopSlowQueries, SlowQuery{
				SQL:        e.sql,
				DurationMs: e.durationMs,
				TenantID:   e.tenantID,
				RecordedAt: time.Now(),
			}, c.slowItemLimit)
		}

	case eventAPIRequest:
		s.api.RequestCount++
		s.api.AverageResponseTimeMs = runningMean(s.api.AverageResponseTimeMs, e.durationMs, s.api.RequestCount)
		isError := e.statusCode >= 500
		if isError {
			s.api.ErrorCount++
		}
		s.api.ErrorRate = ratio(s.api.ErrorCount, s.api.RequestCount)

		key := e.method + " " + e.path
		ep, exists := s.endpoints[key]
		if !exists {
			ep = &EndpointMetrics{Method: e.method, Path: e.path}
			s.endpoints[key] = ep
		}
		ep.RequestCount++
		ep.AverageResponseTimeMs = runningMean(ep.AverageResponseTimeMs, e.durationMs, ep.RequestCount)
		if e.durationMs > ep.MaxResponseTimeMs {
			ep.MaxResponseTimeMs = e.durationMs
		}
		if isError {
			ep.ErrorCount++
		}

	case eventCacheOperation:
		switch e.operation {
		case "hit":
			s.cache.Hits++
		case "miss":
			s.cache.Misses++
		case "set":
			s.cache.SetCount++
		case "evict":
			s.cache.EvictionCount++
		}
		if e.operation == "hit" || e.operation == "miss" {
			s.cache.TotalRequests = s.cache.Hits + s.cache.Misses
			s.cache.HitRatio = ratio(s.cache.Hits, s.cache.TotalRequests)
			s.cache.MissRatio = 100 - s.cache.HitRatio
			lookups := s.cache.TotalRequests
			s.cache.AverageResponseTimeMs = runningMean(s.cache.AverageResponseTimeMs, e.durationMs, lookups)
		}

	case eventBusiness:
		s.business[e.name] += e.value
	}
}

// Snapshot captures the current state of one scope. System metrics are
// sampled at call time. Pass "" for the global scope.
func (c *Collector) Snapshot(tenantID string) Snapshot {
	system := c.sampler.sample()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(scopeKey(tenantID), system)
}

// SnapshotAndReset captures one scope and zeroes its running counters, so
// the next snapshot covers only the interval that follows.
func (c *Collector) SnapshotAndReset(tenantID string) Snapshot {
	system := c.sampler.sample()
	key := scopeKey(tenantID)

	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := c.snapshotLocked(key, system)
	c.scopes[key] = newScopeStats()
	return snapshot
}

// ActiveScopes lists scope keys with recorded activity, global first.
func (c *Collector) ActiveScopes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.scopes))
	for key := range c.scopes {
		if key != GlobalScope {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return append([]string{GlobalScope}, keys...)
}

func (c *Collector) snapshotLocked(key string, system SystemMetrics) Snapshot {
	snapshot := Snapshot{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		System:    system,
	}
	if key != GlobalScope {
		snapshot.TenantID = key
	}

	stats, exists := c.scopes[key]
	if !exists {
		return snapshot
	}

	snapshot.Database = stats.db
	snapshot.Database.TopSlowQueries = append([]SlowQuery(nil), stats.db.TopSlowQueries...)
	snapshot.Cache = stats.cache
	snapshot.API = stats.api
	snapshot.API.TopSlowEndpoints = topSlowEndpoints(stats.endpoints, c.slowItemLimit)
	if len(stats.business) > 0 {
		snapshot.Business = make(map[string]float64, len(stats.business))
		for name, value := range stats.business {
			snapshot.Business[name] = value
		}
	}
	return snapshot
}

func topSlowEndpoints(endpoints map[string]*EndpointMetrics, limit int) []EndpointMetrics {
	ranked := make([]EndpointMetrics, 0, len(endpoints))
	for _, ep := range endpoints {
		ranked = append(ranked, *ep)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].AverageResponseTimeMs > ranked[j].AverageResponseTimeMs
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// runningMean folds one observation into an incrementally maintained mean.
func runningMean(mean, value float64, count int64) float64 {
	return mean + (value-mean)/float64(count)
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func appendBounded(list []SlowQuery, candidate SlowQuery, limit int) []SlowQuery {
	list = append(list, candidate)
	sort.Slice(list, func(i, j int) bool { return list[i].DurationMs > list[j].DurationMs })
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func scopeKey(tenantID string) string {
	if tenantID == "" {
		return GlobalScope
	}
	return tenantID
}
