// Package metrics accumulates running statistics from query, API, and
// cache events, plus sampled system state. Counters represent activity
// since the last snapshot reset, not process lifetime.
package metrics

import "time"

// GlobalScope is the scope key for metrics not attributed to a tenant.
const GlobalScope = "global"

// SlowQuery is one tracked slow database query.
type SlowQuery struct {
	SQL        string    `json:"sql"`
	DurationMs float64   `json:"durationMs"`
	TenantID   string    `json:"tenantId,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// DatabaseMetrics is the running database statistics record.
type DatabaseMetrics struct {
	QueryCount         int64       `json:"queryCount"`
	SlowQueries        int64       `json:"slowQueries"`
	AverageQueryTimeMs float64     `json:"averageQueryTime"`
	TopSlowQueries     []SlowQuery `json:"topSlowQueries"`
}

// CacheMetrics is the running cache statistics record. HitRatio and
// MissRatio are percentages that always sum to 100 once TotalRequests > 0.
type CacheMetrics struct {
	Hits                  int64   `json:"hits"`
	Misses                int64   `json:"misses"`
	TotalRequests         int64   `json:"totalRequests"`
	HitRatio              float64 `json:"hitRatio"`
	MissRatio             float64 `json:"missRatio"`
	AverageResponseTimeMs float64 `json:"averageResponseTime"`
	SetCount              int64   `json:"setCount"`
	EvictionCount         int64   `json:"evictionCount"`
}

// EndpointMetrics aggregates one (method, path) pair.
type EndpointMetrics struct {
	Method                string  `json:"method"`
	Path                  string  `json:"path"`
	RequestCount          int64   `json:"requestCount"`
	ErrorCount            int64   `json:"errorCount"`
	AverageResponseTimeMs float64 `json:"averageResponseTime"`
	MaxResponseTimeMs     float64 `json:"maxResponseTime"`
}

// APIMetrics is the running API statistics record.
type APIMetrics struct {
	RequestCount          int64             `json:"requestCount"`
	ErrorCount            int64             `json:"errorCount"`
	ErrorRate             float64           `json:"errorRate"`
	AverageResponseTimeMs float64           `json:"averageResponseTime"`
	TopSlowEndpoints      []EndpointMetrics `json:"topSlowEndpoints"`
}

// SystemMetrics is sampled from the runtime at snapshot time rather than
// accumulated from events.
type SystemMetrics struct {
	CPUUsagePercent    float64 `json:"cpuUsage"`
	MemoryUsagePercent float64 `json:"memoryUsage"`
	HeapUsagePercent   float64 `json:"heapUsage"`
	HeapAllocMB        float64 `json:"heapAllocMB"`
	HeapSysMB          float64 `json:"heapSysMB"`
	GoroutineCount     int     `json:"goroutineCount"`
	GCCycles           uint32  `json:"gcCycles"`
	GCPauseTotalMs     float64 `json:"gcPauseTotalMs"`
}

// Snapshot is an immutable capture of one scope's metrics.
type Snapshot struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	TenantID  string             `json:"tenantId,omitempty"`
	Database  DatabaseMetrics    `json:"database"`
	Cache     CacheMetrics       `json:"cache"`
	API       APIMetrics         `json:"api"`
	System    SystemMetrics      `json:"system"`
	Business  map[string]float64 `json:"business,omitempty"`
}
