package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
)

// MetricsMiddleware reports every completed request to the metric collector
// and checks its response time against the slow API threshold. Recording is
// queued; the response is never held up by the monitor.
func MetricsMiddleware(collector *metrics.Collector, alerts *alerting.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		durationMs := float64(time.Since(start).Microseconds()) / 1000.0
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		tenantID := RequestTenant(c)

		if collector != nil {
			collector.RecordAPIRequest(c.Request.Method, path, durationMs, c.Writer.Status(), tenantID)
		}
		if alerts != nil {
			alerts.CheckAPIResponse(c.Request.Method, path, durationMs, tenantID)
		}
	}
}
