// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

// TenantIDKey is the gin context key carrying the resolved tenant id.
const TenantIDKey = "tenantId"

// TenantMiddleware resolves the tenant from the X-Tenant-ID header and
// attaches it to the request context so cache keys and metrics downstream
// are scoped without further plumbing.
func TenantMiddleware(registry *tenant.Registry, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			tenantID = c.Query("tenantId")
		}

		if tenantID == "" {
			if logger != nil {
				logger.Tenant().Warn("Missing tenant identification", "path", c.Request.URL.Path)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Tenant-ID header or tenantId query param is required"})
			c.Abort()
			return
		}

		registry.Activate(tenantID)
		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(tenant.WithTenant(c.Request.Context(), tenantID))

		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Request = c.Request.WithContext(tenant.WithUser(c.Request.Context(), userID))
		}

		c.Next()
	}
}

// RequestTenant returns the tenant id resolved by TenantMiddleware, or ""
// for routes mounted outside it.
func RequestTenant(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}
