package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/tenant"
)

// AdminHandlers covers the runtime knobs: log levels and the tenant roster.
type AdminHandlers struct {
	logger  *logging.ChanneledLogger
	tenants *tenant.Registry
}

// NewAdminHandlers creates the admin handler set.
func NewAdminHandlers(logger *logging.ChanneledLogger, tenants *tenant.Registry) *AdminHandlers {
	return &AdminHandlers{logger: logger, tenants: tenants}
}

// GetLogLevels returns the effective level of every log channel.
func (h *AdminHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.logger.GetChannelLevels()})
}

type logLevelRequest struct {
	Channel string `json:"channel" binding:"required"`
	Level   string `json:"level" binding:"required"`
}

// SetLogLevel changes one channel's log level at runtime.
func (h *AdminHandlers) SetLogLevel(c *gin.Context) {
	var req logLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	level, err := parseLogLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": req.Channel, "level": level.String()})
}

// ListTenants returns the tenants seen since startup.
func (h *AdminHandlers) ListTenants(c *gin.Context) {
	active := h.tenants.ActiveTenants()
	c.JSON(http.StatusOK, gin.H{"tenants": active, "count": len(active)})
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
		return 0, err
	}
	return level, nil
}
