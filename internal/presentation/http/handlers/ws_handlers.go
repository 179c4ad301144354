package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/messaging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandlers upgrades dashboard connections onto the alert broadcaster.
type WSHandlers struct {
	broadcaster *messaging.AlertBroadcaster
	logger      *logging.ChanneledLogger
}

// NewWSHandlers creates the websocket handler set.
func NewWSHandlers(broadcaster *messaging.AlertBroadcaster, logger *logging.ChanneledLogger) *WSHandlers {
	return &WSHandlers{broadcaster: broadcaster, logger: logger}
}

// StreamAlerts upgrades the connection and attaches the client to the
// broadcaster. A tenantId query param scopes the stream; without one the
// client watches every scope.
func (h *WSHandlers) StreamAlerts(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.System().Error("Websocket upgrade failed", "error", err)
		}
		return
	}

	client := messaging.NewClient(conn, c.Query("tenantId"))
	h.broadcaster.Register(client)

	go h.broadcaster.WritePump(client)
	go h.broadcaster.ReadPump(client)
}
