// Package messaging pushes performance alerts and periodic metric summaries
// to connected websocket dashboard clients.
package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/alerting"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/logging"
	"github.com/mrzlfz/stokcerdas-go/internal/infrastructure/observability/metrics"
)

// Client represents a single connected dashboard client. A client with an
// empty TenantID watches every scope.
type Client struct {
	Conn     *websocket.Conn
	TenantID string
	Send     chan []byte
}

// NewClient wraps a websocket connection with a buffered send queue.
func NewClient(conn *websocket.Conn, tenantID string) *Client {
	return &Client{Conn: conn, TenantID: tenantID, Send: make(chan []byte, 32)}
}

// envelope is the wire format pushed to clients.
type envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// AlertBroadcaster manages connected clients and fans alerts out to them.
// It implements the alert engine's notifier contract.
type AlertBroadcaster struct {
	tenantClients map[string]map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	stop          chan struct{}
	stopOnce      sync.Once

	collector *metrics.Collector
	logger    *logging.ChanneledLogger
	interval  time.Duration
	mu        sync.RWMutex
}

// NewAlertBroadcaster creates a broadcaster that also pushes a metrics
// summary to connected clients on a fixed interval.
func NewAlertBroadcaster(collector *metrics.Collector, logger *logging.ChanneledLogger) *AlertBroadcaster {
	return &AlertBroadcaster{
		tenantClients: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		stop:          make(chan struct{}),
		collector:     collector,
		logger:        logger,
		interval:      20 * time.Second,
	}
}

// Run starts the broadcaster's main loop. This should be run as a goroutine.
func (b *AlertBroadcaster) Run() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			if _, ok := b.tenantClients[client.TenantID]; !ok {
				b.tenantClients[client.TenantID] = make(map[*Client]bool)
			}
			b.tenantClients[client.TenantID][client] = true
			b.mu.Unlock()
			if b.logger != nil {
				b.logger.System().Info("Alert dashboard client registered", "tenantId", client.TenantID)
			}

		case client := <-b.unregister:
			b.mu.Lock()
			if clients, ok := b.tenantClients[client.TenantID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(b.tenantClients, client.TenantID)
					}
				}
			}
			b.mu.Unlock()

		case <-ticker.C:
			b.broadcastMetricSummaries()

		case <-b.stop:
			b.closeAll()
			return
		}
	}
}

// Register queues a client for registration.
func (b *AlertBroadcaster) Register(client *Client) {
	b.register <- client
}

// Unregister queues a client for removal.
func (b *AlertBroadcaster) Unregister(client *Client) {
	b.unregister <- client
}

// Stop shuts down the run loop and disconnects all clients.
func (b *AlertBroadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// Notify delivers one alert to global watchers and to the alert's tenant
// watchers. Slow clients have the message dropped rather than blocking.
func (b *AlertBroadcaster) Notify(alert alerting.Alert) error {
	message, err := json.Marshal(envelope{Type: "alert", Timestamp: time.Now(), Payload: alert})
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	b.sendToScope("", message)
	if alert.TenantID != "" {
		b.sendToScope(alert.TenantID, message)
	}
	return nil
}

// broadcastMetricSummaries pushes the current snapshot of each watched
// scope to its clients.
func (b *AlertBroadcaster) broadcastMetricSummaries() {
	if b.collector == nil {
		return
	}

	b.mu.RLock()
	tenantIDs := make([]string, 0, len(b.tenantClients))
	for tenantID := range b.tenantClients {
		tenantIDs = append(tenantIDs, tenantID)
	}
	b.mu.RUnlock()

	for _, tenantID := range tenantIDs {
		snapshot := b.collector.Snapshot(tenantID)
		message, err := json.Marshal(envelope{Type: "metrics", Timestamp: time.Now(), Payload: snapshot})
		if err != nil {
			if b.logger != nil {
				b.logger.System().Error("Failed to marshal metrics summary", "tenantId", tenantID, "error", err)
			}
			continue
		}
		b.mu.RLock()
		b.sendToScope(tenantID, message)
		b.mu.RUnlock()
	}
}

// sendToScope requires at least a read lock held by the caller.
func (b *AlertBroadcaster) sendToScope(tenantID string, message []byte) {
	clients, ok := b.tenantClients[tenantID]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.Send <- message:
		default:
		}
	}
}

func (b *AlertBroadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tenantID, clients := range b.tenantClients {
		for client := range clients {
			close(client.Send)
		}
		delete(b.tenantClients, tenantID)
	}
}

// WritePump drains a client's send queue onto its connection. Runs as one
// goroutine per client; returns when the queue closes or a write fails.
func (b *AlertBroadcaster) WritePump(client *Client) {
	defer client.Conn.Close()
	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump consumes control frames until the peer disconnects, then
// unregisters the client.
func (b *AlertBroadcaster) ReadPump(client *Client) {
	defer b.Unregister(client)
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
