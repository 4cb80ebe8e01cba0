package websocket

import "github.com/kugelpos/kugel-backend/internal/domain"

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients connected to the specified tenant
	Publish(tenantID string, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the tenant
func (h *Hub) Publish(tenantID string, event Event) {
	h.Broadcast(tenantID, event)
}

// PublishStockAlert broadcasts a stock alert to the tenant's connected clients.
func (h *Hub) PublishStockAlert(tenantID string, alert domain.StockAlert) {
	h.Broadcast(tenantID, StockAlertEvent(alert))
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(tenantID string, event Event) {}

// PublishStockAlert does nothing
func (n *NoOpPublisher) PublishStockAlert(tenantID string, alert domain.StockAlert) {}
