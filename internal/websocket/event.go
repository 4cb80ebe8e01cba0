package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// EventType represents the type of event (created, updated, deleted, alert)
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
	EventTypeAlert   EventType = "alert"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeStock     EntityType = "stock"
	EntityTypeCart      EntityType = "cart"
	EntityTypeTerminal  EntityType = "terminal"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "stock.alert"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "stock"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// StockAlertEvent wraps a domain.StockAlert as a stock.alert push event.
func StockAlertEvent(alert domain.StockAlert) Event {
	return NewEvent(EventTypeAlert, EntityTypeStock, alert)
}
