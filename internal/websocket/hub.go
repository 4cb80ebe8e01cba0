package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	TenantID() string
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by tenant. It is the push
// side of the stock alert channel (C6): the stock service broadcasts a
// StockAlert to every client connected for a tenant, typically one per
// back-office session watching low-stock/reorder notifications.
// It is safe for concurrent use.
type Hub struct {
	// tenants maps tenant ID to a map of client ID to client
	tenants map[string]map[string]ClientInterface
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		tenants: make(map[string]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its tenant
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tenantID := client.TenantID()
	clientID := client.ID()

	if h.tenants[tenantID] == nil {
		h.tenants[tenantID] = make(map[string]ClientInterface)
	}

	h.tenants[tenantID][clientID] = client

	log.Debug().
		Str("tenant_id", tenantID).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tenantID := client.TenantID()
	clientID := client.ID()

	if clients, ok := h.tenants[tenantID]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			// Clean up empty tenant maps
			if len(clients) == 0 {
				delete(h.tenants, tenantID)
			}

			log.Debug().
				Str("tenant_id", tenantID).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to all clients connected for a specific tenant
func (h *Hub) Broadcast(tenantID string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("tenant_id", tenantID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.tenants[tenantID]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	// Send to each client asynchronously
	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("tenant_id", tenantID).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("tenant_id", tenantID).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients connected to a tenant
func (h *Hub) ClientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.tenants[tenantID]; ok {
		return len(clients)
	}
	return 0
}

// TotalClientCount returns the total number of connected clients across all tenants
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.tenants {
		total += len(clients)
	}
	return total
}

// CloseAll closes every connected client across every tenant and empties the
// hub. Called during process shutdown, after the schedulers stop and before
// storage/HTTP pools drain, per spec §5's shutdown order.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for tenantID, clients := range h.tenants {
		for clientID, client := range clients {
			if err := client.Close(); err != nil {
				log.Warn().
					Err(err).
					Str("tenant_id", tenantID).
					Str("client_id", clientID).
					Msg("failed to close WebSocket client during shutdown")
			}
		}
	}
	h.tenants = make(map[string]map[string]ClientInterface)
}
