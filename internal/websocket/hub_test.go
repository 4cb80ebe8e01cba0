package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	tenantID string
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id string, tenantID string) *mockClient {
	return &mockClient{
		id:       id,
		tenantID: tenantID,
		messages: make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) TenantID() string {
	return m.tenantID
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func testAlert(quantity string) domain.StockAlert {
	return domain.StockAlert{
		Type:            domain.AlertTypeLowStock,
		ItemCode:        "item-001",
		CurrentQuantity: decimal.RequireFromString(quantity),
		Threshold:       decimal.RequireFromString("10"),
		Timestamp:       time.Now().UTC(),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1", "tenant-a")
	client2 := newMockClient("client-2", "tenant-a")
	client3 := newMockClient("client-3", "tenant-b")

	// Register clients
	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	// Verify counts
	assert.Equal(t, 2, hub.ClientCount("tenant-a"))
	assert.Equal(t, 1, hub.ClientCount("tenant-b"))
	assert.Equal(t, 0, hub.ClientCount("tenant-missing"))

	// Unregister one client from tenant-a
	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount("tenant-a"))

	// Unregister remaining clients
	hub.Unregister(client2)
	hub.Unregister(client3)
	assert.Equal(t, 0, hub.ClientCount("tenant-a"))
	assert.Equal(t, 0, hub.ClientCount("tenant-b"))
}

func TestHub_Broadcast_TenantIsolation(t *testing.T) {
	hub := NewHub()

	// Clients in tenant-a
	clientA1 := newMockClient("client-a1", "tenant-a")
	clientA2 := newMockClient("client-a2", "tenant-a")

	// Client in tenant-b
	clientB := newMockClient("client-b", "tenant-b")

	hub.Register(clientA1)
	hub.Register(clientA2)
	hub.Register(clientB)

	// Broadcast to tenant-a
	evt := StockAlertEvent(testAlert("3"))
	hub.Broadcast("tenant-a", evt)

	// Give goroutines time to process
	time.Sleep(10 * time.Millisecond)

	// tenant-a clients should receive the message
	msgsA1 := clientA1.GetMessages()
	msgsA2 := clientA2.GetMessages()
	assert.Len(t, msgsA1, 1, "clientA1 should receive 1 message")
	assert.Len(t, msgsA2, 1, "clientA2 should receive 1 message")

	// tenant-b client should NOT receive the message
	msgsB := clientB.GetMessages()
	assert.Len(t, msgsB, 0, "clientB should not receive message from tenant-a")
}

func TestHub_Broadcast_MultipleFanOut(t *testing.T) {
	hub := NewHub()

	// Create multiple clients for the same tenant
	clients := make([]*mockClient, 5)
	for i := 0; i < 5; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), "tenant-a")
		hub.Register(clients[i])
	}

	// Broadcast event
	evt := StockAlertEvent(testAlert("1"))
	hub.Broadcast("tenant-a", evt)

	// Give goroutines time to process
	time.Sleep(10 * time.Millisecond)

	// All clients should receive the message
	for i, c := range clients {
		msgs := c.GetMessages()
		assert.Len(t, msgs, 1, "client %d should receive message", i)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	clientCount := 50
	tenants := []string{"tenant-0", "tenant-1", "tenant-2", "tenant-3", "tenant-4"}

	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), tenants[i%len(tenants)])
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}

	wg.Wait()

	total := 0
	for _, tenant := range tenants {
		total += hub.ClientCount(tenant)
	}
	assert.Equal(t, clientCount, total)

	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			evt := StockAlertEvent(testAlert("2"))
			hub.Broadcast(tenants[idx%len(tenants)], evt)
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}

	wg.Wait()

	for _, tenant := range tenants {
		assert.Equal(t, 0, hub.ClientCount(tenant))
	}
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()

	client := newMockClient("client-1", "tenant-a")

	// Should not panic when unregistering a client that was never registered
	require.NotPanics(t, func() {
		hub.Unregister(client)
	})
}

func TestHub_BroadcastToEmptyTenant(t *testing.T) {
	hub := NewHub()

	// Should not panic when broadcasting to a tenant with no clients
	require.NotPanics(t, func() {
		evt := StockAlertEvent(testAlert("1"))
		hub.Broadcast("tenant-missing", evt)
	})
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub()

	a := newMockClient("client-a", "tenant-a")
	b := newMockClient("client-b", "tenant-a")
	c := newMockClient("client-c", "tenant-b")
	hub.Register(a)
	hub.Register(b)
	hub.Register(c)
	require.Equal(t, 3, hub.TotalClientCount())

	hub.CloseAll()

	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
	assert.True(t, c.IsClosed())
	assert.Equal(t, 0, hub.TotalClientCount())
	assert.Equal(t, 0, hub.ClientCount("tenant-a"))
}
