package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		name     string
		et       EventType
		expected string
	}{
		{"created", EventTypeCreated, "created"},
		{"updated", EventTypeUpdated, "updated"},
		{"deleted", EventTypeDeleted, "deleted"},
		{"alert", EventTypeAlert, "alert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.et))
		})
	}
}

func TestEntityType_String(t *testing.T) {
	tests := []struct {
		name     string
		et       EntityType
		expected string
	}{
		{"stock", EntityTypeStock, "stock"},
		{"cart", EntityTypeCart, "cart"},
		{"terminal", EntityTypeTerminal, "terminal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.et))
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"item_code": "item-001",
		"quantity":  "3",
	}

	before := time.Now()
	evt := NewEvent(EventTypeAlert, EntityTypeStock, payload)
	after := time.Now()

	assert.Equal(t, "stock.alert", evt.Type)
	assert.Equal(t, EntityTypeStock, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_JSON_Serialization(t *testing.T) {
	fixedTime := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	payload := map[string]interface{}{
		"item_code": "item-001",
		"quantity":  float64(3),
	}

	evt := Event{
		Type:      "stock.alert",
		Entity:    EntityTypeStock,
		Payload:   payload,
		Timestamp: fixedTime,
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded Event
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.Entity, decoded.Entity)
	assert.Equal(t, fixedTime.UTC(), decoded.Timestamp.UTC())

	decodedPayload, ok := decoded.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "item-001", decodedPayload["item_code"])
	assert.Equal(t, float64(3), decodedPayload["quantity"])
}

func TestEvent_ToJSON(t *testing.T) {
	payload := map[string]interface{}{
		"item_code": "item-002",
	}

	evt := NewEvent(EventTypeAlert, EntityTypeStock, payload)

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded map[string]interface{}
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "stock.alert", decoded["type"])
	assert.Equal(t, "stock", decoded["entity"])
	assert.NotNil(t, decoded["payload"])
	assert.NotNil(t, decoded["timestamp"])
}

func TestStockAlertEvent(t *testing.T) {
	alert := domain.StockAlert{
		Type:            domain.AlertTypeReorder,
		ItemCode:        "item-003",
		CurrentQuantity: decimal.RequireFromString("2"),
		Threshold:       decimal.RequireFromString("5"),
		Timestamp:       time.Now().UTC(),
	}

	evt := StockAlertEvent(alert)
	assert.Equal(t, "stock.alert", evt.Type)
	assert.Equal(t, EntityTypeStock, evt.Entity)

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	payload, ok := decoded["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "item-003", payload["item_code"])
	assert.Equal(t, "reorder", payload["type"])
}
