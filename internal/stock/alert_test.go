package stock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func TestAlertService_Evaluate_SkipsZeroThreshold(t *testing.T) {
	publisher := &fakeAlertPublisher{}
	alerts := NewAlertService(publisher, time.Minute)

	alerts.Evaluate(context.Background(), "T0001", &domain.Stock{
		StoreCode: "ST01", ItemCode: "ITEM001", CurrentQuantity: decimal.Zero,
	})

	assert.Empty(t, publisher.alerts)
}

func TestAlertService_Evaluate_CooldownSuppressesRepeat(t *testing.T) {
	publisher := &fakeAlertPublisher{}
	alerts := NewAlertService(publisher, time.Hour)

	stock := &domain.Stock{
		StoreCode: "ST01", ItemCode: "ITEM001",
		CurrentQuantity: decimal.NewFromInt(2), MinimumQuantity: decimal.NewFromInt(5),
	}

	alerts.Evaluate(context.Background(), "T0001", stock)
	alerts.Evaluate(context.Background(), "T0001", stock)

	require.Len(t, publisher.alerts, 1, "second evaluation within cooldown must be suppressed")
	assert.Equal(t, domain.AlertTypeLowStock, publisher.alerts[0].Type)
}

func TestAlertService_Evaluate_NilPublisherIsNoop(t *testing.T) {
	alerts := NewAlertService(nil, time.Minute)
	assert.NotPanics(t, func() {
		alerts.Evaluate(context.Background(), "T0001", &domain.Stock{
			CurrentQuantity: decimal.Zero, MinimumQuantity: decimal.NewFromInt(5),
		})
	})
}
