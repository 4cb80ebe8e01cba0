package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

type fakeAlertPublisher struct {
	alerts []domain.StockAlert
}

func (f *fakeAlertPublisher) PublishStockAlert(tenantID string, alert domain.StockAlert) {
	f.alerts = append(f.alerts, alert)
}

func TestLedger_UpdateStock_AppliesChangeAndAppendsHistory(t *testing.T) {
	repo := NewRepository(testutil.NewMockGateway())
	ledger := NewLedger(repo, nil)

	after, err := ledger.UpdateStock(context.Background(), "T0001", "ST01", "ITEM001", decimal.NewFromInt(-3), domain.StockUpdateSale, "1:1:1", "staff-1", "")
	require.NoError(t, err)
	assert.True(t, after.CurrentQuantity.Equal(decimal.NewFromInt(-3)))

	history, total, err := ledger.ListUpdateHistory(context.Background(), "ST01", "ITEM001", 10, 1)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, domain.StockUpdateSale, history[0].UpdateType)
	assert.True(t, history[0].BeforeQuantity.IsZero())
	assert.True(t, history[0].AfterQuantity.Equal(decimal.NewFromInt(-3)))
}

func TestLedger_UpdateStock_EvaluatesAlertsOnPostImage(t *testing.T) {
	repo := NewRepository(testutil.NewMockGateway())
	_, err := repo.AtomicIncrement(context.Background(), "T0001", "ST01", "ITEM001", decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, repo.SetThresholds(context.Background(), "ST01", "ITEM001", decimal.NewFromInt(5), decimal.NewFromInt(10), decimal.NewFromInt(20)))

	publisher := &fakeAlertPublisher{}
	alerts := NewAlertService(publisher, 0)
	ledger := NewLedger(repo, alerts)

	_, err = ledger.UpdateStock(context.Background(), "T0001", "ST01", "ITEM001", decimal.NewFromInt(-1), domain.StockUpdateSale, "1:1:1", "staff-1", "")
	require.NoError(t, err)

	require.Len(t, publisher.alerts, 2, "both low-stock and reorder thresholds crossed")
}
