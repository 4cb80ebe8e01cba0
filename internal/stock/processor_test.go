package stock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func eventPayload(t *testing.T, transactionType int, lines []eventbus.LineItemWire) []byte {
	t.Helper()
	event := eventbus.TransactionLogEvent{
		TenantID: "T0001", StoreCode: "ST01", TerminalNo: 1, TransactionNo: 1,
		TransactionType: transactionType, StaffID: "staff-1", LineItems: lines,
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestProcessor_Process_NormalSalesDecrementsStock(t *testing.T) {
	repo := NewRepository(testutil.NewMockGateway())
	ledger := NewLedger(repo, nil)
	proc := NewProcessor(ledger)

	payload := eventPayload(t, int(domain.TransactionTypeNormalSales), []eventbus.LineItemWire{
		{LineNo: 1, ItemCode: "ITEM001", Quantity: decimal.NewFromInt(2)},
	})
	require.NoError(t, proc.Process(context.Background(), payload))

	stock, err := repo.GetStock(context.Background(), "ST01", "ITEM001")
	require.NoError(t, err)
	assert.True(t, stock.CurrentQuantity.Equal(decimal.NewFromInt(-2)))
}

func TestProcessor_Process_VoidSalesIncrementsStock(t *testing.T) {
	repo := NewRepository(testutil.NewMockGateway())
	ledger := NewLedger(repo, nil)
	proc := NewProcessor(ledger)

	payload := eventPayload(t, int(domain.TransactionTypeVoidSales), []eventbus.LineItemWire{
		{LineNo: 1, ItemCode: "ITEM001", Quantity: decimal.NewFromInt(2)},
	})
	require.NoError(t, proc.Process(context.Background(), payload))

	stock, err := repo.GetStock(context.Background(), "ST01", "ITEM001")
	require.NoError(t, err)
	assert.True(t, stock.CurrentQuantity.Equal(decimal.NewFromInt(2)))
}

func TestProcessor_Process_SkipsCancelledLines(t *testing.T) {
	repo := NewRepository(testutil.NewMockGateway())
	ledger := NewLedger(repo, nil)
	proc := NewProcessor(ledger)

	payload := eventPayload(t, int(domain.TransactionTypeNormalSales), []eventbus.LineItemWire{
		{LineNo: 1, ItemCode: "ITEM001", Quantity: decimal.NewFromInt(2), IsCancelled: true},
	})
	require.NoError(t, proc.Process(context.Background(), payload))

	_, err := repo.GetStock(context.Background(), "ST01", "ITEM001")
	assert.Error(t, err, "a cancelled line must never create a stock row")
}

func TestProcessor_Process_IgnoresNonStockTransactionTypes(t *testing.T) {
	repo := NewRepository(testutil.NewMockGateway())
	ledger := NewLedger(repo, nil)
	proc := NewProcessor(ledger)

	payload := eventPayload(t, int(domain.TransactionTypeOpen), nil)
	require.NoError(t, proc.Process(context.Background(), payload))
}
