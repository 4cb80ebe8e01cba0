package journal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func sampleTransactionLog() *domain.TransactionLog {
	return &domain.TransactionLog{
		TenantID: "T0001", StoreCode: "ST01", TerminalNo: 1,
		TransactionNo: 10, ReceiptNo: 10, TransactionType: domain.TransactionTypeNormalSales,
		BusinessDate: "20260731", OpenCounter: 1, BusinessCounter: 0,
		GenerateDateTime: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		StaffID:          "staff-1",
		LineItems: []domain.CartLineItem{
			{LineNo: 1, ItemCode: "ITEM1", Description: "Widget", UnitPrice: decimal.NewFromInt(1000), Quantity: decimal.NewFromInt(2), Amount: decimal.NewFromInt(2000), TaxCode: "T1"},
		},
		Payments: []domain.Payment{{PaymentNo: 1, PaymentCode: "CASH", DepositAmount: decimal.NewFromInt(2200), Amount: decimal.NewFromInt(2200)}},
		Taxes:    []domain.Tax{{TaxNo: 1, TaxCode: "T1", TaxType: domain.TaxTypeExternal, TaxAmount: decimal.NewFromInt(200), TargetAmount: decimal.NewFromInt(2000)}},
		Sales: domain.SalesRollup{
			TotalAmount: decimal.NewFromInt(2000), TotalAmountWithTax: decimal.NewFromInt(2200),
			TotalQuantity: decimal.NewFromInt(2),
		},
	}
}

func TestService_Append_StoresFormattedTexts(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc := NewService(NewRepository(gateway))
	tx := sampleTransactionLog()

	require.NoError(t, svc.Append(context.Background(), gateway, tx))

	got, err := svc.repo.Get(context.Background(), "ST01", 1, 10, domain.TransactionTypeNormalSales)
	require.NoError(t, err)
	assert.Contains(t, got.JournalText, "ITEM1")
	assert.Contains(t, got.ReceiptText, "Widget")
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(2200)))
}

func TestService_GetJournals_FiltersByBusinessDate(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc := NewService(NewRepository(gateway))
	ctx := context.Background()

	tx := sampleTransactionLog()
	require.NoError(t, svc.Append(ctx, gateway, tx))

	other := sampleTransactionLog()
	other.TransactionNo = 11
	other.ReceiptNo = 11
	other.BusinessDate = "20260801"
	require.NoError(t, svc.Append(ctx, gateway, other))

	results, total, err := svc.GetJournals(ctx, domain.JournalQuery{StoreCode: "ST01", BusinessDateFrom: "20260801"}, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, 11, results[0].TransactionNo)
}

func TestService_GetJournals_KeywordSearch(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc := NewService(NewRepository(gateway))
	ctx := context.Background()
	require.NoError(t, svc.Append(ctx, gateway, sampleTransactionLog()))

	results, _, err := svc.GetJournals(ctx, domain.JournalQuery{StoreCode: "ST01", Keywords: []string{"ITEM1"}}, 100, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	none, _, err := svc.GetJournals(ctx, domain.JournalQuery{StoreCode: "ST01", Keywords: []string{"NOPE"}}, 100, 1)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProcessor_Process_StoresFromWireEvent(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc := NewService(NewRepository(gateway))
	p := NewProcessor(svc, gateway)

	tx := sampleTransactionLog()
	data, err := eventbus.MarshalTransactionLogEvent(tx)
	require.NoError(t, err)

	require.NoError(t, p.Process(context.Background(), data))

	got, err := svc.repo.Get(context.Background(), "ST01", 1, 10, domain.TransactionTypeNormalSales)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", got.StaffID)
}
