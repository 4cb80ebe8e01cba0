package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/journal"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func TestService_GetSalesReport_RendersText(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()

	require.NoError(t, gw.Create(ctx, transactionLogsCollection, "t1", transactionLogDoc(1, 1, domain.TransactionTypeNormalSales, "2026-07-31", "1000")))

	repo := NewRepository(gw, journal.NewRepository(gw))
	svc := NewService(repo, masterdata.NewRepository(gw))

	report, err := svc.GetSalesReport(ctx, domain.ReportQuery{StoreCode: "STORE001", BusinessDate: "2026-07-31", Scope: domain.ReportScopeFlash})
	require.NoError(t, err)

	assert.True(t, report.SalesGross.Amount.Equal(dec("1000")))
	assert.NotEmpty(t, report.ReceiptText)
	assert.NotEmpty(t, report.JournalText)
}

func TestService_GetSalesReport_RejectsInvertedDateRange(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	repo := NewRepository(gw, journal.NewRepository(gw))
	svc := NewService(repo, masterdata.NewRepository(gw))

	_, err := svc.GetSalesReport(ctx, domain.ReportQuery{
		StoreCode: "STORE001", BusinessDateFrom: "2026-08-01", BusinessDateTo: "2026-07-01",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestService_GetItemReport_RendersText(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	mdata := masterdata.NewRepository(gw)
	require.NoError(t, mdata.PutItem(ctx, &domain.Item{StoreCode: "STORE001", ItemCode: "PROD001", Description: "Widget", CategoryCode: "CAT01"}))

	require.NoError(t, gw.Create(ctx, transactionLogsCollection, "t1", map[string]any{
		"store_code": "STORE001", "terminal_no": 1, "transaction_no": 1,
		"transaction_type": int(domain.TransactionTypeNormalSales), "business_date": "2026-07-31",
		"line_items": []any{map[string]any{"item_code": "PROD001", "amount": "1000", "quantity": "1", "discounts": []any{}, "discounts_allocated": []any{}}},
		"payments": []any{}, "taxes": []any{},
		"sales": map[string]any{"total_amount": "1000", "total_amount_with_tax": "1000", "total_discount_amount": "0", "total_quantity": "1"},
	}))

	repo := NewRepository(gw, journal.NewRepository(gw))
	svc := NewService(repo, mdata)

	report, err := svc.GetItemReport(ctx, domain.ReportQuery{StoreCode: "STORE001", BusinessDate: "2026-07-31"})
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	assert.NotEmpty(t, report.ReceiptText)
	assert.NotEmpty(t, report.JournalText)
}
