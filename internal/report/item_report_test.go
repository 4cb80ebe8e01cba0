package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

// TestBuildItemReport_NetEqualsGrossMinusDiscount mirrors
// test_item_report.py's check_item_report_data invariant applied to a
// single sale with a line discount.
func TestBuildItemReport_NetEqualsGrossMinusDiscount(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	mdata := masterdata.NewRepository(gw)
	require.NoError(t, mdata.PutItem(ctx, &domain.Item{StoreCode: "STORE001", ItemCode: "PROD001", Description: "Widget", CategoryCode: "CAT01"}))
	require.NoError(t, gw.Create(ctx, "categories", "CAT01", map[string]any{"category_code": "CAT01", "description": "Widgets"}))

	records := []TransactionRecord{{Log: domain.TransactionLog{
		StoreCode: "STORE001", TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
		LineItems: []domain.CartLineItem{{ItemCode: "PROD001", Amount: dec("2700"), Quantity: dec("3"), Discounts: []domain.Discount{{Amount: dec("300")}}}},
	}}}

	report, err := BuildItemReport(ctx, mdata, domain.ReportQuery{StoreCode: "STORE001"}, records)
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	cat := report.Categories[0]
	require.Len(t, cat.Items, 1)
	item := cat.Items[0]

	assert.True(t, item.NetAmount.Equal(dec("2700")))
	assert.True(t, item.DiscountAmount.Equal(dec("300")))
	assert.True(t, item.GrossAmount.Equal(dec("3000")))
	assert.True(t, item.NetAmount.Equal(item.GrossAmount.Sub(item.DiscountAmount)))
	assert.Equal(t, 1, item.TransactionCount)

	assert.True(t, cat.NetAmount.Equal(item.NetAmount))
	assert.True(t, report.TotalNetAmount.Equal(cat.NetAmount))
}

// TestBuildItemReport_FullReturnCancelsOut confirms a matching return on
// the same item fully cancels its net/gross/quantity contribution.
func TestBuildItemReport_FullReturnCancelsOut(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	mdata := masterdata.NewRepository(gw)
	require.NoError(t, mdata.PutItem(ctx, &domain.Item{StoreCode: "STORE001", ItemCode: "PROD001", Description: "Widget", CategoryCode: "CAT01"}))

	records := []TransactionRecord{
		{Log: domain.TransactionLog{
			StoreCode: "STORE001", TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
			LineItems: []domain.CartLineItem{{ItemCode: "PROD001", Amount: dec("1000"), Quantity: dec("1")}},
		}},
		{Log: domain.TransactionLog{
			StoreCode: "STORE001", TransactionNo: 2, TransactionType: domain.TransactionTypeReturnSales,
			LineItems: []domain.CartLineItem{{ItemCode: "PROD001", Amount: dec("-1000"), Quantity: dec("1")}},
		}},
	}

	report, err := BuildItemReport(ctx, mdata, domain.ReportQuery{StoreCode: "STORE001"}, records)
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	item := report.Categories[0].Items[0]
	assert.True(t, item.NetAmount.IsZero())
	assert.True(t, item.Quantity.IsZero())
	assert.Equal(t, 2, item.TransactionCount)
}

// TestBuildItemReport_UnknownItemFallsBackToCode confirms a line item
// absent from master data still appears in the report instead of
// erroring the whole aggregation.
func TestBuildItemReport_UnknownItemFallsBackToCode(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	mdata := masterdata.NewRepository(gw)

	records := []TransactionRecord{{Log: domain.TransactionLog{
		StoreCode: "STORE001", TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
		LineItems: []domain.CartLineItem{{ItemCode: "MISSING", Amount: dec("500"), Quantity: dec("1")}},
	}}}

	report, err := BuildItemReport(ctx, mdata, domain.ReportQuery{StoreCode: "STORE001"}, records)
	require.NoError(t, err)

	require.Len(t, report.Categories, 1)
	assert.Equal(t, "UNCATEGORIZED", report.Categories[0].CategoryCode)
	assert.Equal(t, "MISSING", report.Categories[0].Items[0].Description)
}

// TestBuildItemReport_CancelledLineExcluded confirms a cancelled line
// item never contributes to item totals.
func TestBuildItemReport_CancelledLineExcluded(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	mdata := masterdata.NewRepository(gw)

	records := []TransactionRecord{{Log: domain.TransactionLog{
		StoreCode: "STORE001", TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
		LineItems: []domain.CartLineItem{{ItemCode: "PROD001", Amount: dec("500"), Quantity: dec("1"), IsCancelled: true}},
	}}}

	report, err := BuildItemReport(ctx, mdata, domain.ReportQuery{StoreCode: "STORE001"}, records)
	require.NoError(t, err)

	assert.Len(t, report.Categories, 0)
}
