package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// TestBuildSalesReport_ExternalTaxSaleAndReturn mirrors
// test_sales_report_formula_external_tax.py's worked example: sale of
// 3,500 discounted by 500 with 300 external tax, then the same item
// returned in full.
func TestBuildSalesReport_ExternalTaxSaleAndReturn(t *testing.T) {
	lineDiscount := domain.Discount{SeqNo: 1, Type: domain.DiscountTypeAmount, Amount: dec("500")}
	sale := domain.TransactionLog{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 500, TransactionType: domain.TransactionTypeNormalSales,
		LineItems: []domain.CartLineItem{{ItemCode: "PROD001", Amount: dec("3000"), Quantity: dec("1"), Discounts: []domain.Discount{lineDiscount}}},
		Payments:  []domain.Payment{{PaymentNo: 1, PaymentCode: "01", Amount: dec("3300")}},
		Taxes:     []domain.Tax{{TaxCode: "01", TaxName: "10% tax", TaxAmount: dec("300"), TargetAmount: dec("3000")}},
		Sales:     domain.SalesRollup{TotalAmount: dec("3000"), TotalAmountWithTax: dec("3300"), TotalDiscountAmount: dec("500"), TotalQuantity: dec("1")},
	}
	ret := domain.TransactionLog{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 501, TransactionType: domain.TransactionTypeReturnSales,
		LineItems: []domain.CartLineItem{{ItemCode: "PROD001", Amount: dec("-3000"), Quantity: dec("1"), Discounts: []domain.Discount{lineDiscount}}},
		Payments:  []domain.Payment{{PaymentNo: 1, PaymentCode: "01", Amount: dec("-3300")}},
		Taxes:     []domain.Tax{{TaxCode: "01", TaxName: "10% tax", TaxAmount: dec("-300"), TargetAmount: dec("-3000")}},
		Sales:     domain.SalesRollup{TotalAmount: dec("-3000"), TotalAmountWithTax: dec("-3300"), TotalDiscountAmount: dec("500"), TotalQuantity: dec("1")},
	}

	records := []TransactionRecord{{Log: sale}, {Log: ret}}
	report := BuildSalesReport(domain.ReportQuery{StoreCode: "STORE001"}, records, nil)

	assert.True(t, report.SalesGross.Amount.Equal(dec("3800")), "gross = %s", report.SalesGross.Amount)
	assert.True(t, report.Returns.Amount.Equal(dec("3300")), "returns = %s", report.Returns.Amount)
	assert.True(t, report.DiscountForLineItems.Amount.IsZero(), "line discount = %s", report.DiscountForLineItems.Amount)
	assert.True(t, report.DiscountForSubtotal.Amount.IsZero())
	assert.True(t, report.SalesNet.Amount.Equal(dec("500")), "net = %s", report.SalesNet.Amount)
}

// TestBuildSalesReport_SplitPaymentCountsOneTransaction mirrors
// test_split_payment_bug.py.
func TestBuildSalesReport_SplitPaymentCountsOneTransaction(t *testing.T) {
	sale := domain.TransactionLog{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
		Payments: []domain.Payment{
			{PaymentNo: 1, PaymentCode: "11", Description: "Credit Card", Amount: dec("1000")},
			{PaymentNo: 2, PaymentCode: "11", Description: "Credit Card", Amount: dec("1000")},
			{PaymentNo: 3, PaymentCode: "11", Description: "Credit Card", Amount: dec("1300")},
		},
		Sales: domain.SalesRollup{TotalAmount: dec("3000"), TotalAmountWithTax: dec("3300"), TotalQuantity: dec("1")},
	}
	report := BuildSalesReport(domain.ReportQuery{StoreCode: "STORE001"}, []TransactionRecord{{Log: sale}}, nil)

	assert.Len(t, report.Payments, 1)
	assert.Equal(t, 1, report.Payments[0].Count)
	assert.True(t, report.Payments[0].Amount.Equal(dec("3300")))
}

// TestBuildSalesReport_CartesianAmountsNotMultiplied mirrors spec.md §8
// scenario 3: two tax rows and two payments must not cross-multiply the
// transaction's own total_amount.
func TestBuildSalesReport_CartesianAmountsNotMultiplied(t *testing.T) {
	sale := domain.TransactionLog{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
		Taxes: []domain.Tax{
			{TaxCode: "01", TaxName: "tax a", TaxAmount: dec("40")},
			{TaxCode: "02", TaxName: "tax b", TaxAmount: dec("60")},
		},
		Payments: []domain.Payment{
			{PaymentNo: 1, PaymentCode: "01", Amount: dec("600")},
			{PaymentNo: 2, PaymentCode: "02", Amount: dec("500")},
		},
		Sales: domain.SalesRollup{TotalAmount: dec("900"), TotalAmountWithTax: dec("1000"), TotalQuantity: dec("1")},
	}
	report := BuildSalesReport(domain.ReportQuery{StoreCode: "STORE001"}, []TransactionRecord{{Log: sale}}, nil)

	assert.True(t, report.SalesGross.Amount.Equal(dec("1000")), "gross = %s", report.SalesGross.Amount)
	assert.Equal(t, 1, report.SalesGross.Count)
	assert.Len(t, report.Taxes, 2)
	assert.Len(t, report.Payments, 2)
}

// TestBuildSalesReport_VoidedSaleExcluded confirms a voided NormalSales
// log drops out of the report entirely, per the TransactionStatus
// overlay join spec.md §4.4.6 requires.
func TestBuildSalesReport_VoidedSaleExcluded(t *testing.T) {
	sale := domain.TransactionLog{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 1, TransactionType: domain.TransactionTypeNormalSales,
		Sales: domain.SalesRollup{TotalAmountWithTax: dec("1000"), TotalQuantity: dec("1")},
	}
	voidLog := domain.TransactionLog{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 2, TransactionType: domain.TransactionTypeVoidSales,
		Sales: domain.SalesRollup{TotalAmountWithTax: dec("1000"), TotalQuantity: dec("1")},
	}
	records := []TransactionRecord{
		{Log: sale, Status: domain.TransactionStatus{IsVoided: true}},
		{Log: voidLog},
	}
	report := BuildSalesReport(domain.ReportQuery{StoreCode: "STORE001"}, records, nil)

	assert.True(t, report.SalesGross.Amount.IsZero())
	assert.Equal(t, 0, report.SalesGross.Count)
}

func TestBuildSalesReport_CashMovements(t *testing.T) {
	cash := []domain.Journal{
		{TransactionType: domain.TransactionTypeCashIn, Amount: dec("5000")},
		{TransactionType: domain.TransactionTypeCashOut, Amount: dec("-2000")},
	}
	report := BuildSalesReport(domain.ReportQuery{StoreCode: "STORE001"}, nil, cash)

	assert.True(t, report.Cash.CashIn.Amount.Equal(dec("5000")))
	assert.Equal(t, 1, report.Cash.CashIn.Count)
	assert.True(t, report.Cash.CashOut.Amount.Equal(dec("2000")))
	assert.Equal(t, 1, report.Cash.CashOut.Count)
}
