package domain

import "github.com/shopspring/decimal"

// ReportScope distinguishes a flash report (mid-day, terminal still
// open) from a daily report (terminal closed, business_counter final).
type ReportScope string

const (
	ReportScopeFlash ReportScope = "flash"
	ReportScopeDaily ReportScope = "daily"
)

// SalesBucket is one line of the sales report: an amount with its
// backing quantity and transaction count, per
// original_source/services/report's sales_gross/returns/discount_for_*
// buckets.
type SalesBucket struct {
	Amount   decimal.Decimal
	Quantity decimal.Decimal
	Count    int
}

// CashBucket rolls up cash-in/cash-out movement for the sales report's
// cash drawer section.
type CashBucket struct {
	Amount decimal.Decimal
	Count  int
}

// CashSummary is the sales report's cash-drawer section.
type CashSummary struct {
	CashIn          CashBucket
	CashOut         CashBucket
	PhysicalAmount  decimal.Decimal
	LogicalAmount   decimal.Decimal
	DifferenceAmount decimal.Decimal
}

// TaxSummary aggregates one tax_code's contribution across every
// transaction in the report's scope.
type TaxSummary struct {
	TaxCode   string
	TaxName   string
	TaxAmount decimal.Decimal
}

// PaymentSummary aggregates one payment_code across every transaction;
// Count is the number of distinct transactions carrying that code, not
// the number of payment entries - a transaction split across three
// tenders of the same code counts once (spec §8 scenario 2's split-
// payment invariant).
type PaymentSummary struct {
	PaymentCode string
	Description string
	Amount      decimal.Decimal
	Count       int
}

// SalesReport is the aggregate produced by report.Aggregator.BuildSalesReport,
// grounded on sales_report_receipt_data.py's section layout.
type SalesReport struct {
	StoreCode        string
	TerminalNo       *int
	ReportScope      ReportScope
	BusinessDate     string
	BusinessDateFrom string
	BusinessDateTo   string
	OpenCounter      int
	BusinessCounter  int

	SalesGross           SalesBucket
	Returns              SalesBucket
	DiscountForLineItems SalesBucket
	DiscountForSubtotal  SalesBucket
	SalesNet             SalesBucket

	Taxes    []TaxSummary
	Payments []PaymentSummary
	Cash     CashSummary

	ReceiptText string
	JournalText string
}

// ReportQuery narrows a sales or item report to one store, optionally one
// terminal, and either a single business_date (the common flash/daily
// case) or a business_date_from/to range (the multi-day daily case, per
// test_item_report_with_date_range.py).
type ReportQuery struct {
	StoreCode        string
	TerminalNo       *int
	Scope            ReportScope
	BusinessDate     string
	BusinessDateFrom string
	BusinessDateTo   string
	OpenCounter      int
	BusinessCounter  int
}

// Validate applies spec §8's date-range sanity check: a from/to pair must
// not be inverted. A single BusinessDate needs no validation here.
func (q ReportQuery) Validate() error {
	if q.BusinessDateFrom != "" && q.BusinessDateTo != "" && q.BusinessDateFrom > q.BusinessDateTo {
		return ErrInvalidDateRange
	}
	return nil
}

// ItemSummary is one item's rollup within a CategorySummary.
type ItemSummary struct {
	ItemCode            string
	Description         string
	GrossAmount         decimal.Decimal
	DiscountAmount      decimal.Decimal
	NetAmount           decimal.Decimal
	Quantity            decimal.Decimal
	TransactionCount    int
}

// CategorySummary groups ItemSummary rows under one category, per
// item_report_receipt_data.py / category_report_receipt_data.py.
type CategorySummary struct {
	CategoryCode    string
	Description     string
	GrossAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	NetAmount       decimal.Decimal
	Quantity        decimal.Decimal
	Items           []ItemSummary
}

// ItemReport is the category/item breakdown report.
type ItemReport struct {
	StoreCode             string
	TerminalNo            *int
	BusinessDate          string
	BusinessDateFrom      string
	BusinessDateTo        string
	Categories            []CategorySummary
	TotalGrossAmount      decimal.Decimal
	TotalDiscountAmount   decimal.Decimal
	TotalNetAmount        decimal.Decimal
	TotalQuantity         decimal.Decimal
	TotalTransactionCount int

	ReceiptText string
	JournalText string
}
