package report

import (
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// BuildSalesReport folds records and cash into a domain.SalesReport,
// grounded on test_sales_report_formula_external_tax.py and
// test_sales_report_formula_internal_tax.py's worked examples and
// test_split_payment_bug.py's distinct-transaction payment count.
//
// A NormalSales/ReturnSales log already voided by its TransactionStatus
// overlay is skipped entirely: the VoidSales/VoidReturn log recording the
// reversal is itself never folded into sales totals, it exists only to
// drive stock reversal and the audit trail (spec.md §4.4.6).
func BuildSalesReport(q domain.ReportQuery, records []TransactionRecord, cash []domain.Journal) *domain.SalesReport {
	report := &domain.SalesReport{
		StoreCode: q.StoreCode, TerminalNo: q.TerminalNo, ReportScope: q.Scope,
		BusinessDate: q.BusinessDate, BusinessDateFrom: q.BusinessDateFrom, BusinessDateTo: q.BusinessDateTo,
		OpenCounter: q.OpenCounter, BusinessCounter: q.BusinessCounter,
	}

	taxTotals := map[string]*domain.TaxSummary{}
	var taxOrder []string
	paymentTotals := map[string]*domain.PaymentSummary{}
	var paymentOrder []string

	for _, rec := range records {
		t := &rec.Log
		switch t.TransactionType {
		case domain.TransactionTypeNormalSales:
			if rec.Status.IsVoided {
				continue
			}
			foldSale(report, t, 1)
			accumulateTaxes(taxTotals, &taxOrder, t.Taxes)
			accumulatePayments(paymentTotals, &paymentOrder, t.Payments)
		case domain.TransactionTypeReturnSales:
			if rec.Status.IsVoided {
				continue
			}
			foldSale(report, t, -1)
			accumulateTaxes(taxTotals, &taxOrder, t.Taxes)
			accumulatePayments(paymentTotals, &paymentOrder, t.Payments)
		case domain.TransactionTypeVoidSales, domain.TransactionTypeVoidReturn:
			continue
		}
	}

	report.SalesNet.Amount = report.SalesGross.Amount.
		Sub(report.Returns.Amount).
		Sub(report.DiscountForLineItems.Amount).
		Sub(report.DiscountForSubtotal.Amount)
	report.SalesNet.Quantity = report.SalesGross.Quantity.Sub(report.Returns.Quantity)
	report.SalesNet.Count = report.SalesGross.Count

	for _, code := range taxOrder {
		report.Taxes = append(report.Taxes, *taxTotals[code])
	}
	for _, code := range paymentOrder {
		report.Payments = append(report.Payments, *paymentTotals[code])
	}

	for _, j := range cash {
		switch j.TransactionType {
		case domain.TransactionTypeCashIn:
			report.Cash.CashIn.Amount = report.Cash.CashIn.Amount.Add(j.Amount)
			report.Cash.CashIn.Count++
		case domain.TransactionTypeCashOut:
			report.Cash.CashOut.Amount = report.Cash.CashOut.Amount.Add(j.Amount.Abs())
			report.Cash.CashOut.Count++
		}
	}
	return report
}

// foldSale applies t's contribution to the gross/returns/discount
// buckets. sign is +1 for a sale, -1 for a return: the return's own
// amount field already carries a sign (engine.ReturnTransaction negates
// it), so returns.amount is its absolute value, while gross recovers the
// pre-discount tax-inclusive amount by adding back total_discount_amount
// (test_sales_report_formula_external_tax.py's "総売上 = 税込 + 値引").
func foldSale(report *domain.SalesReport, t *domain.TransactionLog, sign int64) {
	bucket := &report.SalesGross
	if sign < 0 {
		bucket = &report.Returns
	}
	amountWithTax := t.Sales.TotalAmountWithTax
	if sign < 0 {
		amountWithTax = amountWithTax.Abs()
	} else {
		amountWithTax = amountWithTax.Add(t.Sales.TotalDiscountAmount)
	}
	bucket.Amount = bucket.Amount.Add(amountWithTax)
	bucket.Quantity = bucket.Quantity.Add(t.Sales.TotalQuantity.Abs())
	bucket.Count++

	lineDisc, allocDisc := lineDiscountTotals(t.LineItems)
	signD := decimal.NewFromInt(sign)
	report.DiscountForLineItems.Amount = report.DiscountForLineItems.Amount.Add(lineDisc.Mul(signD))
	report.DiscountForSubtotal.Amount = report.DiscountForSubtotal.Amount.Add(allocDisc.Mul(signD))
}

func lineDiscountTotals(lines []domain.CartLineItem) (lineDisc, allocDisc decimal.Decimal) {
	lineDisc, allocDisc = decimal.Zero, decimal.Zero
	for _, li := range lines {
		if li.IsCancelled {
			continue
		}
		for _, d := range li.Discounts {
			lineDisc = lineDisc.Add(d.Amount)
		}
		for _, d := range li.DiscountsAllocated {
			allocDisc = allocDisc.Add(d.Amount)
		}
	}
	return lineDisc, allocDisc
}

func accumulateTaxes(totals map[string]*domain.TaxSummary, order *[]string, taxes []domain.Tax) {
	for _, tx := range taxes {
		s, ok := totals[tx.TaxCode]
		if !ok {
			s = &domain.TaxSummary{TaxCode: tx.TaxCode, TaxName: tx.TaxName}
			totals[tx.TaxCode] = s
			*order = append(*order, tx.TaxCode)
		}
		s.TaxAmount = s.TaxAmount.Add(tx.TaxAmount)
	}
}

// accumulatePayments sums amount per payment_code across every entry but
// increments Count once per transaction regardless of how many entries
// of that code appear on it - the split-payment fix from
// test_split_payment_bug.py: three same-code tenders on one transaction
// must count as one transaction, not three.
func accumulatePayments(totals map[string]*domain.PaymentSummary, order *[]string, payments []domain.Payment) {
	seen := map[string]bool{}
	for _, p := range payments {
		s, ok := totals[p.PaymentCode]
		if !ok {
			s = &domain.PaymentSummary{PaymentCode: p.PaymentCode, Description: p.Description}
			totals[p.PaymentCode] = s
			*order = append(*order, p.PaymentCode)
		}
		s.Amount = s.Amount.Add(p.Amount)
		if !seen[p.PaymentCode] {
			s.Count++
			seen[p.PaymentCode] = true
		}
	}
}
