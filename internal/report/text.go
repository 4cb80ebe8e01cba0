package report

import (
	"fmt"
	"strings"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func scopeLabel(scope domain.ReportScope) string {
	if scope == domain.ReportScopeDaily {
		return "(DAILY)"
	}
	return "(FLASH)"
}

func terminalLabel(terminalNo *int) string {
	if terminalNo == nil {
		return "STORE TOTAL"
	}
	return fmt.Sprintf("TERMINAL %d", *terminalNo)
}

func businessDateLabel(date, from, to string) string {
	if date != "" {
		return date
	}
	return fmt.Sprintf("%s - %s", from, to)
}

// FormatSalesReceiptText renders the customer-facing sales report
// receipt, anglicized the way internal/journal's FormatReceiptText
// anglicizes sales_report_receipt_data.py's Japanese line labels.
func FormatSalesReceiptText(r *domain.SalesReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SALES REPORT %s\n", scopeLabel(r.ReportScope))
	fmt.Fprintf(&b, "%s\n", terminalLabel(r.TerminalNo))
	fmt.Fprintf(&b, "BUSINESS DATE %s\n", businessDateLabel(r.BusinessDate, r.BusinessDateFrom, r.BusinessDateTo))
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "%-16s %5d %14s\n", "GROSS SALES", r.SalesGross.Count, r.SalesGross.Amount.StringFixed(2))
	fmt.Fprintf(&b, "%-16s %5d %14s\n", "RETURNS", r.Returns.Count, r.Returns.Amount.StringFixed(2))
	fmt.Fprintf(&b, "%-16s %5s %14s\n", "LINE DISCOUNT", "", r.DiscountForLineItems.Amount.StringFixed(2))
	fmt.Fprintf(&b, "%-16s %5s %14s\n", "SUBTOTAL DISCOUNT", "", r.DiscountForSubtotal.Amount.StringFixed(2))
	fmt.Fprintf(&b, "%-16s %5d %14s\n", "NET SALES", r.SalesNet.Count, r.SalesNet.Amount.StringFixed(2))
	b.WriteString("--------------------------------\n")
	b.WriteString("TAXES\n")
	for _, tax := range r.Taxes {
		fmt.Fprintf(&b, " %-15s %14s\n", tax.TaxName, tax.TaxAmount.StringFixed(2))
	}
	b.WriteString("--------------------------------\n")
	b.WriteString("PAYMENTS\n")
	for _, p := range r.Payments {
		fmt.Fprintf(&b, " %-15s %14s\n", p.Description, p.Amount.StringFixed(2))
	}
	b.WriteString("--------------------------------\n")
	b.WriteString("CASH IN/OUT\n")
	fmt.Fprintf(&b, " %-10s %5d %14s\n", "CASH IN", r.Cash.CashIn.Count, r.Cash.CashIn.Amount.StringFixed(2))
	fmt.Fprintf(&b, " %-10s %5d %14s\n", "CASH OUT", r.Cash.CashOut.Count, r.Cash.CashOut.Amount.StringFixed(2))
	b.WriteString("--------------------------------\n")
	return b.String()
}

func FormatSalesJournalText(r *domain.SalesReport) string {
	return fmt.Sprintf("SALES REPORT %s %s %s GROSS=%s RETURNS=%s NET=%s",
		scopeLabel(r.ReportScope), terminalLabel(r.TerminalNo),
		businessDateLabel(r.BusinessDate, r.BusinessDateFrom, r.BusinessDateTo),
		r.SalesGross.Amount.StringFixed(2), r.Returns.Amount.StringFixed(2), r.SalesNet.Amount.StringFixed(2))
}

// FormatItemReceiptText renders the category/item breakdown receipt,
// anglicizing item_report_receipt_data.py/category_report_receipt_data.py.
func FormatItemReceiptText(r *domain.ItemReport) string {
	var b strings.Builder
	b.WriteString("ITEM SALES REPORT\n")
	fmt.Fprintf(&b, "%s\n", terminalLabel(r.TerminalNo))
	fmt.Fprintf(&b, "BUSINESS DATE %s\n", businessDateLabel(r.BusinessDate, r.BusinessDateFrom, r.BusinessDateTo))
	for _, cat := range r.Categories {
		b.WriteString("--------------------------------\n")
		fmt.Fprintf(&b, "%-20s %14s\n", cat.Description, cat.NetAmount.StringFixed(2))
		for _, item := range cat.Items {
			fmt.Fprintf(&b, " %-19s x%-6s %14s\n", item.Description, item.Quantity.String(), item.NetAmount.StringFixed(2))
		}
		fmt.Fprintf(&b, "SUBTOTAL %26s\n", cat.NetAmount.StringFixed(2))
	}
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "GRAND TOTAL %23s\n", r.TotalNetAmount.StringFixed(2))
	return b.String()
}

func FormatItemJournalText(r *domain.ItemReport) string {
	return fmt.Sprintf("ITEM REPORT %s %s CATEGORIES=%d NET=%s",
		terminalLabel(r.TerminalNo), businessDateLabel(r.BusinessDate, r.BusinessDateFrom, r.BusinessDateTo),
		len(r.Categories), r.TotalNetAmount.StringFixed(2))
}
