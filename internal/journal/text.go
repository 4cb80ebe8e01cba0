package journal

import (
	"fmt"
	"strings"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

var transactionTypeLabel = map[domain.TransactionType]string{
	domain.TransactionTypeNormalSales:       "SALE",
	domain.TransactionTypeNormalSalesCancel: "SALE CANCEL",
	domain.TransactionTypeReturnSales:       "RETURN",
	domain.TransactionTypeVoidSales:         "VOID",
	domain.TransactionTypeVoidReturn:        "VOID RETURN",
	domain.TransactionTypeOpen:              "OPEN",
	domain.TransactionTypeClose:             "CLOSE",
	domain.TransactionTypeCashIn:            "CASH IN",
	domain.TransactionTypeCashOut:           "CASH OUT",
}

func labelFor(t domain.TransactionType) string {
	if label, ok := transactionTypeLabel[t]; ok {
		return label
	}
	return fmt.Sprintf("TYPE %d", int(t))
}

// FormatReceiptText renders the customer-facing receipt for t: one line
// per active line item, then taxes, then payments and change.
func FormatReceiptText(t *domain.TransactionLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  receipt #%d\n", labelFor(t.TransactionType), t.ReceiptNo)
	for _, li := range t.LineItems {
		if li.IsCancelled {
			continue
		}
		fmt.Fprintf(&b, "%-20s %8s x %-6s %10s\n", li.Description, li.UnitPrice.StringFixed(2), li.Quantity.String(), li.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, "%-20s %30s\n", "SUBTOTAL", t.Sales.TotalAmount.StringFixed(2))
	for _, tax := range t.Taxes {
		fmt.Fprintf(&b, "%-20s %30s\n", tax.TaxCode, tax.TaxAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "%-20s %30s\n", "TOTAL", t.Sales.TotalAmountWithTax.StringFixed(2))
	for _, p := range t.Payments {
		fmt.Fprintf(&b, "%-20s %30s\n", p.PaymentCode, p.DepositAmount.StringFixed(2))
	}
	if !t.Sales.ChangeAmount.IsZero() {
		fmt.Fprintf(&b, "%-20s %30s\n", "CHANGE", t.Sales.ChangeAmount.StringFixed(2))
	}
	return b.String()
}

// FormatJournalText renders the back-office journal line: a single,
// denser record per transaction, meant for keyword search rather than
// display.
func FormatJournalText(t *domain.TransactionLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s T%d-%d R%d %s", t.BusinessDate, labelFor(t.TransactionType), t.TerminalNo, t.TransactionNo, t.ReceiptNo, t.StaffID)
	for _, li := range t.LineItems {
		if li.IsCancelled {
			continue
		}
		fmt.Fprintf(&b, " | %s x%s = %s", li.ItemCode, li.Quantity.String(), li.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, " | TOTAL %s", t.Sales.TotalAmountWithTax.StringFixed(2))
	return b.String()
}
