package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// docToTransactionLog mirrors cart.docToTransactionLog: report only ever
// reads transaction_logs, never writes it, so it keeps its own read-side
// copy rather than exporting cart's.
func docToTransactionLog(m map[string]any) *domain.TransactionLog {
	return &domain.TransactionLog{
		TenantID:         asString(m["tenant_id"]),
		StoreCode:        asString(m["store_code"]),
		TerminalNo:       int(asFloat(m["terminal_no"])),
		TransactionNo:    int(asFloat(m["transaction_no"])),
		ReceiptNo:        int(asFloat(m["receipt_no"])),
		TransactionType:  domain.TransactionType(int(asFloat(m["transaction_type"]))),
		BusinessDate:     asString(m["business_date"]),
		OpenCounter:      int(asFloat(m["open_counter"])),
		BusinessCounter:  int(asFloat(m["business_counter"])),
		GenerateDateTime: asTime(m["generate_date_time"]),
		Origin:           docToOrigin(m["origin"]),
		StaffID:          asString(m["staff_id"]),
		LineItems:        docToLineItems(m["line_items"]),
		Payments:         docToPayments(m["payments"]),
		Taxes:            docToTaxes(m["taxes"]),
		Sales:            docToSales(m["sales"]),
	}
}

func docToTransactionStatus(m map[string]any) *domain.TransactionStatus {
	s := &domain.TransactionStatus{
		TenantID:      asString(m["tenant_id"]),
		StoreCode:     asString(m["store_code"]),
		TerminalNo:    int(asFloat(m["terminal_no"])),
		TransactionNo: int(asFloat(m["transaction_no"])),
		IsVoided:      asBool(m["is_voided"]),
		IsRefunded:    asBool(m["is_refunded"]),
	}
	if v, ok := m["void_transaction_no"]; ok {
		n := int(asFloat(v))
		s.VoidTransactionNo = &n
	}
	if v, ok := m["return_transaction_no"]; ok {
		n := int(asFloat(v))
		s.ReturnTransactionNo = &n
	}
	return s
}

func docToOrigin(v any) *domain.CartOrigin {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &domain.CartOrigin{
		TransactionNo:   int(asFloat(m["transaction_no"])),
		TransactionType: domain.TransactionType(int(asFloat(m["transaction_type"]))),
	}
}

func docToLineItems(v any) []domain.CartLineItem {
	raw, _ := v.([]any)
	out := make([]domain.CartLineItem, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.CartLineItem{
			LineNo:               int(asFloat(m["line_no"])),
			ItemCode:             asString(m["item_code"]),
			Description:          asString(m["description"]),
			UnitPrice:            asDecimal(m["unit_price"]),
			Quantity:             asDecimal(m["quantity"]),
			Amount:               asDecimal(m["amount"]),
			TaxCode:              asString(m["tax_code"]),
			IsDiscountRestricted: asBool(m["is_discount_restricted"]),
			IsCancelled:          asBool(m["is_cancelled"]),
			Discounts:            docToDiscounts(m["discounts"]),
			DiscountsAllocated:   docToDiscounts(m["discounts_allocated"]),
		})
	}
	return out
}

func docToDiscounts(v any) []domain.Discount {
	raw, _ := v.([]any)
	out := make([]domain.Discount, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.Discount{
			SeqNo:  int(asFloat(m["seq_no"])),
			Type:   domain.DiscountType(asString(m["type"])),
			Value:  asDecimal(m["value"]),
			Amount: asDecimal(m["amount"]),
			Detail: asString(m["detail"]),
		})
	}
	return out
}

func docToPayments(v any) []domain.Payment {
	raw, _ := v.([]any)
	out := make([]domain.Payment, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.Payment{
			PaymentNo:     int(asFloat(m["payment_no"])),
			PaymentCode:   asString(m["payment_code"]),
			Description:   asString(m["description"]),
			DepositAmount: asDecimal(m["deposit_amount"]),
			Amount:        asDecimal(m["amount"]),
			Detail:        asString(m["detail"]),
		})
	}
	return out
}

func docToTaxes(v any) []domain.Tax {
	raw, _ := v.([]any)
	out := make([]domain.Tax, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.Tax{
			TaxNo:          int(asFloat(m["tax_no"])),
			TaxCode:        asString(m["tax_code"]),
			TaxType:        domain.TaxType(asString(m["tax_type"])),
			TaxName:        asString(m["tax_name"]),
			TaxAmount:      asDecimal(m["tax_amount"]),
			TargetAmount:   asDecimal(m["target_amount"]),
			TargetQuantity: asDecimal(m["target_quantity"]),
		})
	}
	return out
}

func docToSales(v any) domain.SalesRollup {
	m, _ := v.(map[string]any)
	return domain.SalesRollup{
		TotalAmount:         asDecimal(m["total_amount"]),
		TotalAmountWithTax:  asDecimal(m["total_amount_with_tax"]),
		TotalDiscountAmount: asDecimal(m["total_discount_amount"]),
		TotalQuantity:       asDecimal(m["total_quantity"]),
		ChangeAmount:        asDecimal(m["change_amount"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// asFloat accepts both float64 (the JSONB round-trip shape PgGateway
// returns) and int (the shape testutil.MockGateway stores verbatim,
// since it never serializes through JSON).
func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return 0
}

func asDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(t)
	}
	return decimal.Zero
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
