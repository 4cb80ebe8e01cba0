package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const (
	cartsCollection             = "carts"
	transactionLogsCollection   = "transaction_logs"
	transactionStatusCollection = "transaction_status"
)

// Repository persists the cart aggregate and the two records produced on
// finalization: the immutable TransactionLog and its mutable
// TransactionStatus overlay (spec §4.4.5, §4.5).
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func cartKey(cartID string) string { return cartID }

func (r *Repository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	doc, err := r.gateway.Get(ctx, cartsCollection, storage.Filter{"cart_id": cartID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrCartNotFound
	}
	return docToCart(doc.Body), nil
}

func (r *Repository) SaveCart(ctx context.Context, gw storage.Gateway, c *domain.Cart) error {
	body := cartToDoc(c)
	key := cartKey(c.CartID)
	if err := gw.Create(ctx, cartsCollection, key, body); err != nil {
		return gw.Replace(ctx, cartsCollection, storage.Filter{"cart_id": c.CartID}, body)
	}
	return nil
}

func txKey(storeCode string, terminalNo, transactionNo int) string {
	return fmt.Sprintf("%s:%d:%d", storeCode, terminalNo, transactionNo)
}

func (r *Repository) GetTransactionLog(ctx context.Context, storeCode string, terminalNo, transactionNo int) (*domain.TransactionLog, error) {
	doc, err := r.gateway.Get(ctx, transactionLogsCollection, storage.Filter{
		"store_code":     storeCode,
		"terminal_no":    terminalNo,
		"transaction_no": transactionNo,
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return docToTransactionLog(doc.Body), nil
}

func (r *Repository) SaveTransactionLog(ctx context.Context, gw storage.Gateway, t *domain.TransactionLog) error {
	key := txKey(t.StoreCode, t.TerminalNo, t.TransactionNo)
	return gw.Create(ctx, transactionLogsCollection, key, transactionLogToDoc(t))
}

func (r *Repository) GetTransactionStatus(ctx context.Context, storeCode string, terminalNo, transactionNo int) (*domain.TransactionStatus, error) {
	doc, err := r.gateway.Get(ctx, transactionStatusCollection, storage.Filter{
		"store_code":     storeCode,
		"terminal_no":    terminalNo,
		"transaction_no": transactionNo,
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return &domain.TransactionStatus{StoreCode: storeCode, TerminalNo: terminalNo, TransactionNo: transactionNo}, nil
	}
	return docToTransactionStatus(doc.Body), nil
}

func (r *Repository) SaveTransactionStatus(ctx context.Context, gw storage.Gateway, s *domain.TransactionStatus) error {
	key := txKey(s.StoreCode, s.TerminalNo, s.TransactionNo)
	body := transactionStatusToDoc(s)
	if err := gw.Create(ctx, transactionStatusCollection, key, body); err != nil {
		return gw.Replace(ctx, transactionStatusCollection, storage.Filter{
			"store_code":     s.StoreCode,
			"terminal_no":    s.TerminalNo,
			"transaction_no": s.TransactionNo,
		}, body)
	}
	return nil
}

// --- doc <-> domain conversions. Money fields are serialized as decimal
// strings (never float64) to avoid precision loss through the JSONB
// round trip, matching internal/masterdata's own convention. ---

func discountToDoc(d domain.Discount) map[string]any {
	return map[string]any{
		"seq_no": d.SeqNo,
		"type":   string(d.Type),
		"value":  d.Value.String(),
		"amount": d.Amount.String(),
		"detail": d.Detail,
	}
}

func docToDiscount(m map[string]any) domain.Discount {
	return domain.Discount{
		SeqNo:  int(asFloat(m["seq_no"])),
		Type:   domain.DiscountType(asString(m["type"])),
		Value:  asDecimal(m["value"]),
		Amount: asDecimal(m["amount"]),
		Detail: asString(m["detail"]),
	}
}

func discountsToDoc(ds []domain.Discount) []any {
	out := make([]any, 0, len(ds))
	for _, d := range ds {
		out = append(out, discountToDoc(d))
	}
	return out
}

func docToDiscounts(v any) []domain.Discount {
	raw, _ := v.([]any)
	out := make([]domain.Discount, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, docToDiscount(m))
		}
	}
	return out
}

func lineItemToDoc(l domain.CartLineItem) map[string]any {
	return map[string]any{
		"line_no":                l.LineNo,
		"item_code":              l.ItemCode,
		"description":            l.Description,
		"unit_price":             l.UnitPrice.String(),
		"unit_price_original":    l.UnitPriceOriginal.String(),
		"is_unit_price_changed":  l.IsUnitPriceChanged,
		"quantity":               l.Quantity.String(),
		"amount":                 l.Amount.String(),
		"tax_code":               l.TaxCode,
		"is_discount_restricted": l.IsDiscountRestricted,
		"is_cancelled":           l.IsCancelled,
		"discounts":              discountsToDoc(l.Discounts),
		"discounts_allocated":    discountsToDoc(l.DiscountsAllocated),
		"image_urls":             l.ImageURLs,
	}
}

func docToLineItem(m map[string]any) domain.CartLineItem {
	return domain.CartLineItem{
		LineNo:               int(asFloat(m["line_no"])),
		ItemCode:             asString(m["item_code"]),
		Description:          asString(m["description"]),
		UnitPrice:            asDecimal(m["unit_price"]),
		UnitPriceOriginal:    asDecimal(m["unit_price_original"]),
		IsUnitPriceChanged:   asBool(m["is_unit_price_changed"]),
		Quantity:             asDecimal(m["quantity"]),
		Amount:               asDecimal(m["amount"]),
		TaxCode:              asString(m["tax_code"]),
		IsDiscountRestricted: asBool(m["is_discount_restricted"]),
		IsCancelled:          asBool(m["is_cancelled"]),
		Discounts:            docToDiscounts(m["discounts"]),
		DiscountsAllocated:   docToDiscounts(m["discounts_allocated"]),
		ImageURLs:            asStringSlice(m["image_urls"]),
	}
}

func lineItemsToDoc(ls []domain.CartLineItem) []any {
	out := make([]any, 0, len(ls))
	for _, l := range ls {
		out = append(out, lineItemToDoc(l))
	}
	return out
}

func docToLineItems(v any) []domain.CartLineItem {
	raw, _ := v.([]any)
	out := make([]domain.CartLineItem, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, docToLineItem(m))
		}
	}
	return out
}

func paymentToDoc(p domain.Payment) map[string]any {
	return map[string]any{
		"payment_no":     p.PaymentNo,
		"payment_code":   p.PaymentCode,
		"description":    p.Description,
		"deposit_amount": p.DepositAmount.String(),
		"amount":         p.Amount.String(),
		"detail":         p.Detail,
	}
}

func docToPayment(m map[string]any) domain.Payment {
	return domain.Payment{
		PaymentNo:     int(asFloat(m["payment_no"])),
		PaymentCode:   asString(m["payment_code"]),
		Description:   asString(m["description"]),
		DepositAmount: asDecimal(m["deposit_amount"]),
		Amount:        asDecimal(m["amount"]),
		Detail:        asString(m["detail"]),
	}
}

func paymentsToDoc(ps []domain.Payment) []any {
	out := make([]any, 0, len(ps))
	for _, p := range ps {
		out = append(out, paymentToDoc(p))
	}
	return out
}

func docToPayments(v any) []domain.Payment {
	raw, _ := v.([]any)
	out := make([]domain.Payment, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, docToPayment(m))
		}
	}
	return out
}

func taxToDoc(t domain.Tax) map[string]any {
	return map[string]any{
		"tax_no":          t.TaxNo,
		"tax_code":        t.TaxCode,
		"tax_type":        string(t.TaxType),
		"tax_name":        t.TaxName,
		"tax_amount":      t.TaxAmount.String(),
		"target_amount":   t.TargetAmount.String(),
		"target_quantity": t.TargetQuantity.String(),
	}
}

func docToTax(m map[string]any) domain.Tax {
	return domain.Tax{
		TaxNo:          int(asFloat(m["tax_no"])),
		TaxCode:        asString(m["tax_code"]),
		TaxType:        domain.TaxType(asString(m["tax_type"])),
		TaxName:        asString(m["tax_name"]),
		TaxAmount:      asDecimal(m["tax_amount"]),
		TargetAmount:   asDecimal(m["target_amount"]),
		TargetQuantity: asDecimal(m["target_quantity"]),
	}
}

func taxesToDoc(ts []domain.Tax) []any {
	out := make([]any, 0, len(ts))
	for _, t := range ts {
		out = append(out, taxToDoc(t))
	}
	return out
}

func docToTaxes(v any) []domain.Tax {
	raw, _ := v.([]any)
	out := make([]domain.Tax, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, docToTax(m))
		}
	}
	return out
}

func salesToDoc(s domain.SalesRollup) map[string]any {
	return map[string]any{
		"total_amount":          s.TotalAmount.String(),
		"total_amount_with_tax": s.TotalAmountWithTax.String(),
		"total_discount_amount": s.TotalDiscountAmount.String(),
		"total_quantity":        s.TotalQuantity.String(),
		"change_amount":         s.ChangeAmount.String(),
	}
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

func originToDoc(o *domain.CartOrigin) map[string]any {
	if o == nil {
		return nil
	}
	return map[string]any{
		"transaction_no":   o.TransactionNo,
		"transaction_type": int(o.TransactionType),
	}
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

func cartToDoc(c *domain.Cart) map[string]any {
	return map[string]any{
		"cart_id":            c.CartID,
		"tenant_id":          c.TenantID,
		"store_code":         c.StoreCode,
		"terminal_no":        c.TerminalNo,
		"staff_id":           c.StaffID,
		"status":             string(c.Status),
		"line_items":         lineItemsToDoc(c.LineItems),
		"subtotal_discounts": discountsToDoc(c.SubtotalDiscounts),
		"payments":           paymentsToDoc(c.Payments),
		"taxes":              taxesToDoc(c.Taxes),
		"sales":              salesToDoc(c.Sales),
		"balance":            c.Balance.String(),
		"receipt_text":       c.ReceiptText,
		"journal_text":       c.JournalText,
		"origin":             originToDoc(c.Origin),
		"created_at":         c.CreatedAt,
		"updated_at":         c.UpdatedAt,
	}
}

func docToCart(m map[string]any) *domain.Cart {
	return &domain.Cart{
		CartID:            asString(m["cart_id"]),
		TenantID:          asString(m["tenant_id"]),
		StoreCode:         asString(m["store_code"]),
		TerminalNo:        int(asFloat(m["terminal_no"])),
		StaffID:           asString(m["staff_id"]),
		Status:            domain.CartStatus(asString(m["status"])),
		LineItems:         docToLineItems(m["line_items"]),
		SubtotalDiscounts: docToDiscounts(m["subtotal_discounts"]),
		Payments:          docToPayments(m["payments"]),
		Taxes:             docToTaxes(m["taxes"]),
		Sales:             docToSales(m["sales"]),
		Balance:           asDecimal(m["balance"]),
		ReceiptText:       asString(m["receipt_text"]),
		JournalText:       asString(m["journal_text"]),
		Origin:            docToOrigin(m["origin"]),
		CreatedAt:         asTime(m["created_at"]),
		UpdatedAt:         asTime(m["updated_at"]),
	}
}

func transactionLogToDoc(t *domain.TransactionLog) map[string]any {
	return map[string]any{
		"tenant_id":          t.TenantID,
		"store_code":         t.StoreCode,
		"terminal_no":        t.TerminalNo,
		"transaction_no":     t.TransactionNo,
		"receipt_no":         t.ReceiptNo,
		"transaction_type":   int(t.TransactionType),
		"business_date":      t.BusinessDate,
		"open_counter":       t.OpenCounter,
		"business_counter":   t.BusinessCounter,
		"generate_date_time": t.GenerateDateTime,
		"origin":             originToDoc(t.Origin),
		"staff_id":           t.StaffID,
		"line_items":         lineItemsToDoc(t.LineItems),
		"payments":           paymentsToDoc(t.Payments),
		"taxes":              taxesToDoc(t.Taxes),
		"sales":              salesToDoc(t.Sales),
	}
}

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

func transactionStatusToDoc(s *domain.TransactionStatus) map[string]any {
	body := map[string]any{
		"tenant_id":      s.TenantID,
		"store_code":     s.StoreCode,
		"terminal_no":    s.TerminalNo,
		"transaction_no": s.TransactionNo,
		"is_voided":      s.IsVoided,
		"is_refunded":    s.IsRefunded,
	}
	if s.VoidTransactionNo != nil {
		body["void_transaction_no"] = *s.VoidTransactionNo
	}
	if s.VoidDateTime != nil {
		body["void_date_time"] = *s.VoidDateTime
	}
	if s.VoidStaffID != nil {
		body["void_staff_id"] = *s.VoidStaffID
	}
	if s.ReturnTransactionNo != nil {
		body["return_transaction_no"] = *s.ReturnTransactionNo
	}
	if s.ReturnDateTime != nil {
		body["return_date_time"] = *s.ReturnDateTime
	}
	if s.ReturnStaffID != nil {
		body["return_staff_id"] = *s.ReturnStaffID
	}
	return body
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
	if v, ok := m["void_date_time"]; ok {
		t := asTime(v)
		s.VoidDateTime = &t
	}
	if v, ok := m["void_staff_id"]; ok {
		str := asString(v)
		s.VoidStaffID = &str
	}
	if v, ok := m["return_transaction_no"]; ok {
		n := int(asFloat(v))
		s.ReturnTransactionNo = &n
	}
	if v, ok := m["return_date_time"]; ok {
		t := asTime(v)
		s.ReturnDateTime = &t
	}
	if v, ok := m["return_staff_id"]; ok {
		str := asString(v)
		s.ReturnStaffID = &str
	}
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

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

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, fmt.Sprintf("%v", r))
	}
	return out
}
