package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus is a node in the cart engine's state machine (spec §4.4.1).
type CartStatus string

const (
	CartStatusInitial      CartStatus = "Initial"
	CartStatusIdle         CartStatus = "Idle"
	CartStatusEnteringItem CartStatus = "EnteringItem"
	CartStatusPaying       CartStatus = "Paying"
	CartStatusCompleted    CartStatus = "Completed"
	CartStatusCancelled    CartStatus = "Cancelled"
)

// CartEvent is the vocabulary dispatched against the state machine.
type CartEvent string

const (
	EventCreate             CartEvent = "create"
	EventAddItems            CartEvent = "add_items"
	EventCancelLine          CartEvent = "cancel_line"
	EventUnitPriceOverride   CartEvent = "unit_price_override"
	EventAddLineDiscount     CartEvent = "add_line_discount"
	EventAddSubtotalDiscount CartEvent = "add_subtotal_discount"
	EventSubtotal            CartEvent = "subtotal"
	EventAddPayment          CartEvent = "add_payment"
	EventResumeItemEntry     CartEvent = "resume_item_entry"
	EventBill                CartEvent = "bill"
	EventCancelCart          CartEvent = "cancel_cart"
)

// DiscountType distinguishes absolute-amount from percentage discounts.
type DiscountType string

const (
	DiscountTypeAmount     DiscountType = "Amount"
	DiscountTypePercentage DiscountType = "Percentage"
)

// Discount is set-valued on its owner (line item or cart): applying a new
// discount replaces the prior list rather than appending to it.
type Discount struct {
	SeqNo  int
	Type   DiscountType
	Value  decimal.Decimal // absolute amount, or percentage points for Percentage
	Amount decimal.Decimal // resolved monetary amount
	Detail string
}

// CartLineItem is one entered item. Amount is recomputed by the pricing
// pipeline on every state-affecting mutation: amount = unit_price*quantity
// minus the sum of non-allocated line discounts.
type CartLineItem struct {
	LineNo               int
	ItemCode             string
	Description          string
	UnitPrice            decimal.Decimal
	UnitPriceOriginal    decimal.Decimal
	IsUnitPriceChanged   bool
	Quantity             decimal.Decimal
	Amount               decimal.Decimal
	TaxCode              string
	IsDiscountRestricted bool
	IsCancelled          bool
	Discounts            []Discount
	DiscountsAllocated   []Discount // subtotal-discount portions allocated onto this line
	ImageURLs            []string
}

// Payment records one tender applied to a cart. Amount never exceeds
// DepositAmount; the difference is change for strategies that permit it.
type Payment struct {
	PaymentNo     int
	PaymentCode   string
	Description   string
	DepositAmount decimal.Decimal
	Amount        decimal.Decimal
	Detail        string
}

// TaxType distinguishes taxes added on top of the subtotal from taxes
// already folded into tax-inclusive line prices.
type TaxType string

const (
	TaxTypeExternal TaxType = "External"
	TaxTypeInternal TaxType = "Internal"
)

// Tax is one computed tax row, one per distinct tax_code present on the
// cart's non-cancelled lines.
type Tax struct {
	TaxNo          int
	TaxCode        string
	TaxType        TaxType
	TaxName        string
	TaxAmount      decimal.Decimal
	TargetAmount   decimal.Decimal
	TargetQuantity decimal.Decimal
}

// SalesRollup is the cart-level aggregate recomputed as the final step of
// the pricing pipeline (spec §4.4.2 step 4).
type SalesRollup struct {
	TotalAmount         decimal.Decimal
	TotalAmountWithTax  decimal.Decimal
	TotalDiscountAmount decimal.Decimal
	TotalQuantity       decimal.Decimal
	ChangeAmount        decimal.Decimal
}

// CartOrigin references the transaction a void or return is relative to.
type CartOrigin struct {
	TransactionNo   int
	TransactionType TransactionType
}

// Cart is owned by exactly one terminal session for its entire lifecycle.
type Cart struct {
	CartID            string
	TenantID          string
	StoreCode         string
	TerminalNo        int
	StaffID           string
	Status            CartStatus
	LineItems         []CartLineItem
	SubtotalDiscounts []Discount
	Payments          []Payment
	Taxes             []Tax
	Sales             SalesRollup
	Balance           decimal.Decimal
	ReceiptText       string
	JournalText       string
	Origin            *CartOrigin
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NextLineNo returns the dense, stable line number for a newly entered item.
func (c *Cart) NextLineNo() int {
	return len(c.LineItems) + 1
}

// ActiveLines returns the non-cancelled line items, the set the pricing
// pipeline folds into subtotal, tax and rollup computation.
func (c *Cart) ActiveLines() []*CartLineItem {
	lines := make([]*CartLineItem, 0, len(c.LineItems))
	for i := range c.LineItems {
		if !c.LineItems[i].IsCancelled {
			lines = append(lines, &c.LineItems[i])
		}
	}
	return lines
}
