package eventbus

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// TransactionLogEvent is the wire shape of the payload published on
// TopicTransactionLog - "the full transaction record" per spec §4.5.1,
// camelCase per spec §6. internal/cart's engine produces it on
// finalization; internal/stock is its bus subscriber. internal/terminal
// publishes the same shape on the cash-log and open/close-log topics,
// which internal/journal subscribes to.
type TransactionLogEvent struct {
	TenantID         string                 `json:"tenantId"`
	StoreCode        string                 `json:"storeCode"`
	TerminalNo       int                    `json:"terminalNo"`
	TransactionNo    int                    `json:"transactionNo"`
	ReceiptNo        int                    `json:"receiptNo"`
	TransactionType  int                    `json:"transactionType"`
	BusinessDate     string                 `json:"businessDate"`
	OpenCounter      int                    `json:"openCounter"`
	BusinessCounter  int                    `json:"businessCounter"`
	GenerateDateTime time.Time              `json:"generateDateTime"`
	Origin           *TransactionOriginWire `json:"origin,omitempty"`
	StaffID          string                 `json:"staffId"`
	LineItems        []LineItemWire         `json:"lineItems"`
	Payments         []PaymentWire          `json:"payments"`
	Taxes            []TaxWire              `json:"taxes"`
	Sales            SalesRollupWire        `json:"sales"`
}

type TransactionOriginWire struct {
	TransactionNo   int `json:"transactionNo"`
	TransactionType int `json:"transactionType"`
}

type LineItemWire struct {
	LineNo               int             `json:"lineNo"`
	ItemCode             string          `json:"itemCode"`
	Description          string          `json:"description"`
	UnitPrice            decimal.Decimal `json:"unitPrice"`
	Quantity             decimal.Decimal `json:"quantity"`
	Amount               decimal.Decimal `json:"amount"`
	TaxCode              string          `json:"taxCode"`
	IsDiscountRestricted bool            `json:"isDiscountRestricted"`
	IsCancelled          bool            `json:"isCancelled"`
}

type PaymentWire struct {
	PaymentNo     int             `json:"paymentNo"`
	PaymentCode   string          `json:"paymentCode"`
	DepositAmount decimal.Decimal `json:"depositAmount"`
	Amount        decimal.Decimal `json:"amount"`
}

type TaxWire struct {
	TaxNo        int             `json:"taxNo"`
	TaxCode      string          `json:"taxCode"`
	TaxType      string          `json:"taxType"`
	TaxAmount    decimal.Decimal `json:"taxAmount"`
	TargetAmount decimal.Decimal `json:"targetAmount"`
}

type SalesRollupWire struct {
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	TotalAmountWithTax  decimal.Decimal `json:"totalAmountWithTax"`
	TotalDiscountAmount decimal.Decimal `json:"totalDiscountAmount"`
	TotalQuantity       decimal.Decimal `json:"totalQuantity"`
	ChangeAmount        decimal.Decimal `json:"changeAmount"`
}

// NewTransactionLogEvent builds the wire payload from a finalized
// TransactionLog, per spec §4.4.5 step 3 ("publish the event").
func NewTransactionLogEvent(t *domain.TransactionLog) TransactionLogEvent {
	lineItems := make([]LineItemWire, 0, len(t.LineItems))
	for _, li := range t.LineItems {
		lineItems = append(lineItems, LineItemWire{
			LineNo:               li.LineNo,
			ItemCode:             li.ItemCode,
			Description:          li.Description,
			UnitPrice:            li.UnitPrice,
			Quantity:             li.Quantity,
			Amount:               li.Amount,
			TaxCode:              li.TaxCode,
			IsDiscountRestricted: li.IsDiscountRestricted,
			IsCancelled:          li.IsCancelled,
		})
	}
	payments := make([]PaymentWire, 0, len(t.Payments))
	for _, p := range t.Payments {
		payments = append(payments, PaymentWire{
			PaymentNo:     p.PaymentNo,
			PaymentCode:   p.PaymentCode,
			DepositAmount: p.DepositAmount,
			Amount:        p.Amount,
		})
	}
	taxes := make([]TaxWire, 0, len(t.Taxes))
	for _, tx := range t.Taxes {
		taxes = append(taxes, TaxWire{
			TaxNo:        tx.TaxNo,
			TaxCode:      tx.TaxCode,
			TaxType:      string(tx.TaxType),
			TaxAmount:    tx.TaxAmount,
			TargetAmount: tx.TargetAmount,
		})
	}
	var origin *TransactionOriginWire
	if t.Origin != nil {
		origin = &TransactionOriginWire{TransactionNo: t.Origin.TransactionNo, TransactionType: int(t.Origin.TransactionType)}
	}
	return TransactionLogEvent{
		TenantID:         t.TenantID,
		StoreCode:        t.StoreCode,
		TerminalNo:       t.TerminalNo,
		TransactionNo:    t.TransactionNo,
		ReceiptNo:        t.ReceiptNo,
		TransactionType:  int(t.TransactionType),
		BusinessDate:     t.BusinessDate,
		OpenCounter:      t.OpenCounter,
		BusinessCounter:  t.BusinessCounter,
		GenerateDateTime: t.GenerateDateTime,
		Origin:           origin,
		StaffID:          t.StaffID,
		LineItems:        lineItems,
		Payments:         payments,
		Taxes:            taxes,
		Sales: SalesRollupWire{
			TotalAmount:         t.Sales.TotalAmount,
			TotalAmountWithTax:  t.Sales.TotalAmountWithTax,
			TotalDiscountAmount: t.Sales.TotalDiscountAmount,
			TotalQuantity:       t.Sales.TotalQuantity,
			ChangeAmount:        t.Sales.ChangeAmount,
		},
	}
}

// MarshalTransactionLogEvent is the convenience a publisher calls with a
// freshly finalized TransactionLog to get the bytes Publisher.Publish
// expects.
func MarshalTransactionLogEvent(t *domain.TransactionLog) ([]byte, error) {
	return json.Marshal(NewTransactionLogEvent(t))
}
