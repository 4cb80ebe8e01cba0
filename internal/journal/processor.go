package journal

import (
	"context"
	"encoding/json"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

// Processor consumes the cash-in/out and open/close events (both carried
// as TransactionLogEvent payloads) off the bus. It is registered in-process
// as the "journal" subscriber of TopicCashLog and TopicOpenCloseLog via
// eventbus.Subscribe, mirroring internal/stock.Processor; finalized cart
// transactions reach the journal through the synchronous
// cart.JournalWriter path instead.
type Processor struct {
	service *Service
	gateway storage.Gateway
}

func NewProcessor(service *Service, gateway storage.Gateway) *Processor {
	return &Processor{service: service, gateway: gateway}
}

// Process implements the function signature eventbus.Subscribe expects.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var event eventbus.TransactionLogEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	return p.service.Append(ctx, p.gateway, transactionLogFromEvent(&event))
}

func transactionLogFromEvent(e *eventbus.TransactionLogEvent) *domain.TransactionLog {
	lineItems := make([]domain.CartLineItem, 0, len(e.LineItems))
	for _, li := range e.LineItems {
		lineItems = append(lineItems, domain.CartLineItem{
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
	payments := make([]domain.Payment, 0, len(e.Payments))
	for _, p := range e.Payments {
		payments = append(payments, domain.Payment{
			PaymentNo:     p.PaymentNo,
			PaymentCode:   p.PaymentCode,
			DepositAmount: p.DepositAmount,
			Amount:        p.Amount,
		})
	}
	taxes := make([]domain.Tax, 0, len(e.Taxes))
	for _, tx := range e.Taxes {
		taxes = append(taxes, domain.Tax{
			TaxNo:        tx.TaxNo,
			TaxCode:      tx.TaxCode,
			TaxType:      domain.TaxType(tx.TaxType),
			TaxAmount:    tx.TaxAmount,
			TargetAmount: tx.TargetAmount,
		})
	}
	var origin *domain.CartOrigin
	if e.Origin != nil {
		origin = &domain.CartOrigin{TransactionNo: e.Origin.TransactionNo, TransactionType: domain.TransactionType(e.Origin.TransactionType)}
	}
	return &domain.TransactionLog{
		TenantID:         e.TenantID,
		StoreCode:        e.StoreCode,
		TerminalNo:       e.TerminalNo,
		TransactionNo:    e.TransactionNo,
		ReceiptNo:        e.ReceiptNo,
		TransactionType:  domain.TransactionType(e.TransactionType),
		BusinessDate:     e.BusinessDate,
		OpenCounter:      e.OpenCounter,
		BusinessCounter:  e.BusinessCounter,
		GenerateDateTime: e.GenerateDateTime,
		Origin:           origin,
		StaffID:          e.StaffID,
		LineItems:        lineItems,
		Payments:         payments,
		Taxes:            taxes,
		Sales: domain.SalesRollup{
			TotalAmount:         e.Sales.TotalAmount,
			TotalAmountWithTax:  e.Sales.TotalAmountWithTax,
			TotalDiscountAmount: e.Sales.TotalDiscountAmount,
			TotalQuantity:       e.Sales.TotalQuantity,
			ChangeAmount:        e.Sales.ChangeAmount,
		},
	}
}
