package stock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
)

// signAndType derives the signed multiplier and StockUpdateType for a
// transaction's line items, per the table in spec §4.6.2. Transaction
// types outside this table (open/close/cash, cancelled sales) never touch
// stock: for them it reports ok=false and Process skips the event.
func signAndType(transactionType domain.TransactionType) (int, domain.StockUpdateType, bool) {
	switch transactionType {
	case domain.TransactionTypeNormalSales:
		return -1, domain.StockUpdateSale, true
	case domain.TransactionTypeVoidSales:
		return 1, domain.StockUpdateVoid, true
	case domain.TransactionTypeReturnSales:
		return 1, domain.StockUpdateReturn, true
	case domain.TransactionTypeVoidReturn:
		return -1, domain.StockUpdateVoidReturn, true
	default:
		return 0, "", false
	}
}

// Processor consumes transaction-log events off the bus and applies each
// non-cancelled line item to the stock ledger (spec §4.6.2). It is
// registered as the "stock" subscriber via eventbus.Subscribe.
type Processor struct {
	ledger *Ledger
}

func NewProcessor(ledger *Ledger) *Processor {
	return &Processor{ledger: ledger}
}

// Process implements the function signature eventbus.Subscribe expects:
// it is handed the envelope's unwrapped data, not the raw bus payload.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	var event eventbus.TransactionLogEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	sign, updateType, ok := signAndType(domain.TransactionType(event.TransactionType))
	if !ok {
		return nil
	}
	for _, li := range event.LineItems {
		if li.IsCancelled {
			continue
		}
		if !li.Quantity.IsPositive() {
			continue
		}
		change := li.Quantity.Mul(decimal.NewFromInt(int64(sign)))
		referenceID := fmt.Sprintf("%d:%d:%d", event.TerminalNo, event.TransactionNo, li.LineNo)
		if _, err := p.ledger.UpdateStock(ctx, event.TenantID, event.StoreCode, li.ItemCode, change, updateType, referenceID, event.StaffID, ""); err != nil {
			return err
		}
	}
	return nil
}
