package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// Ledger is the single mutation entrypoint for stock quantities (spec
// §4.6.1): every caller, whether the transaction-event processor or a
// manual adjustment endpoint, goes through UpdateStock so the atomic
// increment and the append-only history entry are never written apart.
type Ledger struct {
	repo   *Repository
	alerts *AlertService
}

func NewLedger(repo *Repository, alerts *AlertService) *Ledger {
	return &Ledger{repo: repo, alerts: alerts}
}

// UpdateStock applies change (signed) to the current quantity, appends a
// StockUpdate entry recording the before/after image, and evaluates
// threshold alerts on the post-image. change is negative for sales,
// positive for voids/returns/receiving, per the table in spec §4.6.2.
func (l *Ledger) UpdateStock(ctx context.Context, tenantID, storeCode, itemCode string, change decimal.Decimal, updateType domain.StockUpdateType, referenceID, operatorID, note string) (*domain.Stock, error) {
	after, err := l.repo.AtomicIncrement(ctx, tenantID, storeCode, itemCode, change)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	update := &domain.StockUpdate{
		TenantID:       tenantID,
		StoreCode:      storeCode,
		ItemCode:       itemCode,
		UpdateType:     updateType,
		QuantityChange: change,
		BeforeQuantity: after.CurrentQuantity.Sub(change),
		AfterQuantity:  after.CurrentQuantity,
		ReferenceID:    referenceID,
		Timestamp:      now,
		OperatorID:     operatorID,
		Note:           note,
	}
	if err := l.repo.AppendUpdate(ctx, update); err != nil {
		return nil, err
	}
	if l.alerts != nil {
		l.alerts.Evaluate(ctx, tenantID, after)
	}
	return after, nil
}

// SetThresholds updates minimum/reorder thresholds without touching the
// quantity or writing a StockUpdate entry, since it is a configuration
// change rather than a movement.
func (l *Ledger) SetThresholds(ctx context.Context, storeCode, itemCode string, minimum, reorderPoint, reorderQty decimal.Decimal) error {
	return l.repo.SetThresholds(ctx, storeCode, itemCode, minimum, reorderPoint, reorderQty)
}

func (l *Ledger) GetStock(ctx context.Context, storeCode, itemCode string) (*domain.Stock, error) {
	return l.repo.GetStock(ctx, storeCode, itemCode)
}

func (l *Ledger) ListStocks(ctx context.Context, storeCode string) ([]domain.Stock, error) {
	return l.repo.ListStocks(ctx, storeCode)
}

func (l *Ledger) ListUpdateHistory(ctx context.Context, storeCode, itemCode string, limit, page int) ([]domain.StockUpdate, int, error) {
	return l.repo.ListUpdateHistory(ctx, storeCode, itemCode, limit, page)
}
