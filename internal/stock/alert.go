package stock

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// AlertPublisher is the narrow surface internal/stock needs out of
// internal/websocket.Hub, kept as an interface so this package never
// imports the transport layer directly.
type AlertPublisher interface {
	PublishStockAlert(tenantID string, alert domain.StockAlert)
}

// AlertService evaluates the low-stock and reorder thresholds after every
// mutation (spec §4.6.2) and pushes a StockAlert per crossing, subject to
// a per-item-per-type cooldown so a item sitting below a threshold for an
// extended run of sales doesn't re-alert on every single line.
type AlertService struct {
	publisher AlertPublisher
	cooldown  time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewAlertService(publisher AlertPublisher, cooldown time.Duration) *AlertService {
	return &AlertService{publisher: publisher, cooldown: cooldown, lastSent: map[string]time.Time{}}
}

func alertCooldownKey(tenantID, storeCode, itemCode string, alertType domain.AlertType) string {
	return tenantID + ":" + storeCode + ":" + itemCode + ":" + string(alertType)
}

// Evaluate checks s against both thresholds and publishes any alert whose
// cooldown has elapsed. A threshold of zero means the check is disabled
// for that item, matching masterdata's convention of zero-as-unset.
func (a *AlertService) Evaluate(ctx context.Context, tenantID string, s *domain.Stock) {
	if a.publisher == nil {
		return
	}
	now := time.Now().UTC()
	if !s.MinimumQuantity.IsZero() && s.CurrentQuantity.LessThanOrEqual(s.MinimumQuantity) {
		a.maybeSend(tenantID, s, domain.AlertTypeLowStock, s.MinimumQuantity, now)
	}
	if !s.ReorderPoint.IsZero() && s.CurrentQuantity.LessThanOrEqual(s.ReorderPoint) {
		a.maybeSend(tenantID, s, domain.AlertTypeReorder, s.ReorderPoint, now)
	}
}

func (a *AlertService) maybeSend(tenantID string, s *domain.Stock, alertType domain.AlertType, threshold decimal.Decimal, now time.Time) {
	key := alertCooldownKey(tenantID, s.StoreCode, s.ItemCode, alertType)
	a.mu.Lock()
	last, ok := a.lastSent[key]
	if ok && now.Sub(last) < a.cooldown {
		a.mu.Unlock()
		return
	}
	a.lastSent[key] = now
	a.mu.Unlock()

	a.publisher.PublishStockAlert(tenantID, domain.StockAlert{
		Type:            alertType,
		ItemCode:        s.ItemCode,
		CurrentQuantity: s.CurrentQuantity,
		Threshold:       threshold,
		Timestamp:       now,
	})
}
