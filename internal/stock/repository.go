// Package stock implements the stock ledger, snapshots, and alerting
// subsystem (C6): an atomic upsert-increment mutation per spec §4.6.1, an
// append-only StockUpdate log, a per-tenant cron-scheduled snapshot job,
// and a threshold-crossing alert service pushed over a per-tenant stream.
package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const (
	stocksCollection            = "stocks"
	stockUpdatesCollection      = "stock_updates"
	stockSnapshotsCollection    = "stock_snapshots"
	snapshotSchedulesCollection = "snapshot_schedules"
)

// Repository persists Stock, StockUpdate, StockSnapshot, and
// SnapshotSchedule documents, all within a tenant-scoped gateway.
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func stockKey(storeCode, itemCode string) string { return storeCode + ":" + itemCode }

func (r *Repository) GetStock(ctx context.Context, storeCode, itemCode string) (*domain.Stock, error) {
	doc, err := r.gateway.Get(ctx, stocksCollection, storage.Filter{"store_code": storeCode, "item_code": itemCode})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrStockNotFound
	}
	return docToStock(doc.Body), nil
}

// ListStocks returns every stock row for storeCode, used both for
// snapshots and for low-stock/reorder query endpoints.
func (r *Repository) ListStocks(ctx context.Context, storeCode string) ([]domain.Stock, error) {
	docs, _, err := r.gateway.List(ctx, stocksCollection, storage.Filter{"store_code": storeCode}, nil, 10000, 1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Stock, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *docToStock(doc.Body))
	}
	return out, nil
}

// ListDistinctStoreCodes returns every store_code with at least one stock
// row, for resolving the literal "all" a SnapshotSchedule.TargetStores
// entry may carry (spec §4.6.3). storage.Filter is equality-only, so this
// lists every row and de-duplicates client-side, the same pattern
// ListSnapshotsByDateRange already uses for its range predicate.
func (r *Repository) ListDistinctStoreCodes(ctx context.Context) ([]string, error) {
	docs, _, err := r.gateway.List(ctx, stocksCollection, storage.Filter{}, nil, 10000, 1)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(docs))
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		store := asString(doc.Body["store_code"])
		if store == "" || seen[store] {
			continue
		}
		seen[store] = true
		out = append(out, store)
	}
	return out, nil
}

// AtomicIncrement applies the $inc primitive of spec §4.6.1 and returns
// the post-image, creating the row with zeroed thresholds if absent.
func (r *Repository) AtomicIncrement(ctx context.Context, tenantID, storeCode, itemCode string, change decimal.Decimal) (*domain.Stock, error) {
	key := stockKey(storeCode, itemCode)
	defaultBody := map[string]any{
		"tenant_id":        tenantID,
		"store_code":       storeCode,
		"item_code":        itemCode,
		"minimum_quantity": 0.0,
		"reorder_point":    0.0,
		"reorder_quantity": 0.0,
	}
	doc, err := r.gateway.AtomicUpsertInc(ctx, stocksCollection, key, map[string]float64{
		"current_quantity": change.InexactFloat64(),
	}, defaultBody)
	if err != nil {
		return nil, err
	}
	return docToStock(doc.Body), nil
}

func (r *Repository) SetThresholds(ctx context.Context, storeCode, itemCode string, minimum, reorderPoint, reorderQty decimal.Decimal) error {
	return r.gateway.UpdateFields(ctx, stocksCollection, storage.Filter{"store_code": storeCode, "item_code": itemCode}, map[string]any{
		"minimum_quantity": minimum.InexactFloat64(),
		"reorder_point":    reorderPoint.InexactFloat64(),
		"reorder_quantity": reorderQty.InexactFloat64(),
	})
}

// AppendUpdate writes an immutable StockUpdate ledger entry (spec
// §4.6.1 step 3). The key includes a timestamp since entries are never
// replaced or looked up by natural key, only listed by range.
func (r *Repository) AppendUpdate(ctx context.Context, u *domain.StockUpdate) error {
	key := fmt.Sprintf("%s:%s:%s:%d", u.StoreCode, u.ItemCode, u.ReferenceID, u.Timestamp.UnixNano())
	return r.gateway.Create(ctx, stockUpdatesCollection, key, stockUpdateToDoc(u))
}

// ListUpdateHistory returns StockUpdate entries for one item in the
// gateway's default order (PgGateway: most recently created row first).
// No sort on the Timestamp field is requested.
func (r *Repository) ListUpdateHistory(ctx context.Context, storeCode, itemCode string, limit, page int) ([]domain.StockUpdate, int, error) {
	docs, total, err := r.gateway.List(ctx, stockUpdatesCollection, storage.Filter{"store_code": storeCode, "item_code": itemCode}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.StockUpdate, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *docToStockUpdate(doc.Body))
	}
	return out, total, nil
}

func (r *Repository) SaveSnapshot(ctx context.Context, s *domain.StockSnapshot) error {
	key := fmt.Sprintf("%s:%s:%d", s.TenantID, s.StoreCode, s.GenerateDateTime.UnixNano())
	return r.gateway.Create(ctx, stockSnapshotsCollection, key, stockSnapshotToDoc(s))
}

func (r *Repository) ListSnapshotsByDateRange(ctx context.Context, storeCode string, from, to time.Time) ([]domain.StockSnapshot, error) {
	docs, _, err := r.gateway.List(ctx, stockSnapshotsCollection, storage.Filter{"store_code": storeCode}, nil, 10000, 1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StockSnapshot, 0, len(docs))
	for _, doc := range docs {
		snap := docToStockSnapshot(doc.Body)
		if snap.GenerateDateTime.Before(from) || snap.GenerateDateTime.After(to) {
			continue
		}
		out = append(out, *snap)
	}
	return out, nil
}

func (r *Repository) GetSchedule(ctx context.Context, tenantID string) (*domain.SnapshotSchedule, error) {
	doc, err := r.gateway.Get(ctx, snapshotSchedulesCollection, storage.Filter{"tenant_id": tenantID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return docToSchedule(doc.Body), nil
}

func (r *Repository) SaveSchedule(ctx context.Context, s *domain.SnapshotSchedule) error {
	body := scheduleToDoc(s)
	if err := r.gateway.Create(ctx, snapshotSchedulesCollection, s.TenantID, body); err != nil {
		return r.gateway.Replace(ctx, snapshotSchedulesCollection, storage.Filter{"tenant_id": s.TenantID}, body)
	}
	return nil
}

// DeleteExpiredSnapshots removes StockSnapshot rows whose GenerateDateTime
// is older than retentionDays before now, the cron-driven delete sweep
// re-expressing a Mongo TTL index on stock_snapshots in Postgres terms.
// retentionDays is the owning SnapshotSchedule's *current* value, not
// whatever was in force when a given snapshot was taken, so a retention
// change (e.g. 30 -> 7) makes every existing snapshot older than the new
// window eligible for expiry on the very next sweep (spec.md §8 scenario
// 6) instead of only snapshots created after the change.
func (r *Repository) DeleteExpiredSnapshots(ctx context.Context, now time.Time, retentionDays int) (int, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	docs, _, err := r.gateway.List(ctx, stockSnapshotsCollection, storage.Filter{}, nil, 10000, 1)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, doc := range docs {
		snap := docToStockSnapshot(doc.Body)
		if snap.GenerateDateTime.After(cutoff) {
			continue
		}
		filter := storage.Filter{
			"store_code":         snap.StoreCode,
			"generate_date_time": doc.Body["generate_date_time"],
		}
		if err := r.gateway.Delete(ctx, stockSnapshotsCollection, filter); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (r *Repository) ListSchedules(ctx context.Context) ([]domain.SnapshotSchedule, error) {
	docs, _, err := r.gateway.List(ctx, snapshotSchedulesCollection, storage.Filter{}, nil, 10000, 1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SnapshotSchedule, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *docToSchedule(doc.Body))
	}
	return out, nil
}

func stockToDoc(s *domain.Stock) map[string]any {
	return map[string]any{
		"tenant_id":        s.TenantID,
		"store_code":       s.StoreCode,
		"item_code":        s.ItemCode,
		"current_quantity": s.CurrentQuantity.InexactFloat64(),
		"minimum_quantity": s.MinimumQuantity.InexactFloat64(),
		"reorder_point":    s.ReorderPoint.InexactFloat64(),
		"reorder_quantity": s.ReorderQuantity.InexactFloat64(),
		"updated_at":       s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func docToStock(m map[string]any) *domain.Stock {
	return &domain.Stock{
		TenantID:        asString(m["tenant_id"]),
		StoreCode:       asString(m["store_code"]),
		ItemCode:        asString(m["item_code"]),
		CurrentQuantity: asDecimal(m["current_quantity"]),
		MinimumQuantity: asDecimal(m["minimum_quantity"]),
		ReorderPoint:    asDecimal(m["reorder_point"]),
		ReorderQuantity: asDecimal(m["reorder_quantity"]),
		UpdatedAt:       asTime(m["updated_at"]),
	}
}

func stockUpdateToDoc(u *domain.StockUpdate) map[string]any {
	return map[string]any{
		"tenant_id":       u.TenantID,
		"store_code":      u.StoreCode,
		"item_code":       u.ItemCode,
		"update_type":     string(u.UpdateType),
		"quantity_change": u.QuantityChange.InexactFloat64(),
		"before_quantity": u.BeforeQuantity.InexactFloat64(),
		"after_quantity":  u.AfterQuantity.InexactFloat64(),
		"reference_id":    u.ReferenceID,
		"timestamp":       u.Timestamp.Format(time.RFC3339Nano),
		"operator_id":     u.OperatorID,
		"note":            u.Note,
	}
}

func docToStockUpdate(m map[string]any) *domain.StockUpdate {
	return &domain.StockUpdate{
		TenantID:       asString(m["tenant_id"]),
		StoreCode:      asString(m["store_code"]),
		ItemCode:       asString(m["item_code"]),
		UpdateType:     domain.StockUpdateType(asString(m["update_type"])),
		QuantityChange: asDecimal(m["quantity_change"]),
		BeforeQuantity: asDecimal(m["before_quantity"]),
		AfterQuantity:  asDecimal(m["after_quantity"]),
		ReferenceID:    asString(m["reference_id"]),
		Timestamp:      asTime(m["timestamp"]),
		OperatorID:     asString(m["operator_id"]),
		Note:           asString(m["note"]),
	}
}

func stockSnapshotToDoc(s *domain.StockSnapshot) map[string]any {
	items := make([]any, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, stockToDoc(&it))
	}
	return map[string]any{
		"tenant_id":          s.TenantID,
		"store_code":         s.StoreCode,
		"items":              items,
		"generate_date_time": s.GenerateDateTime.Format(time.RFC3339Nano),
	}
}

func docToStockSnapshot(m map[string]any) *domain.StockSnapshot {
	rawItems, _ := m["items"].([]any)
	items := make([]domain.Stock, 0, len(rawItems))
	for _, ri := range rawItems {
		if im, ok := ri.(map[string]any); ok {
			items = append(items, *docToStock(im))
		}
	}
	return &domain.StockSnapshot{
		TenantID:         asString(m["tenant_id"]),
		StoreCode:        asString(m["store_code"]),
		Items:            items,
		GenerateDateTime: asTime(m["generate_date_time"]),
	}
}

func scheduleToDoc(s *domain.SnapshotSchedule) map[string]any {
	body := map[string]any{
		"tenant_id":      s.TenantID,
		"enabled":        s.Enabled,
		"interval":       string(s.Interval),
		"hour":           s.Hour,
		"minute":         s.Minute,
		"retention_days": s.RetentionDays,
		"target_stores":  toAnySlice(s.TargetStores),
	}
	if s.DayOfWeek != nil {
		body["day_of_week"] = *s.DayOfWeek
	}
	if s.DayOfMonth != nil {
		body["day_of_month"] = *s.DayOfMonth
	}
	if s.LastExecutedAt != nil {
		body["last_executed_at"] = s.LastExecutedAt.Format(time.RFC3339Nano)
	}
	if s.NextExecutionAt != nil {
		body["next_execution_at"] = s.NextExecutionAt.Format(time.RFC3339Nano)
	}
	return body
}

func docToSchedule(m map[string]any) *domain.SnapshotSchedule {
	s := &domain.SnapshotSchedule{
		TenantID:      asString(m["tenant_id"]),
		Enabled:       asBool(m["enabled"]),
		Interval:      domain.SnapshotInterval(asString(m["interval"])),
		Hour:          int(asFloat(m["hour"])),
		Minute:        int(asFloat(m["minute"])),
		RetentionDays: int(asFloat(m["retention_days"])),
		TargetStores:  asStringSlice(m["target_stores"]),
	}
	if v, ok := m["day_of_week"]; ok {
		n := int(asFloat(v))
		s.DayOfWeek = &n
	}
	if v, ok := m["day_of_month"]; ok {
		n := int(asFloat(v))
		s.DayOfMonth = &n
	}
	if v, ok := m["last_executed_at"]; ok {
		t := asTime(v)
		s.LastExecutedAt = &t
	}
	if v, ok := m["next_execution_at"]; ok {
		t := asTime(v)
		s.NextExecutionAt = &t
	}
	return s
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
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
	f, _ := v.(float64)
	return f
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
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
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
