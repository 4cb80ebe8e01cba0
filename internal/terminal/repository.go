package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const terminalsCollection = "terminals"

// Repository persists Terminal documents, one tenant-scoped gateway per
// instance just like every other repository in this module.
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func terminalKey(storeCode string, terminalNo int) string {
	return fmt.Sprintf("%s:%d", storeCode, terminalNo)
}

func (r *Repository) Get(ctx context.Context, storeCode string, terminalNo int) (*domain.Terminal, error) {
	doc, err := r.gateway.Get(ctx, terminalsCollection, storage.Filter{"store_code": storeCode, "terminal_no": terminalNo})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrTerminalNotFound
	}
	return docToTerminal(doc.Body), nil
}

// GetByAPIKey is the read path middleware.TerminalValidator drives: the
// API key is opaque and unique, so it alone resolves the terminal.
func (r *Repository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Terminal, error) {
	doc, err := r.gateway.Get(ctx, terminalsCollection, storage.Filter{"api_key": apiKey})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrInvalidAPIKey
	}
	return docToTerminal(doc.Body), nil
}

func (r *Repository) List(ctx context.Context, storeCode string) ([]domain.Terminal, error) {
	docs, _, err := r.gateway.List(ctx, terminalsCollection, storage.Filter{"store_code": storeCode}, nil, 10000, 1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Terminal, 0, len(docs))
	for _, doc := range docs {
		out = append(out, *docToTerminal(doc.Body))
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, t *domain.Terminal) error {
	key := terminalKey(t.StoreCode, t.TerminalNo)
	return r.gateway.Create(ctx, terminalsCollection, key, terminalToDoc(t))
}

func (r *Repository) Save(ctx context.Context, t *domain.Terminal) error {
	t.UpdatedAt = time.Now().UTC()
	return r.gateway.Replace(ctx, terminalsCollection, storage.Filter{"store_code": t.StoreCode, "terminal_no": t.TerminalNo}, terminalToDoc(t))
}

func (r *Repository) Delete(ctx context.Context, storeCode string, terminalNo int) error {
	return r.gateway.Delete(ctx, terminalsCollection, storage.Filter{"store_code": storeCode, "terminal_no": terminalNo})
}

func terminalToDoc(t *domain.Terminal) map[string]any {
	return map[string]any{
		"tenant_id":        t.TenantID,
		"store_code":       t.StoreCode,
		"terminal_no":      t.TerminalNo,
		"function_mode":    t.FunctionMode,
		"status":           string(t.Status),
		"business_date":    t.BusinessDate,
		"open_counter":     t.OpenCounter,
		"business_counter": t.BusinessCounter,
		"staff_id":         t.StaffID,
		"api_key":          t.APIKey,
		"initial_amount":   t.InitialAmount.InexactFloat64(),
		"physical_amount":  t.PhysicalAmount.InexactFloat64(),
		"created_at":       t.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":       t.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func docToTerminal(m map[string]any) *domain.Terminal {
	return &domain.Terminal{
		TenantID:        asString(m["tenant_id"]),
		StoreCode:       asString(m["store_code"]),
		TerminalNo:      int(asFloat(m["terminal_no"])),
		FunctionMode:    asString(m["function_mode"]),
		Status:          domain.TerminalStatus(asString(m["status"])),
		BusinessDate:    asString(m["business_date"]),
		OpenCounter:     int(asFloat(m["open_counter"])),
		BusinessCounter: int(asFloat(m["business_counter"])),
		StaffID:         asString(m["staff_id"]),
		APIKey:          asString(m["api_key"]),
		InitialAmount:   asDecimal(m["initial_amount"]),
		PhysicalAmount:  asDecimal(m["physical_amount"]),
		CreatedAt:       asTime(m["created_at"]),
		UpdatedAt:       asTime(m["updated_at"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
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
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
