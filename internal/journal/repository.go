// Package journal implements C5's "journal" subscriber: receipt/journal
// text formatting and storage for every transaction log, cash in/out,
// and terminal open/close event, modeled on
// original_source/services/journal.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const journalsCollection = "journals"

// Repository persists Journal documents, one per finalized transaction,
// cash in/out, or open/close event.
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func journalKey(storeCode string, terminalNo, transactionNo int, transactionType domain.TransactionType) string {
	return fmt.Sprintf("%s:%d:%d:%d", storeCode, terminalNo, transactionNo, transactionType)
}

// Create writes j with gw, the Gateway handed in by the caller - either
// the process-wide gateway (async subscriber path) or a transaction-bound
// one (Engine.finalize's synchronous JournalWriter path).
func (r *Repository) Create(ctx context.Context, gw storage.Gateway, j *domain.Journal) error {
	key := journalKey(j.StoreCode, j.TerminalNo, j.TransactionNo, j.TransactionType)
	return gw.Create(ctx, journalsCollection, key, journalToDoc(j))
}

func (r *Repository) Get(ctx context.Context, storeCode string, terminalNo, transactionNo int, transactionType domain.TransactionType) (*domain.Journal, error) {
	doc, err := r.gateway.Get(ctx, journalsCollection, storage.Filter{
		"store_code":     storeCode,
		"terminal_no":    terminalNo,
		"transaction_no": transactionNo,
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrJournalNotFound
	}
	return docToJournal(doc.Body), nil
}

// List applies q's equality-filterable fields at the storage layer and
// the remaining range/keyword criteria in-process, mirroring
// stock.Repository.ListSnapshotsByDateRange's post-fetch filtering -
// storage.Filter only supports equality containment (see
// internal/storage.Filter's doc comment).
func (r *Repository) List(ctx context.Context, q domain.JournalQuery, limit, page int) ([]domain.Journal, int, error) {
	filter := storage.Filter{}
	if q.StoreCode != "" {
		filter["store_code"] = q.StoreCode
	}
	docs, _, err := r.gateway.List(ctx, journalsCollection, filter, storage.Sort{{Field: "generate_date_time", Ascending: false}}, 10000, 1)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Journal, 0, len(docs))
	for _, d := range docs {
		j := docToJournal(d.Body)
		if !matches(j, q) {
			continue
		}
		out = append(out, *j)
	}
	total := len(out)

	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start >= len(out) {
		return []domain.Journal{}, total, nil
	}
	end := start + limit
	if limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func matches(j *domain.Journal, q domain.JournalQuery) bool {
	if len(q.Terminals) > 0 && !containsInt(q.Terminals, j.TerminalNo) {
		return false
	}
	if len(q.TransactionTypes) > 0 && !containsType(q.TransactionTypes, j.TransactionType) {
		return false
	}
	if q.BusinessDateFrom != "" && j.BusinessDate < q.BusinessDateFrom {
		return false
	}
	if q.BusinessDateTo != "" && j.BusinessDate > q.BusinessDateTo {
		return false
	}
	if !q.GenerateDateTimeFrom.IsZero() && j.GenerateDateTime.Before(q.GenerateDateTimeFrom) {
		return false
	}
	if !q.GenerateDateTimeTo.IsZero() && j.GenerateDateTime.After(q.GenerateDateTimeTo) {
		return false
	}
	if q.ReceiptNoFrom != 0 && j.ReceiptNo < q.ReceiptNoFrom {
		return false
	}
	if q.ReceiptNoTo != 0 && j.ReceiptNo > q.ReceiptNoTo {
		return false
	}
	for _, kw := range q.Keywords {
		if !containsSubstring(j.JournalText, kw) && !containsSubstring(j.ReceiptText, kw) {
			return false
		}
	}
	return true
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsType(xs []domain.TransactionType, v domain.TransactionType) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func journalToDoc(j *domain.Journal) map[string]any {
	return map[string]any{
		"tenant_id":          j.TenantID,
		"store_code":         j.StoreCode,
		"terminal_no":        j.TerminalNo,
		"transaction_no":     j.TransactionNo,
		"receipt_no":         j.ReceiptNo,
		"transaction_type":   int(j.TransactionType),
		"business_date":      j.BusinessDate,
		"open_counter":       j.OpenCounter,
		"business_counter":   j.BusinessCounter,
		"generate_date_time": j.GenerateDateTime.Format(time.RFC3339Nano),
		"amount":             j.Amount.String(),
		"quantity":           j.Quantity.String(),
		"staff_id":           j.StaffID,
		"journal_text":       j.JournalText,
		"receipt_text":       j.ReceiptText,
	}
}

func docToJournal(m map[string]any) *domain.Journal {
	return &domain.Journal{
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
		Amount:           asDecimal(m["amount"]),
		Quantity:         asDecimal(m["quantity"]),
		StaffID:          asString(m["staff_id"]),
		JournalText:      asString(m["journal_text"]),
		ReceiptText:      asString(m["receipt_text"]),
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
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
