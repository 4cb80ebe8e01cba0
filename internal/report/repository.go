// Package report implements sales and item/category aggregation over
// finalized transaction logs, grounded on
// original_source/services/report's test suite (report_service.py itself
// is not in the retrieval pack's index; its expected behavior is
// reconstructed from test_sales_report_formula_*.py and
// test_split_payment_bug.py).
package report

import (
	"context"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/journal"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const (
	transactionLogsCollection   = "transaction_logs"
	transactionStatusCollection = "transaction_status"
)

// TransactionRecord pairs an immutable TransactionLog with its mutable
// TransactionStatus overlay, the shape every report read path needs
// (spec.md §4.4.6).
type TransactionRecord struct {
	Log    domain.TransactionLog
	Status domain.TransactionStatus
}

// Repository reads the transaction-log/status pair cart.Repository
// writes, plus cash-movement journal entries, without depending on the
// cart package itself - just the two collection names it writes to.
type Repository struct {
	gateway  storage.Gateway
	journals *journal.Repository
}

func NewRepository(gateway storage.Gateway, journals *journal.Repository) *Repository {
	return &Repository{gateway: gateway, journals: journals}
}

// ListTransactions returns every NormalSales/ReturnSales/Void transaction
// for q's store (and terminal, if set) whose business_date falls within
// q's range, each overlaid with its TransactionStatus.
func (r *Repository) ListTransactions(ctx context.Context, q domain.ReportQuery) ([]TransactionRecord, error) {
	filter := storage.Filter{"store_code": q.StoreCode}
	if q.TerminalNo != nil {
		filter["terminal_no"] = *q.TerminalNo
	}
	docs, _, err := r.gateway.List(ctx, transactionLogsCollection, filter, nil, 100000, 1)
	if err != nil {
		return nil, err
	}

	out := make([]TransactionRecord, 0, len(docs))
	for _, d := range docs {
		log := docToTransactionLog(d.Body)
		if !dateInRange(log.BusinessDate, q) {
			continue
		}
		if q.OpenCounter != 0 && log.OpenCounter != q.OpenCounter {
			continue
		}
		if q.BusinessCounter != 0 && log.BusinessCounter != q.BusinessCounter {
			continue
		}
		status, err := r.status(ctx, log.StoreCode, log.TerminalNo, log.TransactionNo)
		if err != nil {
			return nil, err
		}
		out = append(out, TransactionRecord{Log: *log, Status: *status})
	}
	return out, nil
}

// ListCashMovements returns the CashIn/CashOut journal entries backing
// a sales report's cash-drawer section; open/close and cash events never
// land in transaction_logs, only in the journal (internal/terminal
// publishes them straight to the bus, never through cart.Repository).
func (r *Repository) ListCashMovements(ctx context.Context, q domain.ReportQuery) ([]domain.Journal, error) {
	jq := domain.JournalQuery{
		StoreCode:        q.StoreCode,
		TransactionTypes: []domain.TransactionType{domain.TransactionTypeCashIn, domain.TransactionTypeCashOut},
		BusinessDateFrom: effectiveFrom(q),
		BusinessDateTo:   effectiveTo(q),
	}
	if q.TerminalNo != nil {
		jq.Terminals = []int{*q.TerminalNo}
	}
	entries, _, err := r.journals.List(ctx, jq, 100000, 1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Journal, 0, len(entries))
	for _, j := range entries {
		if q.OpenCounter != 0 && j.OpenCounter != q.OpenCounter {
			continue
		}
		if q.BusinessCounter != 0 && j.BusinessCounter != q.BusinessCounter {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (r *Repository) status(ctx context.Context, storeCode string, terminalNo, transactionNo int) (*domain.TransactionStatus, error) {
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

func effectiveFrom(q domain.ReportQuery) string {
	if q.BusinessDate != "" {
		return q.BusinessDate
	}
	return q.BusinessDateFrom
}

func effectiveTo(q domain.ReportQuery) string {
	if q.BusinessDate != "" {
		return q.BusinessDate
	}
	return q.BusinessDateTo
}

func dateInRange(businessDate string, q domain.ReportQuery) bool {
	if q.BusinessDate != "" {
		return businessDate == q.BusinessDate
	}
	if q.BusinessDateFrom != "" && businessDate < q.BusinessDateFrom {
		return false
	}
	if q.BusinessDateTo != "" && businessDate > q.BusinessDateTo {
		return false
	}
	return true
}
