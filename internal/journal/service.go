package journal

import (
	"context"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

// Service is the journal-facing half of C5: it formats and stores one
// Journal record per finalized transaction log, modeled on
// original_source/services/journal/app/services/journal_service.py and
// its log_service.py counterpart (which writes the transaction log and
// the journal record inside one atomic transaction).
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Append implements cart.JournalWriter: it is handed the same gw the
// caller is writing the transaction log against, so both land in one
// storage transaction.
func (s *Service) Append(ctx context.Context, gw storage.Gateway, t *domain.TransactionLog) error {
	j := journalFromTransactionLog(t)
	return s.repo.Create(ctx, gw, j)
}

// GetJournals lists journal entries per q, with pagination metadata,
// mirroring journal_service.get_journals_paginated_async.
func (s *Service) GetJournals(ctx context.Context, q domain.JournalQuery, limit, page int) ([]domain.Journal, int, error) {
	return s.repo.List(ctx, q, limit, page)
}

func journalFromTransactionLog(t *domain.TransactionLog) *domain.Journal {
	transactionType := t.TransactionType
	if t.TransactionType == domain.TransactionTypeNormalSales {
		for _, li := range t.LineItems {
			if li.IsCancelled {
				transactionType = domain.TransactionTypeNormalSalesCancel
				break
			}
		}
	}
	return &domain.Journal{
		TenantID:         t.TenantID,
		StoreCode:        t.StoreCode,
		TerminalNo:       t.TerminalNo,
		TransactionNo:    t.TransactionNo,
		ReceiptNo:        t.ReceiptNo,
		TransactionType:  transactionType,
		BusinessDate:     t.BusinessDate,
		OpenCounter:      t.OpenCounter,
		BusinessCounter:  t.BusinessCounter,
		GenerateDateTime: t.GenerateDateTime,
		Amount:           t.Sales.TotalAmountWithTax,
		Quantity:         t.Sales.TotalQuantity,
		StaffID:          t.StaffID,
		JournalText:      FormatJournalText(t),
		ReceiptText:      FormatReceiptText(t),
	}
}
