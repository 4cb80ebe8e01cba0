package report

import (
	"context"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
)

// Service is the report-facing half of spec.md's reporting surface:
// sales and item/category aggregation for a store or one of its
// terminals, in either flash (mid-day) or daily (post-close) scope.
type Service struct {
	repo  *Repository
	mdata *masterdata.Repository
}

func NewService(repo *Repository, mdata *masterdata.Repository) *Service {
	return &Service{repo: repo, mdata: mdata}
}

// GetSalesReport validates q and returns the aggregated sales report with
// its receipt/journal text rendered.
func (s *Service) GetSalesReport(ctx context.Context, q domain.ReportQuery) (*domain.SalesReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	records, err := s.repo.ListTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	cash, err := s.repo.ListCashMovements(ctx, q)
	if err != nil {
		return nil, err
	}
	report := BuildSalesReport(q, records, cash)
	report.ReceiptText = FormatSalesReceiptText(report)
	report.JournalText = FormatSalesJournalText(report)
	return report, nil
}

// GetItemReport validates q and returns the aggregated item/category
// report with its receipt/journal text rendered.
func (s *Service) GetItemReport(ctx context.Context, q domain.ReportQuery) (*domain.ItemReport, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	records, err := s.repo.ListTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	report, err := BuildItemReport(ctx, s.mdata, q, records)
	if err != nil {
		return nil, err
	}
	report.ReceiptText = FormatItemReceiptText(report)
	report.JournalText = FormatItemJournalText(report)
	return report, nil
}
