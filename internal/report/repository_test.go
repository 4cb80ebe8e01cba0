package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/journal"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func transactionLogDoc(terminalNo, transactionNo int, transactionType domain.TransactionType, businessDate, totalWithTax string) map[string]any {
	return map[string]any{
		"store_code":            "STORE001",
		"terminal_no":           terminalNo,
		"transaction_no":        transactionNo,
		"transaction_type":      int(transactionType),
		"business_date":         businessDate,
		"open_counter":          1,
		"business_counter":      1,
		"line_items":            []any{},
		"payments":              []any{},
		"taxes":                 []any{},
		"sales": map[string]any{
			"total_amount":           totalWithTax,
			"total_amount_with_tax":  totalWithTax,
			"total_discount_amount":  "0",
			"total_quantity":         "1",
		},
	}
}

func TestRepository_ListTransactions_FiltersByBusinessDateAndTerminal(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()

	require.NoError(t, gw.Create(ctx, transactionLogsCollection, "t1", transactionLogDoc(1, 100, domain.TransactionTypeNormalSales, "2026-07-30", "1000")))
	require.NoError(t, gw.Create(ctx, transactionLogsCollection, "t2", transactionLogDoc(1, 101, domain.TransactionTypeNormalSales, "2026-07-31", "2000")))
	require.NoError(t, gw.Create(ctx, transactionLogsCollection, "t3", transactionLogDoc(2, 102, domain.TransactionTypeNormalSales, "2026-07-31", "3000")))

	repo := NewRepository(gw, journal.NewRepository(gw))
	terminal := 1
	records, err := repo.ListTransactions(ctx, domain.ReportQuery{StoreCode: "STORE001", TerminalNo: &terminal, BusinessDate: "2026-07-31"})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, 101, records[0].Log.TransactionNo)
}

func TestRepository_ListTransactions_JoinsTransactionStatus(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()

	require.NoError(t, gw.Create(ctx, transactionLogsCollection, "t1", transactionLogDoc(1, 100, domain.TransactionTypeNormalSales, "2026-07-31", "1000")))
	require.NoError(t, gw.Create(ctx, transactionStatusCollection, "s1", map[string]any{
		"store_code":     "STORE001",
		"terminal_no":    1,
		"transaction_no": 100,
		"is_voided":      true,
	}))

	repo := NewRepository(gw, journal.NewRepository(gw))
	records, err := repo.ListTransactions(ctx, domain.ReportQuery{StoreCode: "STORE001", BusinessDate: "2026-07-31"})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.True(t, records[0].Status.IsVoided)
}

func TestRepository_ListCashMovements(t *testing.T) {
	gw := testutil.NewMockGateway()
	ctx := context.Background()
	journals := journal.NewRepository(gw)

	require.NoError(t, journals.Create(ctx, gw, &domain.Journal{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 1, TransactionType: domain.TransactionTypeCashIn,
		BusinessDate: "2026-07-31", Amount: dec("5000"),
	}))
	require.NoError(t, journals.Create(ctx, gw, &domain.Journal{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 2, TransactionType: domain.TransactionTypeCashOut,
		BusinessDate: "2026-07-31", Amount: dec("-1000"),
	}))
	require.NoError(t, journals.Create(ctx, gw, &domain.Journal{
		StoreCode: "STORE001", TerminalNo: 1, TransactionNo: 3, TransactionType: domain.TransactionTypeNormalSales,
		BusinessDate: "2026-07-31", Amount: dec("1000"),
	}))

	repo := NewRepository(gw, journals)
	entries, err := repo.ListCashMovements(ctx, domain.ReportQuery{StoreCode: "STORE001", BusinessDate: "2026-07-31"})
	require.NoError(t, err)

	assert.Len(t, entries, 2)
}
