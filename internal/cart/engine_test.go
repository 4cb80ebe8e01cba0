package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/counter"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

const testTenant = "T0001"
const testStore = "ST01"
const testTerminalNo = 1

func newTestEngine(t *testing.T) (*Engine, *testutil.MockMasterdataSource, *testutil.MockBus) {
	t.Helper()
	gateway := testutil.NewMockGateway()
	repo := NewRepository(gateway)
	counters := counter.New(gateway)
	bus := testutil.NewMockBus()
	ebRepo := eventbus.NewRepository(gateway)
	publisher := eventbus.NewPublisher(ebRepo, bus, map[string][]string{
		eventbus.TopicTransactionLog: {"stock", "journal"},
	})

	source := testutil.NewMockMasterdataSource()
	source.AddItem(testTenant, testStore, &domain.Item{
		TenantID: testTenant, StoreCode: testStore, ItemCode: "ITEM1",
		Description: "Widget", UnitPrice: decimal.NewFromInt(1000), TaxCode: "T1",
	})
	source.AddTaxRule(testTenant, &domain.TaxRule{
		TenantID: testTenant, TaxCode: "T1", TaxType: domain.TaxTypeExternal, TaxName: "VAT",
		Rate: decimal.NewFromFloat(0.1), RoundDigit: 0, RoundMethod: domain.RoundHalfUp,
	})
	source.AddPaymentMethod(testTenant, &domain.PaymentMethod{
		TenantID: testTenant, PaymentCode: "CASH", Description: "Cash",
		CanRefund: true, CanDepositOver: true, CanChange: true,
	})

	caches := func(tenantID, storeCode string) *masterdata.Cache { return masterdata.NewCache(source, 0) }

	terminal := &domain.Terminal{
		TenantID: testTenant, StoreCode: testStore, TerminalNo: testTerminalNo,
		Status: domain.TerminalStatusOpened, BusinessDate: "20260731",
		OpenCounter: 1, BusinessCounter: 0,
	}
	terminals := func(ctx context.Context, tenantID, storeCode string, terminalNo int) (*domain.Terminal, error) {
		return terminal, nil
	}

	registry := NewRegistry()
	engine := NewEngine(repo, gateway, counters, publisher, caches, terminals, nil, registry, domain.RoundHalfUp)
	return engine, source, bus
}

func TestEngine_CreateAddItemsSubtotalPayBill(t *testing.T) {
	engine, _, bus := newTestEngine(t)
	ctx := context.Background()

	c, err := engine.Create(ctx, testTenant, testStore, testTerminalNo, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CartStatusIdle, c.Status)

	c, err = engine.AddItems(ctx, c.CartID, []LineItemRequest{{ItemCode: "ITEM1", Quantity: decimal.NewFromInt(2)}})
	require.NoError(t, err)
	assert.Equal(t, domain.CartStatusEnteringItem, c.Status)
	assert.True(t, c.Sales.TotalAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, c.Sales.TotalAmountWithTax.Equal(decimal.NewFromInt(2200)))

	c, err = engine.Subtotal(ctx, c.CartID)
	require.NoError(t, err)
	assert.Equal(t, domain.CartStatusPaying, c.Status)

	c, err = engine.AddPayment(ctx, c.CartID, "CASH", decimal.NewFromInt(2200), "")
	require.NoError(t, err)
	assert.True(t, c.Balance.IsZero())

	txLog, err := engine.Bill(ctx, c.CartID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeNormalSales, txLog.TransactionType)
	assert.Equal(t, 1, txLog.TransactionNo)
	assert.Equal(t, 1, txLog.ReceiptNo)
	assert.True(t, txLog.Sales.TotalAmountWithTax.Equal(decimal.NewFromInt(2200)))

	billedCart, err := engine.repo.GetCart(ctx, c.CartID)
	require.NoError(t, err)
	assert.Equal(t, domain.CartStatusCompleted, billedCart.Status)

	assert.Equal(t, 1, bus.Count(eventbus.TopicTransactionLog))
}

func TestEngine_Bill_RejectsNonZeroBalance(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	c, err := engine.Create(ctx, testTenant, testStore, testTerminalNo, "staff-1")
	require.NoError(t, err)
	c, err = engine.AddItems(ctx, c.CartID, []LineItemRequest{{ItemCode: "ITEM1", Quantity: decimal.NewFromInt(1)}})
	require.NoError(t, err)
	c, err = engine.Subtotal(ctx, c.CartID)
	require.NoError(t, err)

	_, err = engine.Bill(ctx, c.CartID)
	assert.ErrorIs(t, err, domain.ErrBalanceNotZero)
}

func TestEngine_CancelCart_ValidFromAnyNonTerminalState(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	c, err := engine.Create(ctx, testTenant, testStore, testTerminalNo, "staff-1")
	require.NoError(t, err)
	c, err = engine.CancelCart(ctx, c.CartID)
	require.NoError(t, err)
	assert.Equal(t, domain.CartStatusCancelled, c.Status)

	_, err = engine.CancelCart(ctx, c.CartID)
	assert.ErrorIs(t, err, domain.ErrInvalidCartEvent)
}

func billOneItem(t *testing.T, engine *Engine, qty int64) *domain.TransactionLog {
	t.Helper()
	ctx := context.Background()
	c, err := engine.Create(ctx, testTenant, testStore, testTerminalNo, "staff-1")
	require.NoError(t, err)
	c, err = engine.AddItems(ctx, c.CartID, []LineItemRequest{{ItemCode: "ITEM1", Quantity: decimal.NewFromInt(qty)}})
	require.NoError(t, err)
	c, err = engine.Subtotal(ctx, c.CartID)
	require.NoError(t, err)
	c, err = engine.AddPayment(ctx, c.CartID, "CASH", c.Sales.TotalAmountWithTax, "")
	require.NoError(t, err)
	txLog, err := engine.Bill(ctx, c.CartID)
	require.NoError(t, err)
	return txLog
}

func TestEngine_VoidTransaction(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	txLog := billOneItem(t, engine, 1)

	voidLog, err := engine.VoidTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-2")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeVoidSales, voidLog.TransactionType)
	assert.True(t, voidLog.Sales.TotalAmountWithTax.Equal(txLog.Sales.TotalAmountWithTax))
	require.Len(t, voidLog.LineItems, 1)
	assert.True(t, voidLog.LineItems[0].Quantity.IsPositive())

	status, err := engine.repo.GetTransactionStatus(ctx, testStore, testTerminalNo, txLog.TransactionNo)
	require.NoError(t, err)
	assert.True(t, status.IsVoided)

	_, err = engine.VoidTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-2")
	assert.ErrorIs(t, err, domain.ErrAlreadyVoided)
}

func TestEngine_ReturnTransaction(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	txLog := billOneItem(t, engine, 1)

	returnLog, err := engine.ReturnTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-2", []RefundRequest{
		{PaymentCode: "CASH", Amount: txLog.Sales.TotalAmountWithTax},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeReturnSales, returnLog.TransactionType)
	assert.True(t, returnLog.Sales.TotalAmountWithTax.Equal(txLog.Sales.TotalAmountWithTax.Neg()))
	require.Len(t, returnLog.LineItems, 1)
	assert.True(t, returnLog.LineItems[0].Quantity.IsPositive())
	require.Len(t, returnLog.Payments, 1)
	assert.True(t, returnLog.Payments[0].Amount.IsNegative())

	status, err := engine.repo.GetTransactionStatus(ctx, testStore, testTerminalNo, txLog.TransactionNo)
	require.NoError(t, err)
	assert.True(t, status.IsRefunded)

	_, err = engine.ReturnTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-2", []RefundRequest{
		{PaymentCode: "CASH", Amount: txLog.Sales.TotalAmountWithTax},
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyRefunded)
}

func TestEngine_ReturnTransaction_RejectsAmountMismatch(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	txLog := billOneItem(t, engine, 1)

	_, err := engine.ReturnTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-2", []RefundRequest{
		{PaymentCode: "CASH", Amount: decimal.NewFromInt(1)},
	})
	assert.ErrorIs(t, err, domain.ErrRefundAmountMismatch)
}

func TestEngine_VoidAfterRefund_Blocked(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	txLog := billOneItem(t, engine, 1)
	returnLog, err := engine.ReturnTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-2", []RefundRequest{
		{PaymentCode: "CASH", Amount: txLog.Sales.TotalAmountWithTax},
	})
	require.NoError(t, err)

	_, err = engine.VoidTransaction(ctx, testTenant, testStore, testTerminalNo, txLog.TransactionNo, "staff-3")
	assert.ErrorIs(t, err, domain.ErrAlreadyRefunded)

	_, err = engine.VoidTransaction(ctx, testTenant, testStore, testTerminalNo, returnLog.TransactionNo, "staff-3")
	require.NoError(t, err)

	originStatus, err := engine.repo.GetTransactionStatus(ctx, testStore, testTerminalNo, txLog.TransactionNo)
	require.NoError(t, err)
	assert.False(t, originStatus.IsRefunded)
}
