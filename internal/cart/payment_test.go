package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func cashMethod() domain.PaymentMethod {
	return domain.PaymentMethod{PaymentCode: "CASH", Description: "Cash", CanChange: true, CanDepositOver: true, CanRefund: true}
}

func cardMethod() domain.PaymentMethod {
	return domain.PaymentMethod{PaymentCode: "CARD", Description: "Card"}
}

func TestDefaultStrategy_Pay_ExactAmount(t *testing.T) {
	c := &domain.Cart{Balance: decimal.NewFromInt(1000)}
	payment, err := DefaultStrategy.Pay(c, cashMethod(), decimal.NewFromInt(1000), "")
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, c.Balance.IsZero())
}

func TestDefaultStrategy_Pay_ChangeWhenCanChange(t *testing.T) {
	c := &domain.Cart{Balance: decimal.NewFromInt(1000)}
	payment, err := DefaultStrategy.Pay(c, cashMethod(), decimal.NewFromInt(1500), "")
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, c.Sales.ChangeAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, c.Balance.IsZero())
}

func TestDefaultStrategy_Pay_RejectsDepositOverWithoutCapability(t *testing.T) {
	c := &domain.Cart{Balance: decimal.NewFromInt(1000)}
	_, err := DefaultStrategy.Pay(c, cardMethod(), decimal.NewFromInt(1500), "")
	assert.ErrorIs(t, err, domain.ErrDepositOver)
}

func TestDefaultStrategy_Pay_RejectsZeroBalance(t *testing.T) {
	c := &domain.Cart{Balance: decimal.Zero}
	_, err := DefaultStrategy.Pay(c, cashMethod(), decimal.NewFromInt(100), "")
	assert.ErrorIs(t, err, domain.ErrBalanceZero)
}

func TestDefaultStrategy_Refund_RejectsWithoutCapability(t *testing.T) {
	c := &domain.Cart{Balance: decimal.Zero}
	_, err := DefaultStrategy.Refund(c, cardMethod(), decimal.NewFromInt(100), "")
	assert.ErrorIs(t, err, domain.ErrCannotRefund)
}

func TestDefaultStrategy_Refund_NegatesAmountAndRestoresBalance(t *testing.T) {
	c := &domain.Cart{Balance: decimal.Zero}
	payment, err := DefaultStrategy.Refund(c, cashMethod(), decimal.NewFromInt(300), "")
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(-300)))
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(300)))
}

func TestRegistry_ResolveFallsBackToDefault(t *testing.T) {
	r := NewRegistry()
	strategy := r.Resolve("ANYTHING")
	assert.NotNil(t, strategy.Pay)
}

func TestRegistry_RegisterOverridesDefault(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("POINTS", PaymentStrategy{
		Pay: func(c *domain.Cart, method domain.PaymentMethod, depositAmount decimal.Decimal, detail string) (domain.Payment, error) {
			called = true
			return domain.Payment{PaymentCode: method.PaymentCode, Amount: depositAmount}, nil
		},
	})
	_, err := r.Resolve("POINTS").Pay(&domain.Cart{}, domain.PaymentMethod{PaymentCode: "POINTS"}, decimal.NewFromInt(10), "")
	require.NoError(t, err)
	assert.True(t, called)
}
