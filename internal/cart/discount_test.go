package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func oneLineCart() *domain.Cart {
	return &domain.Cart{
		LineItems: []domain.CartLineItem{
			{LineNo: 1, UnitPrice: decimal.NewFromInt(1000), Quantity: decimal.NewFromInt(1)},
		},
	}
}

func TestAddLineDiscount_Percentage(t *testing.T) {
	c := oneLineCart()
	err := AddLineDiscount(c, 1, domain.DiscountTypePercentage, decimal.NewFromInt(10), "promo", domain.RoundHalfUp)
	require.NoError(t, err)
	require.Len(t, c.LineItems[0].Discounts, 1)
	assert.True(t, c.LineItems[0].Discounts[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestAddLineDiscount_ReplacesNotAppends(t *testing.T) {
	c := oneLineCart()
	require.NoError(t, AddLineDiscount(c, 1, domain.DiscountTypeAmount, decimal.NewFromInt(50), "", domain.RoundHalfUp))
	require.NoError(t, AddLineDiscount(c, 1, domain.DiscountTypeAmount, decimal.NewFromInt(80), "", domain.RoundHalfUp))
	require.Len(t, c.LineItems[0].Discounts, 1)
	assert.True(t, c.LineItems[0].Discounts[0].Amount.Equal(decimal.NewFromInt(80)))
}

func TestAddLineDiscount_RejectsRestrictedLine(t *testing.T) {
	c := oneLineCart()
	c.LineItems[0].IsDiscountRestricted = true
	err := AddLineDiscount(c, 1, domain.DiscountTypeAmount, decimal.NewFromInt(10), "", domain.RoundHalfUp)
	assert.ErrorIs(t, err, domain.ErrDiscountRestricted)
}

func TestAddLineDiscount_RejectsPercentageOutOfBounds(t *testing.T) {
	c := oneLineCart()
	err := AddLineDiscount(c, 1, domain.DiscountTypePercentage, decimal.NewFromInt(150), "", domain.RoundHalfUp)
	assert.ErrorIs(t, err, domain.ErrInvalidPercentage)
}

func TestAddLineDiscount_RejectsAmountExceedingLine(t *testing.T) {
	c := oneLineCart()
	err := AddLineDiscount(c, 1, domain.DiscountTypeAmount, decimal.NewFromInt(5000), "", domain.RoundHalfUp)
	assert.ErrorIs(t, err, domain.ErrAmountLessThanDiscount)
}

func TestAddSubtotalDiscount_RejectsWhenBalanceNotPositive(t *testing.T) {
	c := &domain.Cart{Balance: decimal.Zero}
	err := AddSubtotalDiscount(c, domain.DiscountTypeAmount, decimal.NewFromInt(10), "", domain.RoundHalfUp)
	assert.ErrorIs(t, err, domain.ErrBalanceLessThanDiscount)
}

func TestAddSubtotalDiscount_ReplacesPriorDiscount(t *testing.T) {
	c := &domain.Cart{Balance: decimal.NewFromInt(1000)}
	require.NoError(t, AddSubtotalDiscount(c, domain.DiscountTypeAmount, decimal.NewFromInt(100), "", domain.RoundHalfUp))
	require.NoError(t, AddSubtotalDiscount(c, domain.DiscountTypeAmount, decimal.NewFromInt(200), "", domain.RoundHalfUp))
	require.Len(t, c.SubtotalDiscounts, 1)
	assert.True(t, c.SubtotalDiscounts[0].Amount.Equal(decimal.NewFromInt(200)))
}
