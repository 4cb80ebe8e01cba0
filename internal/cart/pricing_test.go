package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func taxLookupFixture(rules map[string]*domain.TaxRule) TaxRuleLookup {
	return func(ctx context.Context, taxCode string) (*domain.TaxRule, error) {
		rule, ok := rules[taxCode]
		if !ok {
			return nil, domain.ErrTaxNotFound
		}
		return rule, nil
	}
}

func TestRepricer_LineArithmeticAndRollup(t *testing.T) {
	r := NewRepricer(domain.RoundHalfUp, taxLookupFixture(map[string]*domain.TaxRule{
		"T1": {TaxCode: "T1", TaxType: domain.TaxTypeExternal, TaxName: "VAT", Rate: decimal.NewFromFloat(0.1), RoundMethod: domain.RoundHalfUp},
	}))
	c := &domain.Cart{
		LineItems: []domain.CartLineItem{
			{LineNo: 1, UnitPrice: decimal.NewFromInt(1000), Quantity: decimal.NewFromInt(2), TaxCode: "T1"},
		},
	}
	require.NoError(t, r.Reprice(context.Background(), c))
	assert.True(t, c.LineItems[0].Amount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, c.Sales.TotalAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, c.Sales.TotalAmountWithTax.Equal(decimal.NewFromInt(2200)))
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(2200)))
}

func TestRepricer_CancelledLineExcludedFromRollup(t *testing.T) {
	r := NewRepricer(domain.RoundHalfUp, taxLookupFixture(nil))
	c := &domain.Cart{
		LineItems: []domain.CartLineItem{
			{LineNo: 1, UnitPrice: decimal.NewFromInt(500), Quantity: decimal.NewFromInt(1), IsCancelled: true},
			{LineNo: 2, UnitPrice: decimal.NewFromInt(300), Quantity: decimal.NewFromInt(1)},
		},
	}
	require.NoError(t, r.Reprice(context.Background(), c))
	assert.True(t, c.Sales.TotalAmount.Equal(decimal.NewFromInt(300)))
}

func TestRepricer_SubtotalDiscountAllocationSumsExactly(t *testing.T) {
	r := NewRepricer(domain.RoundHalfUp, taxLookupFixture(nil))
	c := &domain.Cart{
		LineItems: []domain.CartLineItem{
			{LineNo: 1, UnitPrice: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
			{LineNo: 2, UnitPrice: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
			{LineNo: 3, UnitPrice: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
		},
		SubtotalDiscounts: []domain.Discount{
			{SeqNo: 1, Type: domain.DiscountTypeAmount, Amount: decimal.NewFromInt(100)},
		},
	}
	require.NoError(t, r.Reprice(context.Background(), c))

	var allocatedTotal decimal.Decimal
	for _, line := range c.LineItems {
		for _, d := range line.DiscountsAllocated {
			allocatedTotal = allocatedTotal.Add(d.Amount)
		}
	}
	assert.True(t, allocatedTotal.Equal(decimal.NewFromInt(100)), "allocated total must equal the discount exactly, got %s", allocatedTotal)
	assert.True(t, c.Sales.TotalAmount.Equal(decimal.NewFromInt(200)))
}

func TestRepricer_DiscountRestrictedLineExcludedFromAllocation(t *testing.T) {
	r := NewRepricer(domain.RoundHalfUp, taxLookupFixture(nil))
	c := &domain.Cart{
		LineItems: []domain.CartLineItem{
			{LineNo: 1, UnitPrice: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), IsDiscountRestricted: true},
			{LineNo: 2, UnitPrice: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1)},
		},
		SubtotalDiscounts: []domain.Discount{
			{SeqNo: 1, Type: domain.DiscountTypeAmount, Amount: decimal.NewFromInt(50)},
		},
	}
	require.NoError(t, r.Reprice(context.Background(), c))
	assert.Empty(t, c.LineItems[0].DiscountsAllocated)
	require.Len(t, c.LineItems[1].DiscountsAllocated, 1)
	assert.True(t, c.LineItems[1].DiscountsAllocated[0].Amount.Equal(decimal.NewFromInt(50)))
}
