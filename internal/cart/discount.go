package cart

import (
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// resolveDiscount converts a requested discount (type + value) into a
// concrete monetary Amount against base, validating the type-specific
// bound along the way. base is the line amount for a line discount or the
// current subtotal for a cart discount.
func resolveDiscount(seqNo int, dtype domain.DiscountType, value decimal.Decimal, detail string, base decimal.Decimal, roundMethod domain.RoundMethod) (domain.Discount, error) {
	d := domain.Discount{SeqNo: seqNo, Type: dtype, Value: value, Detail: detail}

	switch dtype {
	case domain.DiscountTypePercentage:
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return domain.Discount{}, domain.ErrInvalidPercentage
		}
		d.Amount = roundMethod.Apply(base.Mul(value).Div(decimal.NewFromInt(100)), 0)
	case domain.DiscountTypeAmount:
		d.Amount = value
	default:
		return domain.Discount{}, domain.ErrInvalidInput
	}

	if d.Amount.GreaterThan(base) {
		return domain.Discount{}, domain.ErrAmountLessThanDiscount
	}
	return d, nil
}

// AddLineDiscount applies a discount to one cart line. Per spec §4.4.3 a
// line's discount list is set-valued: this call replaces whatever
// discounts the line already carries, it does not append to them.
func AddLineDiscount(c *domain.Cart, lineNo int, dtype domain.DiscountType, value decimal.Decimal, detail string, roundMethod domain.RoundMethod) error {
	var line *domain.CartLineItem
	for i := range c.LineItems {
		if c.LineItems[i].LineNo == lineNo {
			line = &c.LineItems[i]
			break
		}
	}
	if line == nil {
		return domain.ErrNotFound
	}
	if line.IsDiscountRestricted {
		return domain.ErrDiscountRestricted
	}

	gross := line.UnitPrice.Mul(line.Quantity)
	d, err := resolveDiscount(len(line.Discounts)+1, dtype, value, detail, gross, roundMethod)
	if err != nil {
		return err
	}
	line.Discounts = []domain.Discount{d}
	return nil
}

// AddSubtotalDiscount applies a discount against the cart's current
// balance. Per spec §4.4.3 the cart's subtotal-discount list is also
// set-valued: this replaces the cart's prior subtotal discounts.
func AddSubtotalDiscount(c *domain.Cart, dtype domain.DiscountType, value decimal.Decimal, detail string, roundMethod domain.RoundMethod) error {
	if c.Balance.IsZero() || c.Balance.IsNegative() {
		return domain.ErrBalanceLessThanDiscount
	}
	d, err := resolveDiscount(len(c.SubtotalDiscounts)+1, dtype, value, detail, c.Balance, roundMethod)
	if err != nil {
		if err == domain.ErrAmountLessThanDiscount {
			return domain.ErrBalanceLessThanDiscount
		}
		return err
	}
	c.SubtotalDiscounts = []domain.Discount{d}
	return nil
}
