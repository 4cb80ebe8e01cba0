package cart

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// TaxRuleLookup resolves a tax_code to its rule, normally backed by the
// masterdata.Cache for the calling cart.
type TaxRuleLookup func(ctx context.Context, taxCode string) (*domain.TaxRule, error)

// Repricer runs the full pricing pipeline (spec §4.4.2) in order: line
// arithmetic, subtotal-discount allocation, tax computation, sales
// rollup. It is invoked after every state-affecting mutation.
type Repricer struct {
	roundMethod domain.RoundMethod
	lookupTax   TaxRuleLookup
}

func NewRepricer(roundMethod domain.RoundMethod, lookupTax TaxRuleLookup) *Repricer {
	return &Repricer{roundMethod: roundMethod, lookupTax: lookupTax}
}

// Reprice mutates cart in place.
func (r *Repricer) Reprice(ctx context.Context, c *domain.Cart) error {
	lineArithmetic(c)
	if err := r.allocateSubtotalDiscounts(c); err != nil {
		return err
	}
	if err := r.computeTaxes(ctx, c); err != nil {
		return err
	}
	rollup(c)
	return nil
}

// lineArithmetic implements step 1: amount = unit_price*quantity minus the
// sum of the line's own (non-subtotal) discounts. Cancelled lines are left
// at zero and excluded from every later step.
func lineArithmetic(c *domain.Cart) {
	for i := range c.LineItems {
		line := &c.LineItems[i]
		if line.IsCancelled {
			line.Amount = decimal.Zero
			continue
		}
		gross := line.UnitPrice.Mul(line.Quantity)
		var discountTotal decimal.Decimal
		for _, d := range line.Discounts {
			discountTotal = discountTotal.Add(d.Amount)
		}
		line.Amount = gross.Sub(discountTotal)
	}
}

// allocateSubtotalDiscounts implements step 2: proportional distribution
// of each subtotal discount across non-cancelled, non-restricted lines by
// line amount, with the rounding remainder swept onto the largest line(s)
// so the allocated total matches the discount's amount exactly.
func (r *Repricer) allocateSubtotalDiscounts(c *domain.Cart) error {
	for i := range c.LineItems {
		c.LineItems[i].DiscountsAllocated = nil
	}
	if len(c.SubtotalDiscounts) == 0 {
		return nil
	}

	eligible := make([]*domain.CartLineItem, 0, len(c.LineItems))
	var subtotal decimal.Decimal
	for i := range c.LineItems {
		line := &c.LineItems[i]
		if line.IsCancelled || line.IsDiscountRestricted {
			continue
		}
		eligible = append(eligible, line)
		subtotal = subtotal.Add(line.Amount)
	}
	if len(eligible) == 0 || subtotal.IsZero() {
		return nil
	}

	for _, sd := range c.SubtotalDiscounts {
		if err := r.allocateOne(eligible, subtotal, sd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repricer) allocateOne(eligible []*domain.CartLineItem, subtotal decimal.Decimal, sd domain.Discount) error {
	allocated := make([]decimal.Decimal, len(eligible))
	var sum decimal.Decimal
	for i, line := range eligible {
		share := sd.Amount.Mul(line.Amount).Div(subtotal)
		share = r.roundMethod.Apply(share, 0)
		allocated[i] = share
		sum = sum.Add(share)
	}

	remainder := sd.Amount.Sub(sum)
	if !remainder.IsZero() {
		order := make([]int, len(eligible))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			return eligible[order[a]].Amount.GreaterThan(eligible[order[b]].Amount)
		})
		if len(order) == 0 {
			return domain.ErrDiscountAllocationFailed
		}
		unit := decimal.New(1, 0)
		if remainder.IsNegative() {
			unit = unit.Neg()
		}
		remaining := remainder
		for _, idx := range order {
			if remaining.IsZero() {
				break
			}
			allocated[idx] = allocated[idx].Add(unit)
			remaining = remaining.Sub(unit)
		}
		if !remaining.IsZero() {
			return domain.ErrDiscountAllocationFailed
		}
	}

	for i, line := range eligible {
		line.DiscountsAllocated = append(line.DiscountsAllocated, domain.Discount{
			SeqNo:  sd.SeqNo,
			Type:   sd.Type,
			Amount: allocated[i],
			Detail: sd.Detail,
		})
	}
	return nil
}

// computeTaxes implements step 3: one Tax row per distinct tax_code
// appearing on non-cancelled lines.
func (r *Repricer) computeTaxes(ctx context.Context, c *domain.Cart) error {
	type bucket struct {
		amount   decimal.Decimal
		quantity decimal.Decimal
	}
	byCode := map[string]*bucket{}
	var order []string
	for _, line := range c.ActiveLines() {
		if line.TaxCode == "" {
			continue
		}
		b, ok := byCode[line.TaxCode]
		if !ok {
			b = &bucket{}
			byCode[line.TaxCode] = b
			order = append(order, line.TaxCode)
		}
		lineNet := line.Amount
		for _, d := range line.DiscountsAllocated {
			lineNet = lineNet.Sub(d.Amount)
		}
		b.amount = b.amount.Add(lineNet)
		b.quantity = b.quantity.Add(line.Quantity)
	}

	taxes := make([]domain.Tax, 0, len(order))
	for i, code := range order {
		rule, err := r.lookupTax(ctx, code)
		if err != nil {
			return err
		}
		b := byCode[code]
		taxAmount := rule.RoundMethod.Apply(b.amount.Mul(rule.Rate), rule.RoundDigit)
		taxes = append(taxes, domain.Tax{
			TaxNo:          i + 1,
			TaxCode:        code,
			TaxType:        rule.TaxType,
			TaxName:        rule.TaxName,
			TaxAmount:      taxAmount,
			TargetAmount:   b.amount,
			TargetQuantity: b.quantity,
		})
	}
	c.Taxes = taxes
	return nil
}

// rollup implements step 4: the cart-level sales aggregate.
func rollup(c *domain.Cart) {
	var totalAmount, totalQuantity, totalDiscount decimal.Decimal

	for _, line := range c.ActiveLines() {
		totalAmount = totalAmount.Add(line.Amount)
		totalQuantity = totalQuantity.Add(line.Quantity)
		for _, d := range line.Discounts {
			totalDiscount = totalDiscount.Add(d.Amount)
		}
	}

	var subtotalDiscountTotal decimal.Decimal
	for _, sd := range c.SubtotalDiscounts {
		subtotalDiscountTotal = subtotalDiscountTotal.Add(sd.Amount)
	}
	totalAmount = totalAmount.Sub(subtotalDiscountTotal)
	totalDiscount = totalDiscount.Add(subtotalDiscountTotal)

	var externalTax decimal.Decimal
	for _, t := range c.Taxes {
		if t.TaxType == domain.TaxTypeExternal {
			externalTax = externalTax.Add(t.TaxAmount)
		}
	}

	var paid decimal.Decimal
	for _, p := range c.Payments {
		paid = paid.Add(p.Amount)
	}

	c.Sales.TotalAmount = totalAmount
	c.Sales.TotalAmountWithTax = totalAmount.Add(externalTax)
	c.Sales.TotalDiscountAmount = totalDiscount
	c.Sales.TotalQuantity = totalQuantity
	c.Balance = c.Sales.TotalAmountWithTax.Sub(paid)
}
