package cart

import (
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// PaymentStrategy is one payment method's behavior. Strategies are plain
// function-typed fields rather than a type hierarchy, matched against the
// teacher's preference for composition over inheritance elsewhere in this
// codebase; PaymentMethod itself (not the strategy) owns the capability
// flags (CanRefund/CanDepositOver/CanChange), so the default strategy
// below covers every payment_code and custom strategies are only needed
// for a payment method whose processing diverges from the generic rules.
type PaymentStrategy struct {
	Pay    func(c *domain.Cart, method domain.PaymentMethod, depositAmount decimal.Decimal, detail string) (domain.Payment, error)
	Refund func(c *domain.Cart, method domain.PaymentMethod, amount decimal.Decimal, detail string) (domain.Payment, error)
}

// Registry resolves a payment_code to the PaymentStrategy that processes
// it, falling back to DefaultStrategy for any code with no override.
type Registry struct {
	strategies map[string]PaymentStrategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: map[string]PaymentStrategy{}}
}

// Register installs a payment_code-specific override. Not currently
// exercised by any built-in payment method, but kept so a future
// non-generic tender (store credit, loyalty points) has somewhere to
// plug in without touching engine.go.
func (r *Registry) Register(paymentCode string, s PaymentStrategy) {
	r.strategies[paymentCode] = s
}

func (r *Registry) Resolve(paymentCode string) PaymentStrategy {
	if s, ok := r.strategies[paymentCode]; ok {
		return s
	}
	return DefaultStrategy
}

// createPayment builds the Payment entry for a new tender, validating
// only that the cart still has a positive balance to apply it against.
// It does not update the balance; callers do that via updateBalance or
// updateChange after applying method-specific rules.
func createPayment(c *domain.Cart, method domain.PaymentMethod, amount decimal.Decimal, detail string) (domain.Payment, error) {
	if c.Balance.LessThan(decimal.NewFromInt(1)) {
		return domain.Payment{}, domain.ErrBalanceZero
	}
	return domain.Payment{
		PaymentNo:     len(c.Payments) + 1,
		PaymentCode:   method.PaymentCode,
		Description:   method.Description,
		DepositAmount: amount,
		Amount:        amount,
		Detail:        detail,
	}, nil
}

// updateBalance deducts a payment from the cart balance, rejecting any
// payment that would drive it negative.
func updateBalance(c *domain.Cart, paymentAmount decimal.Decimal) error {
	next := c.Balance.Sub(paymentAmount)
	if next.IsNegative() {
		return domain.ErrBalanceMinus
	}
	c.Balance = next
	return nil
}

// checkDepositOver rejects a deposit larger than the remaining balance,
// for payment methods that cannot tender more than what is owed.
func checkDepositOver(c *domain.Cart, depositAmount decimal.Decimal) error {
	if depositAmount.GreaterThan(c.Balance) {
		return domain.ErrDepositOver
	}
	return nil
}

// updateChange caps payment.Amount at the cart balance and records the
// difference as change, for payment methods that permit it.
func updateChange(c *domain.Cart, payment *domain.Payment) {
	change := payment.DepositAmount.Sub(c.Balance)
	if change.IsPositive() {
		c.Sales.ChangeAmount = change
		payment.Amount = c.Balance
	}
}

// DefaultStrategy drives pay/refund entirely off the resolved
// PaymentMethod's capability flags: deposit-over is rejected unless
// CanDepositOver, the surplus becomes change only if CanChange, and
// refund is rejected outright unless CanRefund.
var DefaultStrategy = PaymentStrategy{
	Pay: func(c *domain.Cart, method domain.PaymentMethod, depositAmount decimal.Decimal, detail string) (domain.Payment, error) {
		if !method.CanDepositOver {
			if err := checkDepositOver(c, depositAmount); err != nil {
				return domain.Payment{}, err
			}
		}
		payment, err := createPayment(c, method, depositAmount, detail)
		if err != nil {
			return domain.Payment{}, err
		}
		if method.CanChange {
			updateChange(c, &payment)
			c.Balance = decimal.Zero
			return payment, nil
		}
		if err := updateBalance(c, payment.Amount); err != nil {
			return domain.Payment{}, err
		}
		return payment, nil
	},
	Refund: func(c *domain.Cart, method domain.PaymentMethod, amount decimal.Decimal, detail string) (domain.Payment, error) {
		if !method.CanRefund {
			return domain.Payment{}, domain.ErrCannotRefund
		}
		payment := domain.Payment{
			PaymentNo:     len(c.Payments) + 1,
			PaymentCode:   method.PaymentCode,
			Description:   method.Description,
			DepositAmount: amount.Neg(),
			Amount:        amount.Neg(),
			Detail:        detail,
		}
		c.Balance = c.Balance.Add(amount)
		return payment, nil
	},
}
