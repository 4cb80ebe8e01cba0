package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/counter"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
	"github.com/kugelpos/kugel-backend/internal/notify"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

// CacheFactory returns the masterdata.Cache a cart belonging to
// (tenantID, storeCode) should read through. Engine asks for one exactly
// once per cart, at Create, and keeps it for the cart's whole lifetime
// (spec §4.3: a cart's view of prices must stay consistent from start to
// finalization). storeCode is threaded through so a Hub can hand back a
// gRPC-backed cache pooled by (tenant, store) per spec §4.3's channel-pool
// requirement, instead of only ever the HTTP collaborator.
type CacheFactory func(tenantID, storeCode string) *masterdata.Cache

// TerminalLookup resolves the terminal a cart or a void/return belongs to,
// needed for the BusinessDate/OpenCounter/BusinessCounter a transaction
// log carries (spec §4.4.5).
type TerminalLookup func(ctx context.Context, tenantID, storeCode string, terminalNo int) (*domain.Terminal, error)

// JournalWriter appends the journal-facing record spec §4.4.5 step 3
// requires be written in the same storage transaction as the transaction
// log itself. It is the only path by which finalized transactions reach
// the journal; internal/journal's bus subscription covers only the
// cash-log and open/close-log topics.
type JournalWriter interface {
	Append(ctx context.Context, gw storage.Gateway, t *domain.TransactionLog) error
}

// LineItemRequest is one line of an AddItems call.
type LineItemRequest struct {
	ItemCode          string
	Quantity          decimal.Decimal
	UnitPriceOverride *decimal.Decimal
}

// RefundRequest is one tender of a ReturnTransaction call.
type RefundRequest struct {
	PaymentCode string
	Amount      decimal.Decimal
	Detail      string
}

// Engine is C4: the cart state machine, pricing pipeline, discount and
// payment rules and finalization tied into one aggregate root. Every
// mutation is serialized per cart_id (spec §5) via an in-process mutex
// keyed by cart_id - correct because a cart is owned by exactly one
// terminal session and so is never contended across processes.
type Engine struct {
	repo        *Repository
	gateway     storage.Gateway
	counters    *counter.Service
	publisher   *eventbus.Publisher
	caches      CacheFactory
	terminals   TerminalLookup
	journal     JournalWriter
	registry    *Registry
	roundMethod domain.RoundMethod
	notifier    *notify.SlackNotifier

	locks      sync.Map // cart_id -> *sync.Mutex
	cartCaches sync.Map // cart_id -> *masterdata.Cache
}

func NewEngine(repo *Repository, gateway storage.Gateway, counters *counter.Service, publisher *eventbus.Publisher, caches CacheFactory, terminals TerminalLookup, journal JournalWriter, registry *Registry, roundMethod domain.RoundMethod) *Engine {
	return &Engine{
		repo: repo, gateway: gateway, counters: counters, publisher: publisher,
		caches: caches, terminals: terminals, journal: journal, registry: registry,
		roundMethod: roundMethod,
	}
}

// WithNotifier attaches the best-effort Slack notifier finalize fires on a
// transaction-log write failure (spec §7). Optional: a nil or never-called
// notifier leaves finalize's error behavior unchanged, since
// (*notify.SlackNotifier).NotifyFatal is nil-safe.
func (e *Engine) WithNotifier(n *notify.SlackNotifier) *Engine {
	e.notifier = n
	return e
}

func (e *Engine) lockFor(cartID string) *sync.Mutex {
	v, _ := e.locks.LoadOrStore(cartID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (e *Engine) cacheFor(cartID, tenantID, storeCode string) *masterdata.Cache {
	v, loaded := e.cartCaches.Load(cartID)
	if loaded {
		return v.(*masterdata.Cache)
	}
	c := e.caches(tenantID, storeCode)
	actual, _ := e.cartCaches.LoadOrStore(cartID, c)
	return actual.(*masterdata.Cache)
}

func (e *Engine) repricer(c *domain.Cart, cache *masterdata.Cache) *Repricer {
	return NewRepricer(e.roundMethod, func(ctx context.Context, taxCode string) (*domain.TaxRule, error) {
		return cache.TaxRule(ctx, c.TenantID, taxCode)
	})
}

// Create opens a new cart in Idle state (EventCreate: Initial -> Idle).
func (e *Engine) Create(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID string) (*domain.Cart, error) {
	now := time.Now().UTC()
	c := &domain.Cart{
		CartID: uuid.New().String(), TenantID: tenantID, StoreCode: storeCode,
		TerminalNo: terminalNo, StaffID: staffID, Status: domain.CartStatusInitial,
		CreatedAt: now, UpdatedAt: now,
	}
	next, ok := allows(c.Status, domain.EventCreate)
	if !ok {
		return nil, domain.ErrInvalidCartEvent
	}
	c.Status = next
	e.cacheFor(c.CartID, tenantID, storeCode)
	if err := e.repo.SaveCart(ctx, e.gateway, c); err != nil {
		return nil, err
	}
	return c, nil
}

// mutate loads the cart, checks the (status, event) transition, runs fn
// against the locked-in-memory aggregate, reprices, persists and returns
// the fresh state. fn must not itself touch c.Status.
func (e *Engine) mutate(ctx context.Context, cartID string, event domain.CartEvent, fn func(ctx context.Context, c *domain.Cart, cache *masterdata.Cache) error) (*domain.Cart, error) {
	mu := e.lockFor(cartID)
	mu.Lock()
	defer mu.Unlock()

	c, err := e.repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	next, ok := allows(c.Status, event)
	if !ok {
		return nil, domain.ErrInvalidCartEvent
	}

	cache := e.cacheFor(cartID, c.TenantID, c.StoreCode)
	if err := fn(ctx, c, cache); err != nil {
		return nil, err
	}

	c.Status = next
	if err := e.repricer(c, cache).Reprice(ctx, c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now().UTC()
	if err := e.repo.SaveCart(ctx, e.gateway, c); err != nil {
		return nil, err
	}
	if c.Status == domain.CartStatusCancelled {
		e.cartCaches.Delete(cartID)
	}
	return c, nil
}

// AddItems resolves each requested item via the cart's masterdata cache
// and appends it as a new line (spec §4.4.3).
func (e *Engine) AddItems(ctx context.Context, cartID string, items []LineItemRequest) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventAddItems, func(ctx context.Context, c *domain.Cart, cache *masterdata.Cache) error {
		for _, req := range items {
			if !req.Quantity.IsPositive() {
				return domain.ErrInvalidQuantity
			}
			item, err := cache.Item(ctx, c.TenantID, c.StoreCode, req.ItemCode)
			if err != nil {
				return err
			}
			unitPrice := item.UnitPrice
			changed := false
			if req.UnitPriceOverride != nil {
				unitPrice = *req.UnitPriceOverride
				changed = true
			}
			c.LineItems = append(c.LineItems, domain.CartLineItem{
				LineNo: c.NextLineNo(), ItemCode: item.ItemCode, Description: item.Description,
				UnitPrice: unitPrice, UnitPriceOriginal: item.UnitPrice, IsUnitPriceChanged: changed,
				Quantity: req.Quantity, TaxCode: item.TaxCode, IsDiscountRestricted: item.IsDiscountRestricted,
				ImageURLs: item.ImageURLs,
			})
		}
		return nil
	})
}

// CancelLine marks one line cancelled; it still appears on the cart but
// is excluded from every pricing step from then on (spec §4.4.3).
func (e *Engine) CancelLine(ctx context.Context, cartID string, lineNo int) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventCancelLine, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		for i := range c.LineItems {
			if c.LineItems[i].LineNo == lineNo {
				c.LineItems[i].IsCancelled = true
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

// UnitPriceOverride replaces a line's unit price with a staff-entered one.
func (e *Engine) UnitPriceOverride(ctx context.Context, cartID string, lineNo int, newPrice decimal.Decimal) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventUnitPriceOverride, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		for i := range c.LineItems {
			if c.LineItems[i].LineNo == lineNo {
				c.LineItems[i].UnitPrice = newPrice
				c.LineItems[i].IsUnitPriceChanged = true
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

// AddLineDiscount applies (replacing) a discount to one line.
func (e *Engine) AddLineDiscount(ctx context.Context, cartID string, lineNo int, dtype domain.DiscountType, value decimal.Decimal, detail string) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventAddLineDiscount, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		return AddLineDiscount(c, lineNo, dtype, value, detail, e.roundMethod)
	})
}

// AddSubtotalDiscount applies (replacing) a discount against the whole cart.
func (e *Engine) AddSubtotalDiscount(ctx context.Context, cartID string, dtype domain.DiscountType, value decimal.Decimal, detail string) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventAddSubtotalDiscount, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		return AddSubtotalDiscount(c, dtype, value, detail, e.roundMethod)
	})
}

// Subtotal moves the cart from EnteringItem to Paying; pricing is already
// kept current by every prior mutation, so this is a pure state transition.
func (e *Engine) Subtotal(ctx context.Context, cartID string) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventSubtotal, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		return nil
	})
}

// AddPayment resolves paymentCode's strategy (falling back to
// DefaultStrategy) and applies it. The strategy's own balance/change
// side effects are provisional: the Repricer's rollup step recomputes
// Balance from c.Payments authoritatively right after, so they only need
// to be good enough for the strategy's own validation (deposit-over,
// insufficient balance) to run against current state.
func (e *Engine) AddPayment(ctx context.Context, cartID string, paymentCode string, amount decimal.Decimal, detail string) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventAddPayment, func(ctx context.Context, c *domain.Cart, cache *masterdata.Cache) error {
		method, err := cache.PaymentMethod(ctx, c.TenantID, paymentCode)
		if err != nil {
			return err
		}
		strategy := e.registry.Resolve(paymentCode)
		payment, err := strategy.Pay(c, *method, amount, detail)
		if err != nil {
			return err
		}
		c.Payments = append(c.Payments, payment)
		return nil
	})
}

// ResumeItemEntry returns the cart to EnteringItem, clearing the payments
// and change recorded so far (spec §4.4.1).
func (e *Engine) ResumeItemEntry(ctx context.Context, cartID string) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventResumeItemEntry, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		c.Payments = nil
		c.Sales.ChangeAmount = decimal.Zero
		return nil
	})
}

// CancelCart applies the blanket cross-state cancel rule (spec §4.4.1).
func (e *Engine) CancelCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	return e.mutate(ctx, cartID, domain.EventCancelCart, func(ctx context.Context, c *domain.Cart, _ *masterdata.Cache) error {
		return nil
	})
}

// finalize is the shared tail of Bill, VoidTransaction and
// ReturnTransaction: it writes the transaction log and journal record
// inside one storage transaction and publishes the resulting event as the
// last step before commit (spec §4.4.5 step 3, §4.4.7). It allocates no
// numbers; txLog arrives with its transaction_no (and receipt_no) set.
func (e *Engine) finalize(ctx context.Context, txLog *domain.TransactionLog) error {
	err := e.gateway.WithTransaction(ctx, func(ctx context.Context, tx storage.Gateway) error {
		if err := e.repo.SaveTransactionLog(ctx, tx, txLog); err != nil {
			return err
		}
		if e.journal != nil {
			if err := e.journal.Append(ctx, tx, txLog); err != nil {
				return err
			}
		}
		payload, err := eventbus.MarshalTransactionLogEvent(txLog)
		if err != nil {
			return err
		}
		if _, err := e.publisher.Publish(ctx, eventbus.TopicTransactionLog, payload); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		e.notifier.NotifyFatal(ctx, "cart.finalize", err)
	}
	return err
}

// Bill finalizes a cart once its balance is zero: it allocates a
// receipt_no and a transaction_no, builds and publishes a NormalSales
// transaction log and moves the cart to Completed (spec §4.4.5).
func (e *Engine) Bill(ctx context.Context, cartID string) (*domain.TransactionLog, error) {
	mu := e.lockFor(cartID)
	mu.Lock()
	defer mu.Unlock()

	c, err := e.repo.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if _, ok := allows(c.Status, domain.EventBill); !ok {
		return nil, domain.ErrInvalidCartEvent
	}
	if !c.Balance.IsZero() {
		return nil, domain.ErrBalanceNotZero
	}

	terminal, err := e.terminals(ctx, c.TenantID, c.StoreCode, c.TerminalNo)
	if err != nil {
		return nil, err
	}
	terminalID := terminal.TerminalID()

	receiptNo, err := e.counters.Next(ctx, terminalID, domain.CounterTypeReceiptNo, 1, counter.MaxCounter)
	if err != nil {
		return nil, err
	}
	txNo, err := e.counters.Next(ctx, terminalID, domain.CounterTypeTransactionNo, 1, counter.MaxCounter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txLog := &domain.TransactionLog{
		TenantID: c.TenantID, StoreCode: c.StoreCode, TerminalNo: c.TerminalNo,
		TransactionNo: txNo, ReceiptNo: receiptNo, TransactionType: domain.TransactionTypeNormalSales,
		BusinessDate: terminal.BusinessDate, OpenCounter: terminal.OpenCounter, BusinessCounter: terminal.BusinessCounter,
		GenerateDateTime: now, StaffID: c.StaffID,
		LineItems: c.LineItems, Payments: c.Payments, Taxes: c.Taxes, Sales: c.Sales,
	}

	if err := e.finalize(ctx, txLog); err != nil {
		return nil, err
	}

	c.Status = domain.CartStatusCompleted
	c.UpdatedAt = now
	if err := e.repo.SaveCart(ctx, e.gateway, c); err != nil {
		return nil, err
	}
	e.cartCaches.Delete(cartID)
	return txLog, nil
}

// VoidTransaction reverses a prior transaction log in full: same line
// items, same payments, same sales totals, with transaction_type mapped
// to VoidSales (or VoidReturn if the target was itself a return) and
// origin set to the voided transaction (spec §4.4.6).
//
// Line item quantities are copied unchanged and stay positive: the stock
// processor (internal/stock) derives direction purely from
// transaction_type via its own sign table, never from the sign of a line
// item's quantity, so a void's line items must mirror the target exactly
// for stock to be correctly restored.
func (e *Engine) VoidTransaction(ctx context.Context, tenantID, storeCode string, terminalNo, transactionNo int, staffID string) (*domain.TransactionLog, error) {
	target, err := e.repo.GetTransactionLog(ctx, storeCode, terminalNo, transactionNo)
	if err != nil {
		return nil, err
	}
	status, err := e.repo.GetTransactionStatus(ctx, storeCode, terminalNo, transactionNo)
	if err != nil {
		return nil, err
	}
	if status.IsVoided {
		return nil, domain.ErrAlreadyVoided
	}
	if status.IsRefunded {
		return nil, domain.ErrAlreadyRefunded
	}

	newType := domain.TransactionTypeVoidSales
	if target.TransactionType == domain.TransactionTypeReturnSales {
		newType = domain.TransactionTypeVoidReturn
	}

	terminal, err := e.terminals(ctx, tenantID, storeCode, terminalNo)
	if err != nil {
		return nil, err
	}
	terminalID := terminal.TerminalID()

	txNo, err := e.counters.Next(ctx, terminalID, domain.CounterTypeTransactionNo, 1, counter.MaxCounter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	voidLog := &domain.TransactionLog{
		TenantID: tenantID, StoreCode: storeCode, TerminalNo: terminalNo,
		TransactionNo: txNo, ReceiptNo: target.ReceiptNo, TransactionType: newType,
		BusinessDate: terminal.BusinessDate, OpenCounter: terminal.OpenCounter, BusinessCounter: terminal.BusinessCounter,
		GenerateDateTime: now, StaffID: staffID,
		Origin:    &domain.CartOrigin{TransactionNo: target.TransactionNo, TransactionType: target.TransactionType},
		LineItems: target.LineItems, Payments: target.Payments, Taxes: target.Taxes, Sales: target.Sales,
	}

	if err := e.finalize(ctx, voidLog); err != nil {
		return nil, err
	}

	status.MarkVoided(txNo, staffID, now)
	if err := e.repo.SaveTransactionStatus(ctx, e.gateway, status); err != nil {
		return nil, err
	}

	// Voiding a return transaction resets the refund it recorded against
	// its own origin sale, per spec §8's void-after-refund scenario.
	if target.TransactionType == domain.TransactionTypeReturnSales && target.Origin != nil {
		originStatus, err := e.repo.GetTransactionStatus(ctx, storeCode, terminalNo, target.Origin.TransactionNo)
		if err != nil {
			return nil, err
		}
		originStatus.ResetRefund()
		if err := e.repo.SaveTransactionStatus(ctx, e.gateway, originStatus); err != nil {
			return nil, err
		}
	}

	return voidLog, nil
}

// ReturnTransaction records a ReturnSales transaction against target:
// line items are copied with quantities left positive (same reasoning as
// VoidTransaction) but amounts, taxes and sales totals are negated so the
// return reads as a credit; the refund payment list is supplied by the
// caller and must sum to exactly the target's total_amount_with_tax
// (spec §4.4.6).
func (e *Engine) ReturnTransaction(ctx context.Context, tenantID, storeCode string, terminalNo, transactionNo int, staffID string, refunds []RefundRequest) (*domain.TransactionLog, error) {
	target, err := e.repo.GetTransactionLog(ctx, storeCode, terminalNo, transactionNo)
	if err != nil {
		return nil, err
	}
	status, err := e.repo.GetTransactionStatus(ctx, storeCode, terminalNo, transactionNo)
	if err != nil {
		return nil, err
	}
	if status.IsRefunded {
		return nil, domain.ErrAlreadyRefunded
	}
	if status.IsVoided {
		return nil, domain.ErrAlreadyVoided
	}

	cache := e.caches(tenantID, storeCode)
	payments := make([]domain.Payment, 0, len(refunds))
	var totalRefund decimal.Decimal
	for i, r := range refunds {
		method, err := cache.PaymentMethod(ctx, tenantID, r.PaymentCode)
		if err != nil {
			return nil, err
		}
		if !method.CanRefund {
			return nil, domain.ErrCannotRefund
		}
		payments = append(payments, domain.Payment{
			PaymentNo: i + 1, PaymentCode: method.PaymentCode, Description: method.Description,
			DepositAmount: r.Amount.Neg(), Amount: r.Amount.Neg(), Detail: r.Detail,
		})
		totalRefund = totalRefund.Add(r.Amount)
	}
	if !totalRefund.Equal(target.Sales.TotalAmountWithTax) {
		return nil, domain.ErrRefundAmountMismatch
	}

	lineItems := make([]domain.CartLineItem, len(target.LineItems))
	for i, li := range target.LineItems {
		li.Amount = li.Amount.Neg()
		lineItems[i] = li
	}
	taxes := make([]domain.Tax, len(target.Taxes))
	for i, t := range target.Taxes {
		t.TaxAmount = t.TaxAmount.Neg()
		t.TargetAmount = t.TargetAmount.Neg()
		taxes[i] = t
	}
	sales := domain.SalesRollup{
		TotalAmount:         target.Sales.TotalAmount.Neg(),
		TotalAmountWithTax:  target.Sales.TotalAmountWithTax.Neg(),
		TotalDiscountAmount: target.Sales.TotalDiscountAmount.Neg(),
		TotalQuantity:       target.Sales.TotalQuantity,
	}

	terminal, err := e.terminals(ctx, tenantID, storeCode, terminalNo)
	if err != nil {
		return nil, err
	}
	terminalID := terminal.TerminalID()

	txNo, err := e.counters.Next(ctx, terminalID, domain.CounterTypeTransactionNo, 1, counter.MaxCounter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	returnLog := &domain.TransactionLog{
		TenantID: tenantID, StoreCode: storeCode, TerminalNo: terminalNo,
		TransactionNo: txNo, ReceiptNo: target.ReceiptNo, TransactionType: domain.TransactionTypeReturnSales,
		BusinessDate: terminal.BusinessDate, OpenCounter: terminal.OpenCounter, BusinessCounter: terminal.BusinessCounter,
		GenerateDateTime: now, StaffID: staffID,
		Origin:    &domain.CartOrigin{TransactionNo: target.TransactionNo, TransactionType: target.TransactionType},
		LineItems: lineItems, Payments: payments, Taxes: taxes, Sales: sales,
	}

	if err := e.finalize(ctx, returnLog); err != nil {
		return nil, err
	}

	status.MarkRefunded(txNo, staffID, now)
	if err := e.repo.SaveTransactionStatus(ctx, e.gateway, status); err != nil {
		return nil, err
	}
	return returnLog, nil
}
