package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/cart"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// CartHandler exposes the cart engine (C4) over HTTP, per spec §6's
// /api/v1/carts surface. Every route here runs behind the terminal
// X-API-KEY middleware, so the calling terminal's tenant/store/terminal
// triple comes out of middleware.GetTerminal rather than a path/body
// field the caller could spoof.
type CartHandler struct {
	hub *app.Hub
}

func NewCartHandler(hub *app.Hub) *CartHandler {
	return &CartHandler{hub: hub}
}

func (h *CartHandler) tenant(c echo.Context) (*app.Tenant, *domain.Terminal, error) {
	t := middleware.GetTerminal(c)
	if t == nil {
		return nil, nil, domain.ErrUnauthorized
	}
	tenant, err := h.hub.Resolve(c.Request().Context(), t.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return tenant, t, nil
}

// Create handles POST /api/v1/carts.
func (h *CartHandler) Create(c echo.Context) error {
	tenant, t, err := h.tenant(c)
	if err != nil {
		return Error(c, "createCart", err)
	}
	cart, err := tenant.Cart.Create(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, t.StaffID)
	if err != nil {
		return Error(c, "createCart", err)
	}
	return Created(c, "createCart", toCartResponse(cart))
}

type lineItemBody struct {
	ItemCode          string           `json:"itemCode"`
	Quantity          decimal.Decimal  `json:"quantity"`
	UnitPriceOverride *decimal.Decimal `json:"unitPriceOverride,omitempty"`
}

type addItemsBody struct {
	Items []lineItemBody `json:"items"`
}

// AddItems handles POST /api/v1/carts/{cart_id}/lineItems.
func (h *CartHandler) AddItems(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "addItems", err)
	}
	var body addItemsBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "addItems", domain.ErrInvalidInput)
	}
	reqs := make([]cart.LineItemRequest, 0, len(body.Items))
	for _, it := range body.Items {
		reqs = append(reqs, cart.LineItemRequest{
			ItemCode: it.ItemCode, Quantity: it.Quantity, UnitPriceOverride: it.UnitPriceOverride,
		})
	}
	out, err := tenant.Cart.AddItems(c.Request().Context(), c.Param("cart_id"), reqs)
	if err != nil {
		return Error(c, "addItems", err)
	}
	return OK(c, "addItems", toCartResponse(out))
}

// CancelLine handles POST /api/v1/carts/{cart_id}/lineItems/{line_no}/cancel.
func (h *CartHandler) CancelLine(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "cancelLine", err)
	}
	lineNo, convErr := strconv.Atoi(c.Param("line_no"))
	if convErr != nil {
		return Error(c, "cancelLine", domain.ErrInvalidInput)
	}
	out, err := tenant.Cart.CancelLine(c.Request().Context(), c.Param("cart_id"), lineNo)
	if err != nil {
		return Error(c, "cancelLine", err)
	}
	return OK(c, "cancelLine", toCartResponse(out))
}

type unitPriceBody struct {
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// UnitPriceOverride handles POST /api/v1/carts/{cart_id}/lineItems/{line_no}/unitPrice.
func (h *CartHandler) UnitPriceOverride(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "unitPriceOverride", err)
	}
	lineNo, convErr := strconv.Atoi(c.Param("line_no"))
	if convErr != nil {
		return Error(c, "unitPriceOverride", domain.ErrInvalidInput)
	}
	var body unitPriceBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "unitPriceOverride", domain.ErrInvalidInput)
	}
	out, err := tenant.Cart.UnitPriceOverride(c.Request().Context(), c.Param("cart_id"), lineNo, body.UnitPrice)
	if err != nil {
		return Error(c, "unitPriceOverride", err)
	}
	return OK(c, "unitPriceOverride", toCartResponse(out))
}

type discountBody struct {
	Type   domain.DiscountType `json:"type"`
	Value  decimal.Decimal     `json:"value"`
	Detail string               `json:"detail"`
}

// AddLineDiscount handles POST /api/v1/carts/{cart_id}/lineItems/{line_no}/discounts.
func (h *CartHandler) AddLineDiscount(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "addLineDiscount", err)
	}
	lineNo, convErr := strconv.Atoi(c.Param("line_no"))
	if convErr != nil {
		return Error(c, "addLineDiscount", domain.ErrInvalidInput)
	}
	var body discountBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "addLineDiscount", domain.ErrInvalidInput)
	}
	out, err := tenant.Cart.AddLineDiscount(c.Request().Context(), c.Param("cart_id"), lineNo, body.Type, body.Value, body.Detail)
	if err != nil {
		return Error(c, "addLineDiscount", err)
	}
	return OK(c, "addLineDiscount", toCartResponse(out))
}

// AddSubtotalDiscount handles POST /api/v1/carts/{cart_id}/discounts.
func (h *CartHandler) AddSubtotalDiscount(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "addSubtotalDiscount", err)
	}
	var body discountBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "addSubtotalDiscount", domain.ErrInvalidInput)
	}
	out, err := tenant.Cart.AddSubtotalDiscount(c.Request().Context(), c.Param("cart_id"), body.Type, body.Value, body.Detail)
	if err != nil {
		return Error(c, "addSubtotalDiscount", err)
	}
	return OK(c, "addSubtotalDiscount", toCartResponse(out))
}

// Subtotal handles POST /api/v1/carts/{cart_id}/subtotal.
func (h *CartHandler) Subtotal(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "subtotal", err)
	}
	out, err := tenant.Cart.Subtotal(c.Request().Context(), c.Param("cart_id"))
	if err != nil {
		return Error(c, "subtotal", err)
	}
	return OK(c, "subtotal", toCartResponse(out))
}

type paymentBody struct {
	PaymentCode string          `json:"paymentCode"`
	Amount      decimal.Decimal `json:"amount"`
	Detail      string          `json:"detail"`
}

type paymentsBody struct {
	Payments []paymentBody `json:"payments"`
}

// AddPayments handles POST /api/v1/carts/{cart_id}/payments.
func (h *CartHandler) AddPayments(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "addPayments", err)
	}
	var body paymentsBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "addPayments", domain.ErrInvalidInput)
	}
	var out *domain.Cart
	for _, p := range body.Payments {
		out, err = tenant.Cart.AddPayment(c.Request().Context(), c.Param("cart_id"), p.PaymentCode, p.Amount, p.Detail)
		if err != nil {
			return Error(c, "addPayments", err)
		}
	}
	return OK(c, "addPayments", toCartResponse(out))
}

// ResumeItemEntry handles POST /api/v1/carts/{cart_id}/resume-item-entry.
func (h *CartHandler) ResumeItemEntry(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "resumeItemEntry", err)
	}
	out, err := tenant.Cart.ResumeItemEntry(c.Request().Context(), c.Param("cart_id"))
	if err != nil {
		return Error(c, "resumeItemEntry", err)
	}
	return OK(c, "resumeItemEntry", toCartResponse(out))
}

// Cancel handles POST /api/v1/carts/{cart_id}/cancel.
func (h *CartHandler) Cancel(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "cancelCart", err)
	}
	out, err := tenant.Cart.CancelCart(c.Request().Context(), c.Param("cart_id"))
	if err != nil {
		return Error(c, "cancelCart", err)
	}
	return OK(c, "cancelCart", toCartResponse(out))
}

// Bill handles POST /api/v1/carts/{cart_id}/bill.
func (h *CartHandler) Bill(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "bill", err)
	}
	txLog, err := tenant.Cart.Bill(c.Request().Context(), c.Param("cart_id"))
	if err != nil {
		return Error(c, "bill", err)
	}
	return OK(c, "bill", toTransactionLogResponse(txLog))
}

// Get handles GET /api/v1/carts/{cart_id}.
func (h *CartHandler) Get(c echo.Context) error {
	tenant, _, err := h.tenant(c)
	if err != nil {
		return Error(c, "getCart", err)
	}
	cart, err := tenant.CartRepo.GetCart(c.Request().Context(), c.Param("cart_id"))
	if err != nil {
		return Error(c, "getCart", err)
	}
	return OK(c, "getCart", toCartResponse(cart))
}

func toCartResponse(c *domain.Cart) map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"cartId":            c.CartID,
		"status":            c.Status,
		"lineItems":         c.LineItems,
		"subtotalDiscounts": c.SubtotalDiscounts,
		"payments":          c.Payments,
		"taxes":             c.Taxes,
		"sales":             c.Sales,
		"balance":           c.Balance,
		"receiptText":       c.ReceiptText,
		"journalText":       c.JournalText,
	}
}

func toTransactionLogResponse(t *domain.TransactionLog) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"storeCode":        t.StoreCode,
		"terminalNo":       t.TerminalNo,
		"transactionNo":    t.TransactionNo,
		"receiptNo":        t.ReceiptNo,
		"transactionType":  t.TransactionType,
		"businessDate":     t.BusinessDate,
		"openCounter":      t.OpenCounter,
		"businessCounter":  t.BusinessCounter,
		"generateDateTime": t.GenerateDateTime,
		"staffId":          t.StaffID,
		"lineItems":        t.LineItems,
		"payments":         t.Payments,
		"taxes":            t.Taxes,
		"sales":            t.Sales,
		"isVoided":         t.IsVoided,
		"isRefunded":       t.IsRefunded,
	}
}
