package handler

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/cart"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// TransactionHandler exposes read/void/return over the finalized
// transaction log, per spec §4.4.6 and §6. Reads overlay TransactionStatus
// (is_voided/is_refunded) onto the immutable TransactionLog, since
// cart.Repository.GetTransactionLog never does that join itself.
type TransactionHandler struct {
	hub *app.Hub
}

func NewTransactionHandler(hub *app.Hub) *TransactionHandler {
	return &TransactionHandler{hub: hub}
}

func (h *TransactionHandler) tenant(c echo.Context) (*app.Tenant, *domain.Terminal, error) {
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

// Get handles GET /api/v1/transactions/{transaction_no}, overlaying
// TransactionStatus onto the stored TransactionLog.
func (h *TransactionHandler) Get(c echo.Context) error {
	tenant, t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getTransaction", err)
	}
	txNo, convErr := strconv.Atoi(c.Param("transaction_no"))
	if convErr != nil {
		return Error(c, "getTransaction", domain.ErrInvalidInput)
	}
	out, err := withStatusOverlay(c.Request().Context(), tenant.CartRepo, t.StoreCode, t.TerminalNo, txNo)
	if err != nil {
		return Error(c, "getTransaction", err)
	}
	return OK(c, "getTransaction", toTransactionLogResponse(out))
}

type voidBody struct {
	StaffID string `json:"staffId"`
}

// Void handles POST /api/v1/transactions/{transaction_no}/void.
func (h *TransactionHandler) Void(c echo.Context) error {
	tenant, t, err := h.tenant(c)
	if err != nil {
		return Error(c, "voidTransaction", err)
	}
	txNo, convErr := strconv.Atoi(c.Param("transaction_no"))
	if convErr != nil {
		return Error(c, "voidTransaction", domain.ErrInvalidInput)
	}
	var body voidBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "voidTransaction", domain.ErrInvalidInput)
	}
	out, err := tenant.Cart.VoidTransaction(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, txNo, body.StaffID)
	if err != nil {
		return Error(c, "voidTransaction", err)
	}
	return OK(c, "voidTransaction", toTransactionLogResponse(out))
}

type refundBody struct {
	PaymentCode string `json:"paymentCode"`
	Amount      string `json:"amount"`
	Detail      string `json:"detail"`
}

type returnBody struct {
	StaffID string       `json:"staffId"`
	Refunds []refundBody `json:"refunds"`
}

// Return handles POST /api/v1/transactions/{transaction_no}/return.
func (h *TransactionHandler) Return(c echo.Context) error {
	tenant, t, err := h.tenant(c)
	if err != nil {
		return Error(c, "returnTransaction", err)
	}
	txNo, convErr := strconv.Atoi(c.Param("transaction_no"))
	if convErr != nil {
		return Error(c, "returnTransaction", domain.ErrInvalidInput)
	}
	var body returnBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "returnTransaction", domain.ErrInvalidInput)
	}
	refunds := make([]cart.RefundRequest, 0, len(body.Refunds))
	for _, r := range body.Refunds {
		amount, parseErr := decimalFromString(r.Amount)
		if parseErr != nil {
			return Error(c, "returnTransaction", domain.ErrInvalidInput)
		}
		refunds = append(refunds, cart.RefundRequest{PaymentCode: r.PaymentCode, Amount: amount, Detail: r.Detail})
	}
	out, err := tenant.Cart.ReturnTransaction(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, txNo, body.StaffID, refunds)
	if err != nil {
		return Error(c, "returnTransaction", err)
	}
	return OK(c, "returnTransaction", toTransactionLogResponse(out))
}

// withStatusOverlay fetches the TransactionLog and overlays is_voided/
// is_refunded from its TransactionStatus sibling record (spec §4.4.6).
func withStatusOverlay(ctx context.Context, repo *cart.Repository, storeCode string, terminalNo, transactionNo int) (*domain.TransactionLog, error) {
	t, err := repo.GetTransactionLog(ctx, storeCode, terminalNo, transactionNo)
	if err != nil {
		return nil, err
	}
	status, err := repo.GetTransactionStatus(ctx, storeCode, terminalNo, transactionNo)
	if err != nil {
		return nil, err
	}
	t.IsVoided = status.IsVoided
	t.IsRefunded = status.IsRefunded
	return t, nil
}

func decimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
