package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// TerminalHandler exposes terminal lifecycle management (create, sign-in,
// open/close, cash movements) per spec §6's /api/v1/terminals surface.
// Create runs under JWT auth (an admin provisions terminals); every other
// route runs behind the terminal's own X-API-KEY.
type TerminalHandler struct {
	hub *app.Hub
}

func NewTerminalHandler(hub *app.Hub) *TerminalHandler {
	return &TerminalHandler{hub: hub}
}

func (h *TerminalHandler) tenantByClaims(c echo.Context) (*app.Tenant, error) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	return h.hub.Resolve(c.Request().Context(), tenantID)
}

func (h *TerminalHandler) tenantByTerminal(c echo.Context) (*app.Tenant, *domain.Terminal, error) {
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

type createTerminalBody struct {
	StoreCode    string `json:"storeCode"`
	TerminalNo   int    `json:"terminalNo"`
	FunctionMode string `json:"functionMode"`
}

// Create handles POST /api/v1/terminals (JWT-authenticated).
func (h *TerminalHandler) Create(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "createTerminal", err)
	}
	var body createTerminalBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "createTerminal", domain.ErrInvalidInput)
	}
	t, err := tenant.Terminal.Create(c.Request().Context(), tenant.ID, body.StoreCode, body.TerminalNo, body.FunctionMode)
	if err != nil {
		return Error(c, "createTerminal", err)
	}
	return Created(c, "createTerminal", toTerminalResponse(t))
}

type signInBody struct {
	StaffID string `json:"staffId"`
}

// SignIn handles POST /api/v1/terminals/{terminal_id}/signin.
func (h *TerminalHandler) SignIn(c echo.Context) error {
	tenant, t, err := h.tenantByTerminal(c)
	if err != nil {
		return Error(c, "signIn", err)
	}
	var body signInBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "signIn", domain.ErrInvalidInput)
	}
	out, err := tenant.Terminal.SignIn(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, body.StaffID)
	if err != nil {
		return Error(c, "signIn", err)
	}
	return OK(c, "signIn", toTerminalResponse(out))
}

type openBody struct {
	StaffID       string          `json:"staffId"`
	BusinessDate  string          `json:"businessDate"`
	InitialAmount decimal.Decimal `json:"initialAmount"`
}

// Open handles POST /api/v1/terminals/{terminal_id}/open.
func (h *TerminalHandler) Open(c echo.Context) error {
	tenant, t, err := h.tenantByTerminal(c)
	if err != nil {
		return Error(c, "openTerminal", err)
	}
	var body openBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "openTerminal", domain.ErrInvalidInput)
	}
	out, err := tenant.Terminal.Open(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, body.StaffID, body.BusinessDate, body.InitialAmount)
	if err != nil {
		return Error(c, "openTerminal", err)
	}
	return OK(c, "openTerminal", toTerminalResponse(out))
}

type closeBody struct {
	StaffID        string          `json:"staffId"`
	PhysicalAmount decimal.Decimal `json:"physicalAmount"`
}

// Close handles POST /api/v1/terminals/{terminal_id}/close.
func (h *TerminalHandler) Close(c echo.Context) error {
	tenant, t, err := h.tenantByTerminal(c)
	if err != nil {
		return Error(c, "closeTerminal", err)
	}
	var body closeBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "closeTerminal", domain.ErrInvalidInput)
	}
	out, err := tenant.Terminal.Close(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, body.StaffID, body.PhysicalAmount)
	if err != nil {
		return Error(c, "closeTerminal", err)
	}
	return OK(c, "closeTerminal", toTerminalResponse(out))
}

type cashMovementBody struct {
	StaffID string          `json:"staffId"`
	Amount  decimal.Decimal `json:"amount"`
}

// CashIn handles POST /api/v1/terminals/{terminal_id}/cash-in.
func (h *TerminalHandler) CashIn(c echo.Context) error {
	tenant, t, err := h.tenantByTerminal(c)
	if err != nil {
		return Error(c, "cashIn", err)
	}
	var body cashMovementBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "cashIn", domain.ErrInvalidInput)
	}
	out, err := tenant.Terminal.CashIn(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, body.StaffID, body.Amount)
	if err != nil {
		return Error(c, "cashIn", err)
	}
	return OK(c, "cashIn", toTerminalResponse(out))
}

// CashOut handles POST /api/v1/terminals/{terminal_id}/cash-out.
func (h *TerminalHandler) CashOut(c echo.Context) error {
	tenant, t, err := h.tenantByTerminal(c)
	if err != nil {
		return Error(c, "cashOut", err)
	}
	var body cashMovementBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "cashOut", domain.ErrInvalidInput)
	}
	out, err := tenant.Terminal.CashOut(c.Request().Context(), t.TenantID, t.StoreCode, t.TerminalNo, body.StaffID, body.Amount)
	if err != nil {
		return Error(c, "cashOut", err)
	}
	return OK(c, "cashOut", toTerminalResponse(out))
}

// Delete handles DELETE /api/v1/terminals/{store_code}/{terminal_no} (JWT-authenticated).
func (h *TerminalHandler) Delete(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "deleteTerminal", err)
	}
	storeCode := c.Param("store_code")
	terminalNo, convErr := strconv.Atoi(c.Param("terminal_no"))
	if convErr != nil {
		return Error(c, "deleteTerminal", domain.ErrInvalidInput)
	}
	if err := tenant.Terminal.Delete(c.Request().Context(), tenant.ID, storeCode, terminalNo); err != nil {
		return Error(c, "deleteTerminal", err)
	}
	return OK(c, "deleteTerminal", nil)
}

func toTerminalResponse(t *domain.Terminal) map[string]any {
	if t == nil {
		return nil
	}
	return map[string]any{
		"terminalId":      t.TerminalID(),
		"storeCode":       t.StoreCode,
		"terminalNo":      t.TerminalNo,
		"functionMode":    t.FunctionMode,
		"status":          t.Status,
		"businessDate":    t.BusinessDate,
		"openCounter":     t.OpenCounter,
		"businessCounter": t.BusinessCounter,
		"staffId":         t.StaffID,
		"apiKey":          t.APIKey,
		"initialAmount":   t.InitialAmount,
		"physicalAmount":  t.PhysicalAmount,
	}
}
