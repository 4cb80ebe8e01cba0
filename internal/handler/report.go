package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// ReportHandler exposes the sales and item report query surface, per
// spec §6 and the SalesReport/ItemReport aggregates of §4.7.
type ReportHandler struct {
	hub *app.Hub
}

func NewReportHandler(hub *app.Hub) *ReportHandler {
	return &ReportHandler{hub: hub}
}

func (h *ReportHandler) query(c echo.Context) domain.ReportQuery {
	q := domain.ReportQuery{
		StoreCode:        c.QueryParam("storeCode"),
		Scope:            domain.ReportScope(c.QueryParam("scope")),
		BusinessDate:     c.QueryParam("businessDate"),
		BusinessDateFrom: c.QueryParam("businessDateFrom"),
		BusinessDateTo:   c.QueryParam("businessDateTo"),
	}
	if v := c.QueryParam("terminalNo"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.TerminalNo = &n
		}
	}
	if v := c.QueryParam("openCounter"); v != "" {
		q.OpenCounter, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("businessCounter"); v != "" {
		q.BusinessCounter, _ = strconv.Atoi(v)
	}
	return q
}

// Sales handles GET /api/v1/reports/sales.
func (h *ReportHandler) Sales(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return Error(c, "getSalesReport", domain.ErrUnauthorized)
	}
	tenant, err := h.hub.Resolve(c.Request().Context(), tenantID)
	if err != nil {
		return Error(c, "getSalesReport", err)
	}
	report, err := tenant.Report.GetSalesReport(c.Request().Context(), h.query(c))
	if err != nil {
		return Error(c, "getSalesReport", err)
	}
	return OK(c, "getSalesReport", report)
}

// Items handles GET /api/v1/reports/items.
func (h *ReportHandler) Items(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return Error(c, "getItemReport", domain.ErrUnauthorized)
	}
	tenant, err := h.hub.Resolve(c.Request().Context(), tenantID)
	if err != nil {
		return Error(c, "getItemReport", err)
	}
	report, err := tenant.Report.GetItemReport(c.Request().Context(), h.query(c))
	if err != nil {
		return Error(c, "getItemReport", err)
	}
	return OK(c, "getItemReport", report)
}
