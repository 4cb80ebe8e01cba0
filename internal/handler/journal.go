package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// JournalHandler exposes C5's journal query surface, per spec §6.
type JournalHandler struct {
	hub *app.Hub
}

func NewJournalHandler(hub *app.Hub) *JournalHandler {
	return &JournalHandler{hub: hub}
}

// List handles GET /api/v1/journals.
func (h *JournalHandler) List(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return Error(c, "listJournals", domain.ErrUnauthorized)
	}
	tenant, err := h.hub.Resolve(c.Request().Context(), tenantID)
	if err != nil {
		return Error(c, "listJournals", err)
	}

	q := domain.JournalQuery{
		StoreCode:        c.QueryParam("storeCode"),
		BusinessDateFrom: c.QueryParam("businessDateFrom"),
		BusinessDateTo:   c.QueryParam("businessDateTo"),
	}
	if terms := c.QueryParam("terminals"); terms != "" {
		for _, s := range strings.Split(terms, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				q.Terminals = append(q.Terminals, n)
			}
		}
	}
	if types := c.QueryParam("transactionTypes"); types != "" {
		for _, s := range strings.Split(types, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				q.TransactionTypes = append(q.TransactionTypes, domain.TransactionType(n))
			}
		}
	}
	if from := c.QueryParam("generateDateTimeFrom"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q.GenerateDateTimeFrom = t
		}
	}
	if to := c.QueryParam("generateDateTimeTo"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			q.GenerateDateTimeTo = t
		}
	}
	if v := c.QueryParam("receiptNoFrom"); v != "" {
		q.ReceiptNoFrom, _ = strconv.Atoi(v)
	}
	if v := c.QueryParam("receiptNoTo"); v != "" {
		q.ReceiptNoTo, _ = strconv.Atoi(v)
	}
	if kw := c.QueryParam("keywords"); kw != "" {
		q.Keywords = strings.Split(kw, ",")
	}

	limit, page := pagingParams(c)
	journals, total, err := tenant.Journal.GetJournals(c.Request().Context(), q, limit, page)
	if err != nil {
		return Error(c, "listJournals", err)
	}
	return Paged(c, "listJournals", journals, total, page, limit)
}
