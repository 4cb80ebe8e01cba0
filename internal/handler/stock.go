package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
	ws "github.com/kugelpos/kugel-backend/internal/websocket"
)

// StockHandler exposes the stock ledger (C6): current quantities,
// manual adjustments, update history, snapshots, threshold configuration
// and the websocket alert stream, per spec §6 and §4.6.
type StockHandler struct {
	hub      *app.Hub
	upgrader websocket.Upgrader
}

func NewStockHandler(hub *app.Hub) *StockHandler {
	return &StockHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *StockHandler) tenantByClaims(c echo.Context) (*app.Tenant, error) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	return h.hub.Resolve(c.Request().Context(), tenantID)
}

// Get handles GET /api/v1/stock/{store_code}/{item_code}.
func (h *StockHandler) Get(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "getStock", err)
	}
	s, err := tenant.Stock.GetStock(c.Request().Context(), c.Param("store_code"), c.Param("item_code"))
	if err != nil {
		return Error(c, "getStock", err)
	}
	return OK(c, "getStock", toStockResponse(s))
}

// List handles GET /api/v1/stock/{store_code}.
func (h *StockHandler) List(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "listStock", err)
	}
	items, err := tenant.Stock.ListStocks(c.Request().Context(), c.Param("store_code"))
	if err != nil {
		return Error(c, "listStock", err)
	}
	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, toStockResponse(&items[i]))
	}
	return OK(c, "listStock", out)
}

type stockUpdateBody struct {
	Change      decimal.Decimal         `json:"change"`
	UpdateType  domain.StockUpdateType  `json:"updateType"`
	ReferenceID string                  `json:"referenceId"`
	OperatorID  string                  `json:"operatorId"`
	Note        string                  `json:"note"`
}

// Update handles POST /api/v1/stock/{store_code}/{item_code}/adjust, the
// manual adjustment path (spec §4.6.2's "purchase"/"adjustment" update types).
func (h *StockHandler) Update(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "updateStock", err)
	}
	var body stockUpdateBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "updateStock", domain.ErrInvalidInput)
	}
	s, err := tenant.Stock.UpdateStock(c.Request().Context(), tenant.ID, c.Param("store_code"), c.Param("item_code"),
		body.Change, body.UpdateType, body.ReferenceID, body.OperatorID, body.Note)
	if err != nil {
		return Error(c, "updateStock", err)
	}
	return OK(c, "updateStock", toStockResponse(s))
}

type thresholdBody struct {
	MinimumQuantity decimal.Decimal `json:"minimumQuantity"`
	ReorderPoint    decimal.Decimal `json:"reorderPoint"`
	ReorderQuantity decimal.Decimal `json:"reorderQuantity"`
}

// SetThresholds handles PUT /api/v1/stock/{store_code}/{item_code}/thresholds.
func (h *StockHandler) SetThresholds(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "setStockThresholds", err)
	}
	var body thresholdBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "setStockThresholds", domain.ErrInvalidInput)
	}
	if err := tenant.Stock.SetThresholds(c.Request().Context(), c.Param("store_code"), c.Param("item_code"),
		body.MinimumQuantity, body.ReorderPoint, body.ReorderQuantity); err != nil {
		return Error(c, "setStockThresholds", err)
	}
	return OK(c, "setStockThresholds", nil)
}

// History handles GET /api/v1/stock/{store_code}/{item_code}/history.
func (h *StockHandler) History(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "stockHistory", err)
	}
	limit, page := pagingParams(c)
	updates, total, err := tenant.Stock.ListUpdateHistory(c.Request().Context(), c.Param("store_code"), c.Param("item_code"), limit, page)
	if err != nil {
		return Error(c, "stockHistory", err)
	}
	out := make([]map[string]any, 0, len(updates))
	for _, u := range updates {
		out = append(out, toStockUpdateResponse(&u))
	}
	return Paged(c, "stockHistory", out, total, page, limit)
}

// Snapshots handles GET /api/v1/stock/{store_code}/snapshots?from=...&to=....
func (h *StockHandler) Snapshots(c echo.Context) error {
	tenant, err := h.tenantByClaims(c)
	if err != nil {
		return Error(c, "stockSnapshots", err)
	}
	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return Error(c, "stockSnapshots", domain.ErrInvalidInput)
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return Error(c, "stockSnapshots", domain.ErrInvalidInput)
	}
	snaps, err := tenant.StockRepo.ListSnapshotsByDateRange(c.Request().Context(), c.Param("store_code"), from, to.Add(24*time.Hour))
	if err != nil {
		return Error(c, "stockSnapshots", err)
	}
	return OK(c, "stockSnapshots", snaps)
}

type scheduleBody struct {
	Enabled       bool                    `json:"enabled"`
	Interval      domain.SnapshotInterval `json:"interval"`
	Hour          int                     `json:"hour"`
	Minute        int                     `json:"minute"`
	DayOfWeek     *int                    `json:"dayOfWeek,omitempty"`
	DayOfMonth    *int                    `json:"dayOfMonth,omitempty"`
	RetentionDays int                     `json:"retentionDays"`
	TargetStores  []string                `json:"targetStores"`
}

// SetSchedule handles PUT /api/v1/stock/snapshot-schedule, configuring the
// tenant's stock.Scheduler cadence (spec §4.6.3).
func (h *StockHandler) SetSchedule(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return Error(c, "setSnapshotSchedule", domain.ErrUnauthorized)
	}
	var body scheduleBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "setSnapshotSchedule", domain.ErrInvalidInput)
	}
	sch := &domain.SnapshotSchedule{
		TenantID: tenantID, Enabled: body.Enabled, Interval: body.Interval,
		Hour: body.Hour, Minute: body.Minute, DayOfWeek: body.DayOfWeek,
		DayOfMonth: body.DayOfMonth, RetentionDays: body.RetentionDays, TargetStores: body.TargetStores,
	}
	if err := h.hub.Schedules().SaveSchedule(c.Request().Context(), sch); err != nil {
		return Error(c, "setSnapshotSchedule", err)
	}
	return OK(c, "setSnapshotSchedule", nil)
}

// GetSchedule handles GET /api/v1/stock/snapshot-schedule.
func (h *StockHandler) GetSchedule(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return Error(c, "getSnapshotSchedule", domain.ErrUnauthorized)
	}
	sch, err := h.hub.Schedules().GetSchedule(c.Request().Context(), tenantID)
	if err != nil {
		return Error(c, "getSnapshotSchedule", err)
	}
	return OK(c, "getSnapshotSchedule", sch)
}

// Stream handles GET /api/v1/stock/stream, upgrading to a websocket that
// pushes StockAlert events for the authenticated tenant (spec §4.6.2).
func (h *StockHandler) Stream(c echo.Context) error {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return Error(c, "stockStream", domain.ErrUnauthorized)
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := ws.NewClient(conn, tenantID, h.hub.Hub)
	h.hub.Hub.Register(client)
	go client.WritePump()
	client.ReadPump()
	return nil
}

func pagingParams(c echo.Context) (limit, page int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	return limit, page
}

func toStockResponse(s *domain.Stock) map[string]any {
	if s == nil {
		return nil
	}
	return map[string]any{
		"storeCode":       s.StoreCode,
		"itemCode":        s.ItemCode,
		"currentQuantity": s.CurrentQuantity,
		"minimumQuantity": s.MinimumQuantity,
		"reorderPoint":    s.ReorderPoint,
		"reorderQuantity": s.ReorderQuantity,
		"updatedAt":       s.UpdatedAt,
	}
}

func toStockUpdateResponse(u *domain.StockUpdate) map[string]any {
	return map[string]any{
		"storeCode":      u.StoreCode,
		"itemCode":       u.ItemCode,
		"updateType":     u.UpdateType,
		"quantityChange": u.QuantityChange,
		"beforeQuantity": u.BeforeQuantity,
		"afterQuantity":  u.AfterQuantity,
		"referenceId":    u.ReferenceID,
		"timestamp":      u.Timestamp,
		"operatorId":     u.OperatorID,
		"note":           u.Note,
	}
}
