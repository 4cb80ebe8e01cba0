package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
	"github.com/kugelpos/kugel-backend/internal/repository/storage"
)

func asDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nowFunc() time.Time { return time.Now().UTC() }

// MasterdataHandler exposes the Postgres-backed CRUD surface for items,
// taxes, payments, categories, staff, settings and button-layout books -
// the master-data entities spec §1/§6 name as required system surfaces,
// all JWT-authenticated and scoped to the caller's tenant.
type MasterdataHandler struct {
	hub    *app.Hub
	images *storage.S3ImageRepository
}

func NewMasterdataHandler(hub *app.Hub, images *storage.S3ImageRepository) *MasterdataHandler {
	return &MasterdataHandler{hub: hub, images: images}
}

func (h *MasterdataHandler) tenant(c echo.Context) (*app.Tenant, error) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	return h.hub.Resolve(c.Request().Context(), tenantID)
}

func pageParams(c echo.Context) (limit, page int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}

// --- Items ---

type itemBody struct {
	StoreCode            string   `json:"storeCode"`
	ItemCode             string   `json:"itemCode"`
	Description          string   `json:"description"`
	UnitPrice            string   `json:"unitPrice"`
	TaxCode              string   `json:"taxCode"`
	CategoryCode         string   `json:"categoryCode"`
	IsDiscountRestricted bool     `json:"isDiscountRestricted"`
	ImageURLs            []string `json:"imageUrls"`
}

// GetItem handles GET /api/v1/items/{store_code}/{item_code}.
func (h *MasterdataHandler) GetItem(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getItem", err)
	}
	item, err := t.Masterdata.GetItem(c.Request().Context(), c.Param("store_code"), c.Param("item_code"))
	if err != nil {
		return Error(c, "getItem", err)
	}
	return OK(c, "getItem", item)
}

// ListItems handles GET /api/v1/items/{store_code}.
func (h *MasterdataHandler) ListItems(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listItems", err)
	}
	limit, page := pageParams(c)
	items, total, err := t.Masterdata.ListItems(c.Request().Context(), c.Param("store_code"), limit, page)
	if err != nil {
		return Error(c, "listItems", err)
	}
	return Paged(c, "listItems", items, total, page, limit)
}

// PutItem handles PUT /api/v1/items/{store_code}/{item_code}. The stored
// item's store and item codes are taken from the request body.
func (h *MasterdataHandler) PutItem(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "putItem", err)
	}
	var body itemBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "putItem", domain.ErrInvalidInput)
	}
	item := &domain.Item{
		TenantID: t.ID, StoreCode: body.StoreCode, ItemCode: body.ItemCode,
		Description: body.Description, UnitPrice: asDec(body.UnitPrice),
		TaxCode: body.TaxCode, CategoryCode: body.CategoryCode,
		IsDiscountRestricted: body.IsDiscountRestricted, ImageURLs: body.ImageURLs,
	}
	if err := t.Masterdata.PutItem(c.Request().Context(), item); err != nil {
		return Error(c, "putItem", err)
	}
	return OK(c, "putItem", item)
}

// DeleteItem handles DELETE /api/v1/items/{store_code}/{item_code}.
func (h *MasterdataHandler) DeleteItem(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deleteItem", err)
	}
	if err := t.Masterdata.DeleteItem(c.Request().Context(), c.Param("store_code"), c.Param("item_code")); err != nil {
		return Error(c, "deleteItem", err)
	}
	return OK(c, "deleteItem", nil)
}

// UploadItemImage handles POST /api/v1/items/{store_code}/{item_code}/image
// (multipart form field "file"), storing the image in S3 and recording the
// resulting URL (plus thumbnail) on the item's master-data record.
func (h *MasterdataHandler) UploadItemImage(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "uploadItemImage", err)
	}
	if h.images == nil {
		return Error(c, "uploadItemImage", domain.ErrMasterDataUnavailable)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return Error(c, "uploadItemImage", domain.ErrInvalidInput)
	}
	itemCode := c.Param("item_code")
	storeCode := c.Param("store_code")
	f, err := fh.Open()
	if err != nil {
		return Error(c, "uploadItemImage", domain.ErrInvalidInput)
	}
	defer f.Close()

	ctx := c.Request().Context()
	contentType := fh.Header.Get("Content-Type")
	originalPath, thumbPath, err := h.images.UploadItemImage(ctx, t.ID, itemCode, f, contentType)
	if err != nil {
		return Error(c, "uploadItemImage", err)
	}
	originalURL, err := h.images.GeneratePresignedURL(ctx, originalPath, time.Hour)
	if err != nil {
		return Error(c, "uploadItemImage", err)
	}
	thumbURL, err := h.images.GeneratePresignedURL(ctx, thumbPath, time.Hour)
	if err != nil {
		return Error(c, "uploadItemImage", err)
	}

	item, err := t.Masterdata.GetItem(ctx, storeCode, itemCode)
	if err != nil {
		return Error(c, "uploadItemImage", err)
	}
	item.ImageURLs = append(item.ImageURLs, originalURL, thumbURL)
	if err := t.Masterdata.PutItem(ctx, item); err != nil {
		return Error(c, "uploadItemImage", err)
	}
	return OK(c, "uploadItemImage", item)
}

// --- Tax rules ---

type taxRuleBody struct {
	TaxCode     string `json:"taxCode"`
	TaxType     string `json:"taxType"`
	TaxName     string `json:"taxName"`
	Rate        string `json:"rate"`
	RoundDigit  int32  `json:"roundDigit"`
	RoundMethod string `json:"roundMethod"`
}

func (h *MasterdataHandler) GetTaxRule(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getTaxRule", err)
	}
	rule, err := t.Masterdata.GetTaxRule(c.Request().Context(), c.Param("tax_code"))
	if err != nil {
		return Error(c, "getTaxRule", err)
	}
	return OK(c, "getTaxRule", rule)
}

func (h *MasterdataHandler) ListTaxRules(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listTaxRules", err)
	}
	limit, page := pageParams(c)
	rules, total, err := t.Masterdata.ListTaxRules(c.Request().Context(), limit, page)
	if err != nil {
		return Error(c, "listTaxRules", err)
	}
	return Paged(c, "listTaxRules", rules, total, page, limit)
}

func (h *MasterdataHandler) PutTaxRule(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "putTaxRule", err)
	}
	var body taxRuleBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "putTaxRule", domain.ErrInvalidInput)
	}
	rule := &domain.TaxRule{
		TenantID: t.ID, TaxCode: body.TaxCode, TaxType: domain.TaxType(body.TaxType),
		TaxName: body.TaxName, Rate: asDec(body.Rate), RoundDigit: body.RoundDigit,
		RoundMethod: domain.RoundMethod(body.RoundMethod),
	}
	if err := t.Masterdata.PutTaxRule(c.Request().Context(), rule); err != nil {
		return Error(c, "putTaxRule", err)
	}
	return OK(c, "putTaxRule", rule)
}

func (h *MasterdataHandler) DeleteTaxRule(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deleteTaxRule", err)
	}
	if err := t.Masterdata.DeleteTaxRule(c.Request().Context(), c.Param("tax_code")); err != nil {
		return Error(c, "deleteTaxRule", err)
	}
	return OK(c, "deleteTaxRule", nil)
}

// --- Payment methods ---

type paymentMethodBody struct {
	PaymentCode    string `json:"paymentCode"`
	Description    string `json:"description"`
	CanRefund      bool   `json:"canRefund"`
	CanDepositOver bool   `json:"canDepositOver"`
	CanChange      bool   `json:"canChange"`
}

func (h *MasterdataHandler) GetPaymentMethod(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getPaymentMethod", err)
	}
	pm, err := t.Masterdata.GetPaymentMethod(c.Request().Context(), c.Param("payment_code"))
	if err != nil {
		return Error(c, "getPaymentMethod", err)
	}
	return OK(c, "getPaymentMethod", pm)
}

func (h *MasterdataHandler) ListPaymentMethods(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listPaymentMethods", err)
	}
	limit, page := pageParams(c)
	methods, total, err := t.Masterdata.ListPaymentMethods(c.Request().Context(), limit, page)
	if err != nil {
		return Error(c, "listPaymentMethods", err)
	}
	return Paged(c, "listPaymentMethods", methods, total, page, limit)
}

func (h *MasterdataHandler) PutPaymentMethod(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "putPaymentMethod", err)
	}
	var body paymentMethodBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "putPaymentMethod", domain.ErrInvalidInput)
	}
	pm := &domain.PaymentMethod{
		TenantID: t.ID, PaymentCode: body.PaymentCode, Description: body.Description,
		CanRefund: body.CanRefund, CanDepositOver: body.CanDepositOver, CanChange: body.CanChange,
	}
	if err := t.Masterdata.PutPaymentMethod(c.Request().Context(), pm); err != nil {
		return Error(c, "putPaymentMethod", err)
	}
	return OK(c, "putPaymentMethod", pm)
}

func (h *MasterdataHandler) DeletePaymentMethod(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deletePaymentMethod", err)
	}
	if err := t.Masterdata.DeletePaymentMethod(c.Request().Context(), c.Param("payment_code")); err != nil {
		return Error(c, "deletePaymentMethod", err)
	}
	return OK(c, "deletePaymentMethod", nil)
}

// --- Categories ---

type categoryBody struct {
	CategoryCode string `json:"categoryCode"`
	Description  string `json:"description"`
}

func (h *MasterdataHandler) GetCategory(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getCategory", err)
	}
	cat, err := t.Masterdata.GetCategory(c.Request().Context(), c.Param("category_code"))
	if err != nil {
		return Error(c, "getCategory", err)
	}
	return OK(c, "getCategory", cat)
}

func (h *MasterdataHandler) ListCategories(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listCategories", err)
	}
	limit, page := pageParams(c)
	categories, total, err := t.Masterdata.ListCategories(c.Request().Context(), limit, page)
	if err != nil {
		return Error(c, "listCategories", err)
	}
	return Paged(c, "listCategories", categories, total, page, limit)
}

func (h *MasterdataHandler) PutCategory(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "putCategory", err)
	}
	var body categoryBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "putCategory", domain.ErrInvalidInput)
	}
	cat := &domain.Category{TenantID: t.ID, CategoryCode: body.CategoryCode, Description: body.Description}
	if err := t.Masterdata.PutCategory(c.Request().Context(), cat); err != nil {
		return Error(c, "putCategory", err)
	}
	return OK(c, "putCategory", cat)
}

func (h *MasterdataHandler) DeleteCategory(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deleteCategory", err)
	}
	if err := t.Masterdata.DeleteCategory(c.Request().Context(), c.Param("category_code")); err != nil {
		return Error(c, "deleteCategory", err)
	}
	return OK(c, "deleteCategory", nil)
}

// --- Staff ---

type staffBody struct {
	StaffID string `json:"staffId"`
	Name    string `json:"name"`
}

func (h *MasterdataHandler) GetStaff(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getStaff", err)
	}
	s, err := t.Masterdata.GetStaff(c.Request().Context(), c.Param("staff_id"))
	if err != nil {
		return Error(c, "getStaff", err)
	}
	return OK(c, "getStaff", s)
}

func (h *MasterdataHandler) ListStaff(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listStaff", err)
	}
	limit, page := pageParams(c)
	staff, total, err := t.Masterdata.ListStaff(c.Request().Context(), limit, page)
	if err != nil {
		return Error(c, "listStaff", err)
	}
	return Paged(c, "listStaff", staff, total, page, limit)
}

func (h *MasterdataHandler) PutStaff(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "putStaff", err)
	}
	var body staffBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "putStaff", domain.ErrInvalidInput)
	}
	if body.StaffID == "" {
		return Error(c, "putStaff", domain.ErrInvalidInput)
	}
	now := nowFunc()
	existing, _ := t.Masterdata.GetStaff(c.Request().Context(), body.StaffID)
	createdAt := now
	if existing != nil {
		createdAt = existing.CreatedAt
	}
	s := &domain.Staff{TenantID: t.ID, StaffID: body.StaffID, Name: body.Name, CreatedAt: createdAt, UpdatedAt: now}
	if err := t.Masterdata.PutStaff(c.Request().Context(), s); err != nil {
		return Error(c, "putStaff", err)
	}
	return OK(c, "putStaff", s)
}

func (h *MasterdataHandler) DeleteStaff(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deleteStaff", err)
	}
	if err := t.Masterdata.DeleteStaff(c.Request().Context(), c.Param("staff_id")); err != nil {
		return Error(c, "deleteStaff", err)
	}
	return OK(c, "deleteStaff", nil)
}

// --- Settings ---

type settingsValueBody struct {
	StoreCode  string `json:"storeCode"`
	TerminalNo *int   `json:"terminalNo"`
	Value      string `json:"value"`
}

type settingsBody struct {
	Name         string              `json:"name"`
	DefaultValue string              `json:"defaultValue"`
	Values       []settingsValueBody `json:"values"`
}

func toSettingsValues(in []settingsValueBody) []domain.SettingsValue {
	out := make([]domain.SettingsValue, 0, len(in))
	for _, v := range in {
		out = append(out, domain.SettingsValue{StoreCode: v.StoreCode, TerminalNo: v.TerminalNo, Value: v.Value})
	}
	return out
}

func (h *MasterdataHandler) GetSettings(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getSettings", err)
	}
	s, err := t.Masterdata.GetSettings(c.Request().Context(), c.Param("name"))
	if err != nil {
		return Error(c, "getSettings", err)
	}
	return OK(c, "getSettings", s)
}

// GetSettingsValue handles GET /api/v1/settings/{name}/value, resolving the
// hierarchical store/terminal override per domain.Settings.Resolve.
func (h *MasterdataHandler) GetSettingsValue(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getSettingsValue", err)
	}
	s, err := t.Masterdata.GetSettings(c.Request().Context(), c.Param("name"))
	if err != nil {
		return Error(c, "getSettingsValue", err)
	}
	terminalNo, _ := strconv.Atoi(c.QueryParam("terminal_no"))
	value := s.Resolve(c.QueryParam("store_code"), terminalNo)
	return OK(c, "getSettingsValue", map[string]any{"name": s.Name, "value": value})
}

func (h *MasterdataHandler) ListSettings(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listSettings", err)
	}
	limit, page := pageParams(c)
	settings, total, err := t.Masterdata.ListSettings(c.Request().Context(), limit, page)
	if err != nil {
		return Error(c, "listSettings", err)
	}
	return Paged(c, "listSettings", settings, total, page, limit)
}

func (h *MasterdataHandler) CreateSettings(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "createSettings", err)
	}
	var body settingsBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "createSettings", domain.ErrInvalidInput)
	}
	if body.Name == "" {
		return Error(c, "createSettings", domain.ErrNameRequired)
	}
	s := &domain.Settings{TenantID: t.ID, Name: body.Name, DefaultValue: body.DefaultValue, Values: toSettingsValues(body.Values)}
	if err := t.Masterdata.CreateSettings(c.Request().Context(), s); err != nil {
		return Error(c, "createSettings", err)
	}
	return Created(c, "createSettings", s)
}

func (h *MasterdataHandler) UpdateSettings(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "updateSettings", err)
	}
	name := c.Param("name")
	var body settingsBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "updateSettings", domain.ErrInvalidInput)
	}
	if body.Name != "" && body.Name != name {
		return Error(c, "updateSettings", domain.ErrInvalidInput)
	}
	s := &domain.Settings{TenantID: t.ID, Name: name, DefaultValue: body.DefaultValue, Values: toSettingsValues(body.Values)}
	if err := t.Masterdata.UpdateSettings(c.Request().Context(), s); err != nil {
		return Error(c, "updateSettings", err)
	}
	return OK(c, "updateSettings", s)
}

func (h *MasterdataHandler) DeleteSettings(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deleteSettings", err)
	}
	if err := t.Masterdata.DeleteSettings(c.Request().Context(), c.Param("name")); err != nil {
		return Error(c, "deleteSettings", err)
	}
	return OK(c, "deleteSettings", nil)
}

// --- Button layout books ---

type buttonLayoutEntryBody struct {
	Position int    `json:"position"`
	ItemCode string `json:"itemCode"`
	Color    string `json:"color"`
}

type buttonLayoutBookBody struct {
	StoreCode string                  `json:"storeCode"`
	Name      string                  `json:"name"`
	Buttons   []buttonLayoutEntryBody `json:"buttons"`
}

func (h *MasterdataHandler) GetButtonLayoutBook(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "getButtonLayoutBook", err)
	}
	b, err := t.Masterdata.GetButtonLayoutBook(c.Request().Context(), c.Param("store_code"), c.Param("name"))
	if err != nil {
		return Error(c, "getButtonLayoutBook", err)
	}
	return OK(c, "getButtonLayoutBook", b)
}

func (h *MasterdataHandler) ListButtonLayoutBooks(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "listButtonLayoutBooks", err)
	}
	limit, page := pageParams(c)
	books, total, err := t.Masterdata.ListButtonLayoutBooks(c.Request().Context(), c.Param("store_code"), limit, page)
	if err != nil {
		return Error(c, "listButtonLayoutBooks", err)
	}
	return Paged(c, "listButtonLayoutBooks", books, total, page, limit)
}

func (h *MasterdataHandler) PutButtonLayoutBook(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "putButtonLayoutBook", err)
	}
	var body buttonLayoutBookBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "putButtonLayoutBook", domain.ErrInvalidInput)
	}
	buttons := make([]domain.ButtonLayoutEntry, 0, len(body.Buttons))
	for _, e := range body.Buttons {
		buttons = append(buttons, domain.ButtonLayoutEntry{Position: e.Position, ItemCode: e.ItemCode, Color: e.Color})
	}
	book := &domain.ButtonLayoutBook{TenantID: t.ID, StoreCode: body.StoreCode, Name: body.Name, Buttons: buttons}
	if err := t.Masterdata.PutButtonLayoutBook(c.Request().Context(), book); err != nil {
		return Error(c, "putButtonLayoutBook", err)
	}
	return OK(c, "putButtonLayoutBook", book)
}

func (h *MasterdataHandler) DeleteButtonLayoutBook(c echo.Context) error {
	t, err := h.tenant(c)
	if err != nil {
		return Error(c, "deleteButtonLayoutBook", err)
	}
	if err := t.Masterdata.DeleteButtonLayoutBook(c.Request().Context(), c.Param("store_code"), c.Param("name")); err != nil {
		return Error(c, "deleteButtonLayoutBook", err)
	}
	return OK(c, "deleteButtonLayoutBook", nil)
}
