package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

// Repository is the master-data service's own CRUD surface, backed
// directly by the storage gateway - the thing HTTPSource/GRPCSource call
// into from the cart engine's process (or over the wire, when the
// master-data service runs separately).
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func itemKey(storeCode, itemCode string) string { return storeCode + ":" + itemCode }

func (r *Repository) GetItem(ctx context.Context, storeCode, itemCode string) (*domain.Item, error) {
	doc, err := r.gateway.Get(ctx, "items", storage.Filter{"store_code": storeCode, "item_code": itemCode})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrItemNotFound
	}
	return docToItem(doc.Body), nil
}

func (r *Repository) PutItem(ctx context.Context, item *domain.Item) error {
	body := itemToDoc(item)
	key := itemKey(item.StoreCode, item.ItemCode)
	if err := r.gateway.Create(ctx, "items", key, body); err != nil {
		return r.gateway.Replace(ctx, "items", storage.Filter{"store_code": item.StoreCode, "item_code": item.ItemCode}, body)
	}
	return nil
}

func (r *Repository) ListItems(ctx context.Context, storeCode string, limit, page int) ([]domain.Item, int, error) {
	docs, total, err := r.gateway.List(ctx, "items", storage.Filter{"store_code": storeCode}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	items := make([]domain.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, *docToItem(d.Body))
	}
	return items, total, nil
}

func (r *Repository) DeleteItem(ctx context.Context, storeCode, itemCode string) error {
	return r.gateway.Delete(ctx, "items", storage.Filter{"store_code": storeCode, "item_code": itemCode})
}

func (r *Repository) GetTaxRule(ctx context.Context, taxCode string) (*domain.TaxRule, error) {
	doc, err := r.gateway.Get(ctx, "tax_rules", storage.Filter{"tax_code": taxCode})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrTaxNotFound
	}
	return docToTaxRule(doc.Body), nil
}

func (r *Repository) PutTaxRule(ctx context.Context, rule *domain.TaxRule) error {
	body := taxRuleToDoc(rule)
	if err := r.gateway.Create(ctx, "tax_rules", rule.TaxCode, body); err != nil {
		return r.gateway.Replace(ctx, "tax_rules", storage.Filter{"tax_code": rule.TaxCode}, body)
	}
	return nil
}

func (r *Repository) ListTaxRules(ctx context.Context, limit, page int) ([]domain.TaxRule, int, error) {
	docs, total, err := r.gateway.List(ctx, "tax_rules", storage.Filter{}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	rules := make([]domain.TaxRule, 0, len(docs))
	for _, d := range docs {
		rules = append(rules, *docToTaxRule(d.Body))
	}
	return rules, total, nil
}

func (r *Repository) DeleteTaxRule(ctx context.Context, taxCode string) error {
	return r.gateway.Delete(ctx, "tax_rules", storage.Filter{"tax_code": taxCode})
}

func (r *Repository) GetPaymentMethod(ctx context.Context, paymentCode string) (*domain.PaymentMethod, error) {
	doc, err := r.gateway.Get(ctx, "payment_methods", storage.Filter{"payment_code": paymentCode})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return docToPaymentMethod(doc.Body), nil
}

func (r *Repository) PutPaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	body := paymentMethodToDoc(pm)
	if err := r.gateway.Create(ctx, "payment_methods", pm.PaymentCode, body); err != nil {
		return r.gateway.Replace(ctx, "payment_methods", storage.Filter{"payment_code": pm.PaymentCode}, body)
	}
	return nil
}

func (r *Repository) ListPaymentMethods(ctx context.Context, limit, page int) ([]domain.PaymentMethod, int, error) {
	docs, total, err := r.gateway.List(ctx, "payment_methods", storage.Filter{}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	methods := make([]domain.PaymentMethod, 0, len(docs))
	for _, d := range docs {
		methods = append(methods, *docToPaymentMethod(d.Body))
	}
	return methods, total, nil
}

func (r *Repository) DeletePaymentMethod(ctx context.Context, paymentCode string) error {
	return r.gateway.Delete(ctx, "payment_methods", storage.Filter{"payment_code": paymentCode})
}

func (r *Repository) GetCategory(ctx context.Context, categoryCode string) (*domain.Category, error) {
	doc, err := r.gateway.Get(ctx, "categories", storage.Filter{"category_code": categoryCode})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrCategoryNotFound
	}
	return docToCategory(doc.Body), nil
}

func (r *Repository) PutCategory(ctx context.Context, c *domain.Category) error {
	body := categoryToDoc(c)
	if err := r.gateway.Create(ctx, "categories", c.CategoryCode, body); err != nil {
		return r.gateway.Replace(ctx, "categories", storage.Filter{"category_code": c.CategoryCode}, body)
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, limit, page int) ([]domain.Category, int, error) {
	docs, total, err := r.gateway.List(ctx, "categories", storage.Filter{}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	categories := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		categories = append(categories, *docToCategory(d.Body))
	}
	return categories, total, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, categoryCode string) error {
	return r.gateway.Delete(ctx, "categories", storage.Filter{"category_code": categoryCode})
}

// --- Staff: sign-in operators referenced by carts and terminals. ---

func (r *Repository) GetStaff(ctx context.Context, staffID string) (*domain.Staff, error) {
	doc, err := r.gateway.Get(ctx, "staff", storage.Filter{"staff_id": staffID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrStaffNotFound
	}
	return docToStaff(doc.Body), nil
}

func (r *Repository) PutStaff(ctx context.Context, s *domain.Staff) error {
	body := staffToDoc(s)
	if err := r.gateway.Create(ctx, "staff", s.StaffID, body); err != nil {
		return r.gateway.Replace(ctx, "staff", storage.Filter{"staff_id": s.StaffID}, body)
	}
	return nil
}

func (r *Repository) ListStaff(ctx context.Context, limit, page int) ([]domain.Staff, int, error) {
	docs, total, err := r.gateway.List(ctx, "staff", storage.Filter{}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	staff := make([]domain.Staff, 0, len(docs))
	for _, d := range docs {
		staff = append(staff, *docToStaff(d.Body))
	}
	return staff, total, nil
}

func (r *Repository) DeleteStaff(ctx context.Context, staffID string) error {
	return r.gateway.Delete(ctx, "staff", storage.Filter{"staff_id": staffID})
}

// --- Settings: tenant-wide config with store/terminal-scoped overrides,
// grounded on settings_master_service.py's create/get/update/delete shape. ---

func (r *Repository) GetSettings(ctx context.Context, name string) (*domain.Settings, error) {
	doc, err := r.gateway.Get(ctx, "settings", storage.Filter{"setting_key": name})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrSettingsNotFound
	}
	return docToSettings(doc.Body), nil
}

func (r *Repository) CreateSettings(ctx context.Context, s *domain.Settings) error {
	if existing, _ := r.GetSettings(ctx, s.Name); existing != nil {
		return domain.ErrAlreadyExists
	}
	return r.gateway.Create(ctx, "settings", s.Name, settingsToDoc(s))
}

func (r *Repository) UpdateSettings(ctx context.Context, s *domain.Settings) error {
	if _, err := r.GetSettings(ctx, s.Name); err != nil {
		return err
	}
	return r.gateway.Replace(ctx, "settings", storage.Filter{"setting_key": s.Name}, settingsToDoc(s))
}

func (r *Repository) ListSettings(ctx context.Context, limit, page int) ([]domain.Settings, int, error) {
	docs, total, err := r.gateway.List(ctx, "settings", storage.Filter{}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	settings := make([]domain.Settings, 0, len(docs))
	for _, d := range docs {
		settings = append(settings, *docToSettings(d.Body))
	}
	return settings, total, nil
}

func (r *Repository) DeleteSettings(ctx context.Context, name string) error {
	if _, err := r.GetSettings(ctx, name); err != nil {
		return err
	}
	return r.gateway.Delete(ctx, "settings", storage.Filter{"setting_key": name})
}

// --- ButtonLayoutBook: one per (tenant, store) named layout. ---

func (r *Repository) GetButtonLayoutBook(ctx context.Context, storeCode, name string) (*domain.ButtonLayoutBook, error) {
	doc, err := r.gateway.Get(ctx, "button_layout_books", storage.Filter{"store_code": storeCode, "name": name})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrButtonLayoutNotFound
	}
	return docToButtonLayoutBook(doc.Body), nil
}

func (r *Repository) PutButtonLayoutBook(ctx context.Context, b *domain.ButtonLayoutBook) error {
	key := b.StoreCode + ":" + b.Name
	body := buttonLayoutBookToDoc(b)
	if err := r.gateway.Create(ctx, "button_layout_books", key, body); err != nil {
		return r.gateway.Replace(ctx, "button_layout_books", storage.Filter{"store_code": b.StoreCode, "name": b.Name}, body)
	}
	return nil
}

func (r *Repository) ListButtonLayoutBooks(ctx context.Context, storeCode string, limit, page int) ([]domain.ButtonLayoutBook, int, error) {
	docs, total, err := r.gateway.List(ctx, "button_layout_books", storage.Filter{"store_code": storeCode}, nil, limit, page)
	if err != nil {
		return nil, 0, err
	}
	books := make([]domain.ButtonLayoutBook, 0, len(docs))
	for _, d := range docs {
		books = append(books, *docToButtonLayoutBook(d.Body))
	}
	return books, total, nil
}

func (r *Repository) DeleteButtonLayoutBook(ctx context.Context, storeCode, name string) error {
	return r.gateway.Delete(ctx, "button_layout_books", storage.Filter{"store_code": storeCode, "name": name})
}

// --- doc <-> domain conversions; JSONB fields are untyped decoded JSON,
// so numeric fields arrive as float64 and must go through decimal.NewFromFloat. ---

func itemToDoc(i *domain.Item) map[string]any {
	return map[string]any{
		"tenant_id":              i.TenantID,
		"store_code":             i.StoreCode,
		"item_code":              i.ItemCode,
		"description":            i.Description,
		"unit_price":             i.UnitPrice.String(),
		"tax_code":               i.TaxCode,
		"category_code":          i.CategoryCode,
		"is_discount_restricted": i.IsDiscountRestricted,
		"image_urls":             i.ImageURLs,
	}
}

func docToItem(body map[string]any) *domain.Item {
	return &domain.Item{
		TenantID:             asString(body["tenant_id"]),
		StoreCode:            asString(body["store_code"]),
		ItemCode:             asString(body["item_code"]),
		Description:          asString(body["description"]),
		UnitPrice:            asDecimal(body["unit_price"]),
		TaxCode:              asString(body["tax_code"]),
		CategoryCode:         asString(body["category_code"]),
		IsDiscountRestricted: asBool(body["is_discount_restricted"]),
		ImageURLs:            asStringSlice(body["image_urls"]),
	}
}

func taxRuleToDoc(t *domain.TaxRule) map[string]any {
	return map[string]any{
		"tenant_id":    t.TenantID,
		"tax_code":     t.TaxCode,
		"tax_type":     string(t.TaxType),
		"tax_name":     t.TaxName,
		"rate":         t.Rate.String(),
		"round_digit":  t.RoundDigit,
		"round_method": string(t.RoundMethod),
	}
}

func docToTaxRule(body map[string]any) *domain.TaxRule {
	return &domain.TaxRule{
		TenantID:    asString(body["tenant_id"]),
		TaxCode:     asString(body["tax_code"]),
		TaxType:     domain.TaxType(asString(body["tax_type"])),
		TaxName:     asString(body["tax_name"]),
		Rate:        asDecimal(body["rate"]),
		RoundDigit:  int32(asFloat(body["round_digit"])),
		RoundMethod: domain.RoundMethod(asString(body["round_method"])),
	}
}

func paymentMethodToDoc(p *domain.PaymentMethod) map[string]any {
	return map[string]any{
		"tenant_id":        p.TenantID,
		"payment_code":     p.PaymentCode,
		"description":      p.Description,
		"can_refund":       p.CanRefund,
		"can_deposit_over": p.CanDepositOver,
		"can_change":       p.CanChange,
	}
}

func docToPaymentMethod(body map[string]any) *domain.PaymentMethod {
	return &domain.PaymentMethod{
		TenantID:       asString(body["tenant_id"]),
		PaymentCode:    asString(body["payment_code"]),
		Description:    asString(body["description"]),
		CanRefund:      asBool(body["can_refund"]),
		CanDepositOver: asBool(body["can_deposit_over"]),
		CanChange:      asBool(body["can_change"]),
	}
}

func categoryToDoc(c *domain.Category) map[string]any {
	return map[string]any{
		"tenant_id":     c.TenantID,
		"category_code": c.CategoryCode,
		"description":   c.Description,
	}
}

func docToCategory(body map[string]any) *domain.Category {
	return &domain.Category{
		TenantID:     asString(body["tenant_id"]),
		CategoryCode: asString(body["category_code"]),
		Description:  asString(body["description"]),
	}
}

func staffToDoc(s *domain.Staff) map[string]any {
	return map[string]any{
		"tenant_id":  s.TenantID,
		"staff_id":   s.StaffID,
		"name":       s.Name,
		"created_at": s.CreatedAt.Format(time.RFC3339),
		"updated_at": s.UpdatedAt.Format(time.RFC3339),
	}
}

func docToStaff(body map[string]any) *domain.Staff {
	return &domain.Staff{
		TenantID:  asString(body["tenant_id"]),
		StaffID:   asString(body["staff_id"]),
		Name:      asString(body["name"]),
		CreatedAt: asTime(body["created_at"]),
		UpdatedAt: asTime(body["updated_at"]),
	}
}

func settingsValueToDoc(v domain.SettingsValue) map[string]any {
	m := map[string]any{
		"store_code": v.StoreCode,
		"value":      v.Value,
	}
	if v.TerminalNo != nil {
		m["terminal_no"] = *v.TerminalNo
	}
	return m
}

func docToSettingsValue(raw any) domain.SettingsValue {
	m, _ := raw.(map[string]any)
	v := domain.SettingsValue{
		StoreCode: asString(m["store_code"]),
		Value:     asString(m["value"]),
	}
	if n, ok := m["terminal_no"]; ok && n != nil {
		v.TerminalNo = asIntPtr(n)
	}
	return v
}

func settingsToDoc(s *domain.Settings) map[string]any {
	values := make([]any, 0, len(s.Values))
	for _, v := range s.Values {
		values = append(values, settingsValueToDoc(v))
	}
	return map[string]any{
		"tenant_id":     s.TenantID,
		"setting_key":   s.Name,
		"default_value": s.DefaultValue,
		"values":        values,
	}
}

func docToSettings(body map[string]any) *domain.Settings {
	raw, _ := body["values"].([]any)
	values := make([]domain.SettingsValue, 0, len(raw))
	for _, r := range raw {
		values = append(values, docToSettingsValue(r))
	}
	return &domain.Settings{
		TenantID:     asString(body["tenant_id"]),
		Name:         asString(body["setting_key"]),
		DefaultValue: asString(body["default_value"]),
		Values:       values,
	}
}

func buttonLayoutEntryToDoc(e domain.ButtonLayoutEntry) map[string]any {
	return map[string]any{
		"position":  e.Position,
		"item_code": e.ItemCode,
		"color":     e.Color,
	}
}

func docToButtonLayoutEntry(raw any) domain.ButtonLayoutEntry {
	m, _ := raw.(map[string]any)
	return domain.ButtonLayoutEntry{
		Position: int(asFloat(m["position"])),
		ItemCode: asString(m["item_code"]),
		Color:    asString(m["color"]),
	}
}

func buttonLayoutBookToDoc(b *domain.ButtonLayoutBook) map[string]any {
	buttons := make([]any, 0, len(b.Buttons))
	for _, e := range b.Buttons {
		buttons = append(buttons, buttonLayoutEntryToDoc(e))
	}
	return map[string]any{
		"tenant_id":  b.TenantID,
		"store_code": b.StoreCode,
		"name":       b.Name,
		"buttons":    buttons,
	}
}

func docToButtonLayoutBook(body map[string]any) *domain.ButtonLayoutBook {
	raw, _ := body["buttons"].([]any)
	buttons := make([]domain.ButtonLayoutEntry, 0, len(raw))
	for _, r := range raw {
		buttons = append(buttons, docToButtonLayoutEntry(r))
	}
	return &domain.ButtonLayoutBook{
		TenantID:  asString(body["tenant_id"]),
		StoreCode: asString(body["store_code"]),
		Name:      asString(body["name"]),
		Buttons:   buttons,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(t)
	}
	return decimal.Zero
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, fmt.Sprintf("%v", r))
	}
	return out
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asIntPtr(v any) *int {
	n := int(asFloat(v))
	return &n
}
