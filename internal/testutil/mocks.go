// Package testutil provides in-memory fakes for the interfaces the
// domain services depend on, so unit tests exercise business logic
// without a Postgres instance or network calls.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

// MockGateway is an in-memory storage.Gateway keyed by collection then by
// document key. It is not tenant-schema-aware - callers are expected to
// scope their own collection names the way real tenant schemas would.
type MockGateway struct {
	mu          sync.Mutex
	docs        map[string]map[string]*storage.Doc
	EnsureErr   error
	EnsuredIDs  []string
	AtomicIncFn func(collection, key string, inc map[string]float64, defaultBody map[string]any) (*storage.Doc, error)
}

// NewMockGateway creates an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{docs: make(map[string]map[string]*storage.Doc)}
}

func (g *MockGateway) collection(name string) map[string]*storage.Doc {
	c, ok := g.docs[name]
	if !ok {
		c = make(map[string]*storage.Doc)
		g.docs[name] = c
	}
	return c
}

func matches(body map[string]any, filter storage.Filter) bool {
	for k, v := range filter {
		if body[k] != v {
			return false
		}
	}
	return true
}

// Get implements storage.Gateway. Like PgGateway, a miss is reported as
// (nil, nil) - not an error - so callers' own "doc == nil" not-found
// checks behave the same against either implementation.
func (g *MockGateway) Get(ctx context.Context, collection string, filter storage.Filter) (*storage.Doc, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, d := range g.collection(collection) {
		if matches(d.Body, filter) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

// List implements storage.Gateway.
func (g *MockGateway) List(ctx context.Context, collection string, filter storage.Filter, s storage.Sort, limit, page int) ([]storage.Doc, int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var matched []storage.Doc
	for _, d := range g.collection(collection) {
		if matches(d.Body, filter) {
			matched = append(matched, *d)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	total := len(matched)

	if limit <= 0 {
		return matched, total, nil
	}
	start := (page - 1) * limit
	if page <= 0 {
		start = 0
	}
	if start >= total {
		return []storage.Doc{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Create implements storage.Gateway.
func (g *MockGateway) Create(ctx context.Context, collection string, key string, body map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.collection(collection)
	if _, exists := c[key]; exists {
		return domain.ErrAlreadyExists
	}
	c[key] = &storage.Doc{Key: key, Body: body}
	return nil
}

// UpdateFields implements storage.Gateway.
func (g *MockGateway) UpdateFields(ctx context.Context, collection string, filter storage.Filter, patch map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, d := range g.collection(collection) {
		if matches(d.Body, filter) {
			for k, v := range patch {
				d.Body[k] = v
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

// Replace implements storage.Gateway.
func (g *MockGateway) Replace(ctx context.Context, collection string, filter storage.Filter, body map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, d := range g.collection(collection) {
		if matches(d.Body, filter) {
			d.Body = body
			return nil
		}
	}
	return domain.ErrNotFound
}

// Delete implements storage.Gateway.
func (g *MockGateway) Delete(ctx context.Context, collection string, filter storage.Filter) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.collection(collection)
	for k, d := range c {
		if matches(d.Body, filter) {
			delete(c, k)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Count implements storage.Gateway.
func (g *MockGateway) Count(ctx context.Context, collection string, filter storage.Filter) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, d := range g.collection(collection) {
		if matches(d.Body, filter) {
			n++
		}
	}
	return n, nil
}

// AtomicUpsertInc implements storage.Gateway.
func (g *MockGateway) AtomicUpsertInc(ctx context.Context, collection string, key string, inc map[string]float64, defaultBody map[string]any) (*storage.Doc, error) {
	if g.AtomicIncFn != nil {
		return g.AtomicIncFn(collection, key, inc, defaultBody)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.collection(collection)
	d, ok := c[key]
	if !ok {
		body := map[string]any{}
		for k, v := range defaultBody {
			body[k] = v
		}
		d = &storage.Doc{Key: key, Body: body}
		c[key] = d
	}
	for field, delta := range inc {
		current, _ := d.Body[field].(float64)
		d.Body[field] = current + delta
	}
	cp := *d
	return &cp, nil
}

// AtomicCounterNext implements storage.Gateway.
func (g *MockGateway) AtomicCounterNext(ctx context.Context, collection string, key string, field string, start, end int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.collection(collection)
	d, ok := c[key]
	if !ok {
		d = &storage.Doc{Key: key, Body: map[string]any{}}
		c[key] = d
	}
	current, _ := d.Body[field].(int)
	if current == 0 {
		if v, ok := d.Body[field].(float64); ok {
			current = int(v)
		}
	}
	var next int
	if current == 0 || current >= end {
		next = start
	} else {
		next = current + 1
	}
	d.Body[field] = next
	return next, nil
}

// WithTransaction implements storage.Gateway. The mock has no real
// transactional isolation; fn just runs against the same gateway.
func (g *MockGateway) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx storage.Gateway) error) error {
	return fn(ctx, g)
}

// EnsureTenantSchema implements storage.Gateway.
func (g *MockGateway) EnsureTenantSchema(ctx context.Context, tenantID string) error {
	if g.EnsureErr != nil {
		return g.EnsureErr
	}
	g.EnsuredIDs = append(g.EnsuredIDs, tenantID)
	return nil
}

// MockTerminalValidator implements middleware.TerminalValidator for handler
// and service tests.
type MockTerminalValidator struct {
	Terminal *domain.Terminal
	Err      error
}

// ValidateAPIKey returns the configured terminal or error regardless of
// the (terminalID, apiKey) pair passed in.
func (m *MockTerminalValidator) ValidateAPIKey(ctx context.Context, terminalID, apiKey string) (*domain.Terminal, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Terminal, nil
}

// MockBus is an in-memory eventbus.Bus recording every published payload
// for assertions, without touching Redis or any network transport.
type MockBus struct {
	mu        sync.Mutex
	Published map[string][][]byte
	PublishFn func(topic string, payload []byte) error
}

// NewMockBus creates an empty MockBus.
func NewMockBus() *MockBus {
	return &MockBus{Published: make(map[string][][]byte)}
}

// Publish implements eventbus.Bus.
func (b *MockBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if b.PublishFn != nil {
		return b.PublishFn(topic, payload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Published[topic] = append(b.Published[topic], payload)
	return nil
}

// Count returns how many messages were published to topic.
func (b *MockBus) Count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Published[topic])
}

// MockMasterdataSource is an in-memory masterdata.Source fed by an
// explicit fixture map, avoiding gRPC/HTTP round-trips in tests.
type MockMasterdataSource struct {
	Items      map[string]*domain.Item
	Taxes      map[string]*domain.TaxRule
	Payments   map[string]*domain.PaymentMethod
	Categories map[string]*domain.Category
}

// NewMockMasterdataSource creates an empty MockMasterdataSource.
func NewMockMasterdataSource() *MockMasterdataSource {
	return &MockMasterdataSource{
		Items:      make(map[string]*domain.Item),
		Taxes:      make(map[string]*domain.TaxRule),
		Payments:   make(map[string]*domain.PaymentMethod),
		Categories: make(map[string]*domain.Category),
	}
}

// GetItem returns the fixture item for (tenantID, storeCode, itemCode) or ErrItemNotFound.
func (s *MockMasterdataSource) GetItem(ctx context.Context, tenantID, storeCode, itemCode string) (*domain.Item, error) {
	if item, ok := s.Items[fmt.Sprintf("%s/%s/%s", tenantID, storeCode, itemCode)]; ok {
		return item, nil
	}
	return nil, domain.ErrItemNotFound
}

// GetTaxRule returns the fixture tax rule for (tenantID, taxCode) or ErrTaxNotFound.
func (s *MockMasterdataSource) GetTaxRule(ctx context.Context, tenantID, taxCode string) (*domain.TaxRule, error) {
	if rule, ok := s.Taxes[fmt.Sprintf("%s/%s", tenantID, taxCode)]; ok {
		return rule, nil
	}
	return nil, domain.ErrTaxNotFound
}

// GetPaymentMethod returns the fixture payment method for (tenantID, paymentCode) or ErrPaymentNotFound.
func (s *MockMasterdataSource) GetPaymentMethod(ctx context.Context, tenantID, paymentCode string) (*domain.PaymentMethod, error) {
	if pm, ok := s.Payments[fmt.Sprintf("%s/%s", tenantID, paymentCode)]; ok {
		return pm, nil
	}
	return nil, domain.ErrPaymentNotFound
}

// GetCategory returns the fixture category for (tenantID, categoryCode) or ErrCategoryNotFound.
func (s *MockMasterdataSource) GetCategory(ctx context.Context, tenantID, categoryCode string) (*domain.Category, error) {
	if cat, ok := s.Categories[fmt.Sprintf("%s/%s", tenantID, categoryCode)]; ok {
		return cat, nil
	}
	return nil, domain.ErrCategoryNotFound
}

// AddItem registers a fixture item (helper for tests).
func (s *MockMasterdataSource) AddItem(tenantID, storeCode string, item *domain.Item) {
	s.Items[fmt.Sprintf("%s/%s/%s", tenantID, storeCode, item.ItemCode)] = item
}

// AddTaxRule registers a fixture tax rule (helper for tests).
func (s *MockMasterdataSource) AddTaxRule(tenantID string, rule *domain.TaxRule) {
	s.Taxes[fmt.Sprintf("%s/%s", tenantID, rule.TaxCode)] = rule
}

// AddPaymentMethod registers a fixture payment method (helper for tests).
func (s *MockMasterdataSource) AddPaymentMethod(tenantID string, pm *domain.PaymentMethod) {
	s.Payments[fmt.Sprintf("%s/%s", tenantID, pm.PaymentCode)] = pm
}

// AddCategory registers a fixture category (helper for tests).
func (s *MockMasterdataSource) AddCategory(tenantID string, cat *domain.Category) {
	s.Categories[fmt.Sprintf("%s/%s", tenantID, cat.CategoryCode)] = cat
}
