// Package masterdata implements the read-through cache the cart engine
// uses to resolve items, taxes, payments and categories (C3), plus the
// master-data service's own Postgres-backed repositories and item image
// store.
package masterdata

import (
	"context"
	"sync"
	"time"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// Source is the collaborator a Cache falls through to on a miss: either an
// HTTP client against the master-data service, or a pooled gRPC channel.
type Source interface {
	GetItem(ctx context.Context, tenantID, storeCode, itemCode string) (*domain.Item, error)
	GetTaxRule(ctx context.Context, tenantID, taxCode string) (*domain.TaxRule, error)
	GetPaymentMethod(ctx context.Context, tenantID, paymentCode string) (*domain.PaymentMethod, error)
	GetCategory(ctx context.Context, tenantID, categoryCode string) (*domain.Category, error)
}

type cacheEntry struct {
	value   any
	storedAt time.Time
}

// Cache is a per-cart-instance lookaside cache. Its maps have no size
// bound; an entry is replaced only when it has expired. It must never be
// shared across requests/carts: the spec requires a cart's view of prices
// to stay consistent for its whole lifetime, which a shared cache with a
// short TTL would violate mid-cart.
type Cache struct {
	mu     sync.Mutex
	ttl    time.Duration
	source Source
	items      map[string]cacheEntry
	taxes      map[string]cacheEntry
	payments   map[string]cacheEntry
	categories map[string]cacheEntry
}

// NewCache builds a Cache with the given TTL. A zero TTL disables caching:
// every lookup falls through to Source (the USE_ITEM_CACHE=false path).
func NewCache(source Source, ttl time.Duration) *Cache {
	return &Cache{
		source:     source,
		ttl:        ttl,
		items:      map[string]cacheEntry{},
		taxes:      map[string]cacheEntry{},
		payments:   map[string]cacheEntry{},
		categories: map[string]cacheEntry{},
	}
}

func (c *Cache) expired(e cacheEntry) bool {
	return c.ttl <= 0 || time.Since(e.storedAt) > c.ttl
}

func (c *Cache) Item(ctx context.Context, tenantID, storeCode, itemCode string) (*domain.Item, error) {
	c.mu.Lock()
	if e, ok := c.items[itemCode]; ok {
		if !c.expired(e) {
			c.mu.Unlock()
			return e.value.(*domain.Item), nil
		}
		delete(c.items, itemCode) // purge lazily on the expired hit
	}
	c.mu.Unlock()

	item, err := c.source.GetItem(ctx, tenantID, storeCode, itemCode)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.items[itemCode] = cacheEntry{value: item, storedAt: time.Now()}
	c.mu.Unlock()
	return item, nil
}

func (c *Cache) TaxRule(ctx context.Context, tenantID, taxCode string) (*domain.TaxRule, error) {
	c.mu.Lock()
	if e, ok := c.taxes[taxCode]; ok {
		if !c.expired(e) {
			c.mu.Unlock()
			return e.value.(*domain.TaxRule), nil
		}
		delete(c.taxes, taxCode)
	}
	c.mu.Unlock()

	rule, err := c.source.GetTaxRule(ctx, tenantID, taxCode)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.taxes[taxCode] = cacheEntry{value: rule, storedAt: time.Now()}
	c.mu.Unlock()
	return rule, nil
}

func (c *Cache) PaymentMethod(ctx context.Context, tenantID, paymentCode string) (*domain.PaymentMethod, error) {
	c.mu.Lock()
	if e, ok := c.payments[paymentCode]; ok {
		if !c.expired(e) {
			c.mu.Unlock()
			return e.value.(*domain.PaymentMethod), nil
		}
		delete(c.payments, paymentCode)
	}
	c.mu.Unlock()

	pm, err := c.source.GetPaymentMethod(ctx, tenantID, paymentCode)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.payments[paymentCode] = cacheEntry{value: pm, storedAt: time.Now()}
	c.mu.Unlock()
	return pm, nil
}

func (c *Cache) Category(ctx context.Context, tenantID, categoryCode string) (*domain.Category, error) {
	c.mu.Lock()
	if e, ok := c.categories[categoryCode]; ok {
		if !c.expired(e) {
			c.mu.Unlock()
			return e.value.(*domain.Category), nil
		}
		delete(c.categories, categoryCode)
	}
	c.mu.Unlock()

	cat, err := c.source.GetCategory(ctx, tenantID, categoryCode)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.categories[categoryCode] = cacheEntry{value: cat, storedAt: time.Now()}
	c.mu.Unlock()
	return cat, nil
}
