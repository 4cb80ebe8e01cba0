// Package storage implements the tenant-scoped storage gateway (C1):
// one logical namespace per tenant, realized as a Postgres schema, with a
// small set of generic document-shaped operations layered over JSONB
// columns so the domain packages never see SQL.
package storage

import (
	"context"
	"time"
)

// Filter selects documents by equality containment: every key/value pair
// must be present in the stored document. It is intentionally simple -
// the cart/stock/counter callers never need range queries against it,
// those go through dedicated repository methods instead.
type Filter map[string]any

// Sort is an ordered list of (field, ascending) pairs.
type Sort []SortField

type SortField struct {
	Field     string
	Ascending bool
}

// Doc is one stored document: its natural Key plus the JSONB body.
type Doc struct {
	Key       string
	Body      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Gateway is the contract exposed to higher layers, per spec §4.1.
type Gateway interface {
	Get(ctx context.Context, collection string, filter Filter) (*Doc, error)
	List(ctx context.Context, collection string, filter Filter, sort Sort, limit, page int) ([]Doc, int, error)
	Create(ctx context.Context, collection string, key string, body map[string]any) error
	UpdateFields(ctx context.Context, collection string, filter Filter, patch map[string]any) error
	Replace(ctx context.Context, collection string, filter Filter, body map[string]any) error
	Delete(ctx context.Context, collection string, filter Filter) error
	Count(ctx context.Context, collection string, filter Filter) (int, error)

	// AtomicUpsertInc atomically increments numeric fields of the document
	// matched by filter (creating it from defaultBody first if absent) and
	// returns the post-image. Used by the counter and stock services,
	// where correctness depends on the increment being a single atomic
	// storage operation rather than a process-local read-modify-write.
	AtomicUpsertInc(ctx context.Context, collection string, key string, inc map[string]float64, defaultBody map[string]any) (*Doc, error)

	// AtomicCounterNext implements the rollover-bounded counter primitive
	// of C2: if the named field is absent or >= end, it is set to start;
	// otherwise it is incremented by 1. The read-and-branch happens inside
	// one statement so concurrent callers never observe or produce a
	// duplicate post-image.
	AtomicCounterNext(ctx context.Context, collection string, key string, field string, start, end int) (int, error)

	// WithTransaction runs fn against a Gateway bound to a single storage
	// transaction, committing on nil return and aborting otherwise. Used
	// to pair a domain write with a journal write atomically.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Gateway) error) error

	// EnsureTenantSchema provisions the tenant's namespace and its known
	// collections/indexes on first registration.
	EnsureTenantSchema(ctx context.Context, tenantID string) error
}
