package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// CommonsSchema holds the cross-tenant collections (delivery-status).
const CommonsSchema = "commons"

var schemaNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// collection describes one logical document collection: the table it is
// stored in, and the natural-key JSONB paths that ensureTable covers with
// one unique expression index so Postgres enforces their uniqueness.
// compoundIdx is not read by ensureTable; the only other index is the GIN
// index on doc.
type collection struct {
	table        string
	uniqueKeys   []string // JSONB paths enforced unique together by one expression index
	compoundIdx  [][]string
}

// knownCollections mirrors spec §3's entities to concrete tables. Adding a
// collection here is the Go-native analogue of the original's per-service
// "create collections and indexes declared per service" step.
var knownCollections = map[string]collection{
	"terminals":           {table: "terminals", uniqueKeys: []string{"store_code", "terminal_no"}},
	"terminal_counters":   {table: "terminal_counters", uniqueKeys: []string{"terminal_id"}},
	"carts":               {table: "carts", uniqueKeys: []string{"cart_id"}},
	"transaction_logs":    {table: "transaction_logs", uniqueKeys: []string{"store_code", "terminal_no", "transaction_no"}},
	"transaction_status":  {table: "transaction_status", uniqueKeys: []string{"store_code", "terminal_no", "transaction_no"}},
	"stocks":              {table: "stocks", uniqueKeys: []string{"store_code", "item_code"}},
	"stock_updates":       {table: "stock_updates"},
	"stock_snapshots":     {table: "stock_snapshots"},
	"snapshot_schedules":  {table: "snapshot_schedules", uniqueKeys: []string{"tenant_id"}},
	"items":               {table: "items", uniqueKeys: []string{"store_code", "item_code"}},
	"tax_rules":           {table: "tax_rules", uniqueKeys: []string{"tax_code"}},
	"payment_methods":     {table: "payment_methods", uniqueKeys: []string{"payment_code"}},
	"categories":          {table: "categories", uniqueKeys: []string{"category_code"}},
	"button_layout_books": {table: "button_layout_books", uniqueKeys: []string{"store_code", "name"}},
	"staff":               {table: "staff", uniqueKeys: []string{"staff_id"}},
	"users":               {table: "users", uniqueKeys: []string{"username"}},
	"journals":            {table: "journals", uniqueKeys: []string{"store_code", "terminal_no", "transaction_no", "transaction_type"}},
	"settings":            {table: "settings", uniqueKeys: []string{"setting_key"}},
}

// deliveryStatusCollection and tenantsCollection live in CommonsSchema,
// not per-tenant.
const deliveryStatusCollection = "delivery_status"
const tenantsCollection = "tenants"

// resolveCollection looks up a collection by name, special-casing the
// commons-schema collections since they are provisioned separately (via
// EnsureCommonsSchema) rather than through knownCollections.
func resolveCollection(name string) (collection, bool) {
	switch name {
	case deliveryStatusCollection:
		return collection{table: deliveryStatusCollection}, true
	case tenantsCollection:
		return collection{table: tenantsCollection, uniqueKeys: []string{"tenant_id"}}, true
	}
	coll, ok := knownCollections[name]
	return coll, ok
}

// PgGateway implements Gateway over a schema-per-tenant Postgres database.
type PgGateway struct {
	pool     *pgxpool.Pool
	db       pgxIface
	tenantID string
}

// pgxIface is satisfied by both *pgxpool.Pool and pgx.Tx so WithTransaction
// can hand callers a Gateway bound to the active transaction.
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconnTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgconnTag = interface{ RowsAffected() int64 }

// NewPgGateway returns a Gateway scoped to tenantID, or CommonsSchema when
// tenantID is empty.
func NewPgGateway(pool *pgxpool.Pool, tenantID string) *PgGateway {
	return &PgGateway{pool: pool, db: poolAdapter{pool}, tenantID: tenantID}
}

type poolAdapter struct{ pool *pgxpool.Pool }

func (p poolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconnTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}
func (p poolAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.pool.Query(ctx, sql, args...)
}
func (p poolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

type txAdapter struct{ tx pgx.Tx }

func (t txAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconnTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}
func (t txAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}
func (t txAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (g *PgGateway) schemaName() string {
	if g.tenantID == "" {
		return CommonsSchema
	}
	return "tenant_" + strings.ToLower(g.tenantID)
}

func (g *PgGateway) qualified(table string) (string, error) {
	schema := g.schemaName()
	if !schemaNameRe.MatchString(schema) || !schemaNameRe.MatchString(table) {
		return "", fmt.Errorf("storage: invalid identifier %s.%s", schema, table)
	}
	return schema + "." + table, nil
}

// EnsureTenantSchema creates the tenant's schema and every known
// collection's table, with a unique index on its natural key when one is
// declared. Called once, at tenant registration.
func (g *PgGateway) EnsureTenantSchema(ctx context.Context, tenantID string) error {
	scoped := NewPgGateway(g.pool, tenantID)
	schema := scoped.schemaName()
	if !schemaNameRe.MatchString(schema) {
		return fmt.Errorf("storage: invalid tenant id %q", tenantID)
	}
	if _, err := g.pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return fmt.Errorf("storage: create schema: %w", err)
	}
	for name, coll := range knownCollections {
		if err := scoped.ensureTable(ctx, name, coll); err != nil {
			return err
		}
	}
	return nil
}

// EnsureCommonsSchema provisions the cross-tenant commons namespace that
// holds delivery-status records, the tenant registry and the snapshot
// schedules the stock scheduler and reaper read.
func EnsureCommonsSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, CommonsSchema)); err != nil {
		return fmt.Errorf("storage: create commons schema: %w", err)
	}
	commons := NewPgGateway(pool, "")
	if err := commons.ensureTable(ctx, deliveryStatusCollection, collection{table: deliveryStatusCollection, uniqueKeys: []string{"event_id"}}); err != nil {
		return err
	}
	if err := commons.ensureTable(ctx, "snapshot_schedules", knownCollections["snapshot_schedules"]); err != nil {
		return err
	}
	return commons.ensureTable(ctx, tenantsCollection, collection{table: tenantsCollection, uniqueKeys: []string{"tenant_id"}})
}

func (g *PgGateway) ensureTable(ctx context.Context, name string, coll collection) error {
	qualified, err := g.qualified(coll.table)
	if err != nil {
		return err
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		doc JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, qualified)
	if _, err := g.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("storage: create table %s (%s): %w", qualified, name, err)
	}
	if _, err := g.pool.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_doc_gin ON %s USING GIN (doc jsonb_path_ops)`,
		coll.table, qualified,
	)); err != nil {
		return fmt.Errorf("storage: create gin index on %s: %w", qualified, err)
	}
	if len(coll.uniqueKeys) > 0 {
		cols := make([]string, len(coll.uniqueKeys))
		for i, k := range coll.uniqueKeys {
			cols[i] = fmt.Sprintf("(doc->>'%s')", k)
		}
		if _, err := g.pool.Exec(ctx, fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %s_natural_key ON %s (%s)`,
			coll.table, qualified, strings.Join(cols, ", "),
		)); err != nil {
			return fmt.Errorf("storage: create unique index on %s: %w", qualified, err)
		}
	}
	return nil
}

func (g *PgGateway) Get(ctx context.Context, collectionName string, filter Filter) (*Doc, error) {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	row := g.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT key, doc, created_at, updated_at FROM %s WHERE doc @> $1::jsonb LIMIT 1`, table,
	), body)
	var d Doc
	var raw []byte
	if err := row.Scan(&d.Key, &raw, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), err)
	}
	if err := json.Unmarshal(raw, &d.Body); err != nil {
		return nil, err
	}
	return &d, nil
}

func (g *PgGateway) List(ctx context.Context, collectionName string, filter Filter, sort Sort, limit, page int) ([]Doc, int, error) {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return nil, 0, fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return nil, 0, err
	}
	body, err := json.Marshal(filter)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := g.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE doc @> $1::jsonb`, table), body).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), err)
	}

	orderClause := "created_at DESC"
	if len(sort) > 0 {
		parts := make([]string, 0, len(sort))
		for _, s := range sort {
			dir := "DESC"
			if s.Ascending {
				dir = "ASC"
			}
			parts = append(parts, fmt.Sprintf("doc->>'%s' %s", s.Field, dir))
		}
		orderClause = strings.Join(parts, ", ")
	}
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	rows, err := g.db.Query(ctx, fmt.Sprintf(
		`SELECT key, doc, created_at, updated_at FROM %s WHERE doc @> $1::jsonb ORDER BY %s LIMIT $2 OFFSET $3`,
		table, orderClause,
	), body, limit, offset)
	if err != nil {
		return nil, 0, domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var d Doc
		var raw []byte
		if err := rows.Scan(&d.Key, &raw, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(raw, &d.Body); err != nil {
			return nil, 0, err
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

func (g *PgGateway) Create(ctx context.Context, collectionName string, key string, body map[string]any) error {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	tag, err := g.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, doc) VALUES ($1, $2::jsonb) ON CONFLICT (key) DO NOTHING`, table,
	), key, raw)
	if err != nil {
		return domain.NewStorageError(collectionName, key, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStorageError(collectionName, key, domain.ErrAlreadyExists)
	}
	return nil
}

func (g *PgGateway) UpdateFields(ctx context.Context, collectionName string, filter Filter, patch map[string]any) error {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return err
	}
	filterBody, err := json.Marshal(filter)
	if err != nil {
		return err
	}
	patchBody, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	tag, err := g.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET doc = doc || $2::jsonb, updated_at = now() WHERE doc @> $1::jsonb`, table,
	), filterBody, patchBody)
	if err != nil {
		return domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), domain.ErrUpdateMiss)
	}
	return nil
}

func (g *PgGateway) Replace(ctx context.Context, collectionName string, filter Filter, body map[string]any) error {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return err
	}
	filterBody, err := json.Marshal(filter)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	tag, err := g.db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET doc = $2::jsonb, updated_at = now() WHERE doc @> $1::jsonb`, table,
	), filterBody, raw)
	if err != nil {
		return domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), domain.ErrUpdateMiss)
	}
	return nil
}

func (g *PgGateway) Delete(ctx context.Context, collectionName string, filter Filter) error {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return err
	}
	filterBody, err := json.Marshal(filter)
	if err != nil {
		return err
	}
	tag, err := g.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE doc @> $1::jsonb`, table), filterBody)
	if err != nil {
		return domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewStorageError(collectionName, fmt.Sprintf("%v", filter), domain.ErrDeleteMiss)
	}
	return nil
}

func (g *PgGateway) Count(ctx context.Context, collectionName string, filter Filter) (int, error) {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return 0, fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(filter)
	if err != nil {
		return 0, err
	}
	var n int
	err = g.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE doc @> $1::jsonb`, table), body).Scan(&n)
	return n, err
}

// AtomicUpsertInc implements the conditional-increment primitive C2 and C6
// depend on: INSERT ... ON CONFLICT DO UPDATE with a jsonb_set expression
// referencing the row's own prior value, so the increment and the read of
// the post-image happen inside one statement.
func (g *PgGateway) AtomicUpsertInc(ctx context.Context, collectionName string, key string, inc map[string]float64, defaultBody map[string]any) (*Doc, error) {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return nil, err
	}
	if defaultBody == nil {
		defaultBody = map[string]any{}
	}
	initial := make(map[string]any, len(defaultBody)+len(inc))
	for k, v := range defaultBody {
		initial[k] = v
	}
	for field, delta := range inc {
		initial[field] = delta
	}
	initialRaw, err := json.Marshal(initial)
	if err != nil {
		return nil, err
	}

	setExpr := "doc"
	for field, delta := range inc {
		setExpr = fmt.Sprintf(
			`jsonb_set(%s, '{%s}', to_jsonb(COALESCE((%s.doc->>'%s')::numeric, 0) + %f))`,
			setExpr, field, table, field, delta,
		)
	}

	row := g.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET doc = %s, updated_at = now()
		RETURNING key, doc, created_at, updated_at
	`, table, setExpr), key, initialRaw)

	var d Doc
	var raw []byte
	if err := row.Scan(&d.Key, &raw, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, domain.NewStorageError(collectionName, key, err)
	}
	if err := json.Unmarshal(raw, &d.Body); err != nil {
		return nil, err
	}
	return &d, nil
}

// AtomicCounterNext implements the conditional increment-with-wraparound
// primitive behind C2 (spec §4.2). The CASE expression and the INSERT it
// falls back to when the row is absent both run inside one statement.
func (g *PgGateway) AtomicCounterNext(ctx context.Context, collectionName string, key string, field string, start, end int) (int, error) {
	coll, ok := resolveCollection(collectionName)
	if !ok {
		return 0, fmt.Errorf("storage: unknown collection %q", collectionName)
	}
	table, err := g.qualified(coll.table)
	if err != nil {
		return 0, err
	}
	row := g.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, doc) VALUES ($1, jsonb_build_object($2::text, $3::int))
		ON CONFLICT (key) DO UPDATE SET
			doc = jsonb_set(
				%s.doc, ARRAY[$2],
				to_jsonb(
					CASE WHEN (%s.doc->>$2) IS NULL OR (%s.doc->>$2)::int >= $4
					     THEN $3
					     ELSE (%s.doc->>$2)::int + 1
					END
				)
			),
			updated_at = now()
		RETURNING (doc->>$2)::int
	`, table, table, table, table, table), key, field, start, end)

	var next int
	if err := row.Scan(&next); err != nil {
		return 0, domain.NewStorageError(collectionName, key, err)
	}
	return next, nil
}

// WithTransaction runs fn against a Gateway whose db is the pgx.Tx, so every
// operation fn performs through it participates in the same transaction.
func (g *PgGateway) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Gateway) error) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}
	txGateway := &PgGateway{pool: g.pool, db: txAdapter{tx}, tenantID: g.tenantID}
	if err := fn(ctx, txGateway); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("storage: %w (rollback also failed: %v)", domain.ErrTransactionAborted, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}
