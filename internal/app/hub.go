// Package app wires the process-wide singletons spec §9 calls out (the
// storage pool, the JWT secret held by middleware.AuthMiddleware, the
// masterdata HTTP/gRPC client pool, the event bus and its republisher,
// the snapshot scheduler, the websocket hub) to the lazily-built,
// per-tenant service bundle every handler operates against. Each tenant's
// bundle is a fresh storage.Gateway scoped to that tenant's Postgres
// schema plus the repositories/services layered over it - exactly the
// "one logical namespace per tenant" the storage gateway (C1) promises,
// kept here instead of duplicated in every handler.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kugelpos/kugel-backend/internal/auth"
	"github.com/kugelpos/kugel-backend/internal/cart"
	"github.com/kugelpos/kugel-backend/internal/config"
	"github.com/kugelpos/kugel-backend/internal/counter"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
	"github.com/kugelpos/kugel-backend/internal/journal"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
	"github.com/kugelpos/kugel-backend/internal/middleware"
	"github.com/kugelpos/kugel-backend/internal/notify"
	"github.com/kugelpos/kugel-backend/internal/report"
	"github.com/kugelpos/kugel-backend/internal/stock"
	"github.com/kugelpos/kugel-backend/internal/storage"
	"github.com/kugelpos/kugel-backend/internal/terminal"
	"github.com/kugelpos/kugel-backend/internal/websocket"
)

// Tenant bundles every per-tenant collaborator a handler needs, all
// sharing one storage.Gateway scoped to this tenant's schema.
type Tenant struct {
	ID         string
	Gateway    storage.Gateway
	Counters   *counter.Service
	CartRepo   *cart.Repository
	Cart       *cart.Engine
	TermRepo   *terminal.Repository
	Terminal   *terminal.Service
	Masterdata *masterdata.Repository
	StockRepo  *stock.Repository
	Stock      *stock.Ledger
	JournalRepo *journal.Repository
	Journal    *journal.Service
	Report     *report.Service
	AuthRepo   *auth.Repository
	Auth       *auth.Service
}

// Hub owns the process-wide singletons and lazily builds/caches one
// Tenant bundle per tenant ID, amortizing schema provisioning and
// collaborator construction across requests (spec §9: "each has explicit
// init and shutdown hooks... no request handler mutates these after
// init").
type Hub struct {
	Pool     *pgxpool.Pool
	Commons  storage.Gateway
	Cfg      *config.Config
	Bus      *eventbus.LocalBus
	Dedupe   eventbus.Deduper
	Notifier *notify.SlackNotifier
	JWT      *middleware.AuthMiddleware
	Hub      *websocket.Hub

	mdSource    masterdata.Source
	channelPool *masterdata.ChannelPool

	schedules *stock.Repository // commons-scoped schedule storage

	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// New builds the Hub's process-wide collaborators. The masterdata Source
// is HTTP-backed by default; when cfg.MasterdataTransport is "grpc", each
// cart cache built in build gets a Source on a pooled gRPC channel instead
// (see GRPCSourceFor). The gRPC channel pool is built either way.
func New(pool *pgxpool.Pool, cfg *config.Config, jwt *middleware.AuthMiddleware, bus *eventbus.LocalBus, dedupe eventbus.Deduper, notifier *notify.SlackNotifier, hub *websocket.Hub) *Hub {
	commons := storage.NewPgGateway(pool, "")
	h := &Hub{
		Pool: pool, Commons: commons, Cfg: cfg, Bus: bus, Dedupe: dedupe,
		Notifier: notifier, JWT: jwt, Hub: hub,
		mdSource:    masterdata.NewHTTPSource(cfg.MasterdataBaseURL, cfg.GRPCTimeout),
		channelPool: masterdata.NewChannelPool(cfg.GRPCTarget),
		schedules:   stock.NewRepository(commons),
		tenants:     map[string]*Tenant{},
	}
	return h
}

// Schedules exposes the commons-scoped snapshot-schedule repository the
// stock.Scheduler and the schedule-management handlers share.
func (h *Hub) Schedules() *stock.Repository { return h.schedules }

// Shutdown drains the process-wide collaborators this Hub owns that the
// caller's own pool/connection teardown doesn't reach: the gRPC channel
// pool. Called after the schedulers stop and the websocket hub closes,
// before the storage pool is closed, per spec §5's shutdown order.
func (h *Hub) Shutdown() {
	h.channelPool.Shutdown()
}

// ValidateAPIKey implements middleware.TerminalValidator by resolving the
// calling terminal's tenant out of the composite terminal ID and
// delegating to that tenant's own terminal.Service, which is the only
// place that holds the tenant-scoped Repository needed to look up the key.
func (h *Hub) ValidateAPIKey(ctx context.Context, terminalID, apiKey string) (*domain.Terminal, error) {
	tenantID, _, _, err := terminal.ParseTerminalID(terminalID)
	if err != nil {
		return nil, domain.ErrInvalidAPIKey
	}
	tenant, err := h.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return tenant.Terminal.ValidateAPIKey(ctx, terminalID, apiKey)
}

// DeliveryCallback returns an eventbus.Publisher bound to the shared
// commons DeliveryStatus store, for the subscriber-callback HTTP endpoint
// (spec §4.5.2). DeliveryStatus documents live in commons regardless of
// which tenant's cart or terminal produced them, so one callback-only
// Publisher (with no declared subscribers of its own, since it never
// calls Publish) is enough to service every tenant's MarkDelivered calls.
func (h *Hub) DeliveryCallback() *eventbus.Publisher {
	return eventbus.NewPublisher(eventbus.NewRepository(h.Commons), h.Bus, nil)
}

// GRPCSourceFor builds a masterdata.Source backed by the pooled gRPC
// channel for (tenantID, storeCode), per spec §4.3's "gRPC channels...
// are process-global and pooled by (tenant, store); channel creation is
// amortized across requests". HTTPSource is the default transport this
// Hub wires into every cart's cache; this accessor exists for deployments
// that prefer gRPC to the master-data collaborator without needing a
// second Hub implementation.
func (h *Hub) GRPCSourceFor(tenantID, storeCode string) *masterdata.GRPCSource {
	return masterdata.NewGRPCSource(h.channelPool, tenantID, storeCode)
}

// Resolve returns (building and caching on first use) the Tenant bundle
// for tenantID, provisioning its schema if this is the first time this
// process has seen it. EnsureTenantSchema is idempotent (CREATE ... IF
// NOT EXISTS throughout) so a cold cache under concurrent first requests
// just re-provisions harmlessly rather than racing unsafely.
func (h *Hub) Resolve(ctx context.Context, tenantID string) (*Tenant, error) {
	h.mu.RLock()
	t, ok := h.tenants[tenantID]
	h.mu.RUnlock()
	if ok {
		return t, nil
	}

	gateway := storage.NewPgGateway(h.Pool, tenantID)
	if err := gateway.EnsureTenantSchema(ctx, tenantID); err != nil {
		return nil, err
	}

	t = h.build(tenantID, gateway)

	h.mu.Lock()
	h.tenants[tenantID] = t
	h.mu.Unlock()
	return t, nil
}

func (h *Hub) build(tenantID string, gateway storage.Gateway) *Tenant {
	counters := counter.New(gateway)

	subscribers := map[string][]string{
		// "journal" is deliberately absent from TopicTransactionLog's
		// subscriber list: in this single-process topology it is served
		// synchronously by cart.Engine.finalize's JournalWriter, not
		// through the bus, so tracking it here would leave its
		// DeliveryStatus entry permanently pending and make the
		// republisher retry forever for no reason.
		eventbus.TopicTransactionLog: {"stock"},
		eventbus.TopicCashLog:        {"journal"},
		eventbus.TopicOpenCloseLog:   {"journal"},
	}
	ebRepo := eventbus.NewRepository(h.Commons)
	publisher := eventbus.NewPublisher(ebRepo, h.Bus, subscribers)

	termRepo := terminal.NewRepository(gateway)
	termService := terminal.NewService(func(id string) *terminal.TenantContext {
		// id is always tenantID here: the TenantResolver closure is bound
		// to one tenant's own Repository/Counters, never another's.
		return &terminal.TenantContext{Repo: termRepo, Counters: counters}
	}, publisher)

	mdRepo := masterdata.NewRepository(gateway)
	cartRepo := cart.NewRepository(gateway)
	journalRepo := journal.NewRepository(gateway)
	journalService := journal.NewService(journalRepo)

	// Every built-in payment method (cash, card, etc.) is served by
	// cart.DefaultStrategy, which reads its behavior entirely off the
	// resolved domain.PaymentMethod's capability flags; a bare Registry
	// with no overrides is therefore sufficient here.
	registry := cart.NewRegistry()

	cacheTTL := time.Duration(h.Cfg.ItemCacheTTLSeconds) * time.Second
	if !h.Cfg.UseItemCache {
		cacheTTL = 0
	}
	// MASTERDATA_TRANSPORT selects which masterdata.Source backs every
	// cart's cache: the default HTTP collaborator, or the pooled gRPC
	// channel (spec §4.3: "gRPC channels... are process-global and pooled
	// by (tenant, store); channel creation is amortized across requests").
	// Resolved per (tenantID, storeCode) so GRPCSourceFor's pool is
	// actually exercised by cart traffic rather than sitting unused.
	caches := func(tid, storeCode string) *masterdata.Cache {
		if h.Cfg.MasterdataTransport == "grpc" {
			return masterdata.NewCache(h.GRPCSourceFor(tid, storeCode), cacheTTL)
		}
		return masterdata.NewCache(h.mdSource, cacheTTL)
	}

	stockRepo := stock.NewRepository(gateway)
	alerts := stock.NewAlertService(h.Hub, time.Duration(h.Cfg.AlertCooldownSeconds)*time.Second)
	ledger := stock.NewLedger(stockRepo, alerts)

	reportRepo := report.NewRepository(gateway, journalRepo)
	reportService := report.NewService(reportRepo, mdRepo)

	authRepo := auth.NewRepository(gateway)
	authService := auth.NewService(func(tid string) *auth.Repository { return authRepo }, h.JWT)

	engine := cart.NewEngine(cartRepo, gateway, counters, publisher, caches,
		func(ctx context.Context, tid, storeCode string, terminalNo int) (*domain.Terminal, error) {
			return termRepo.Get(ctx, storeCode, terminalNo)
		},
		journalService, registry, h.Cfg.RoundMethodForDiscount).WithNotifier(h.Notifier)

	// Wire the downstream subscribers in-process: a single binary running
	// both the cart engine and its subscribers is a fully conformant
	// topology per spec §5 ("a native-threaded or goroutine-per-request
	// implementation is fully conformant"). "stock" only ever learns of a
	// finalized transaction through this bus subscription. "journal"
	// already received the transaction-log record synchronously inside
	// cart.Engine.finalize (the cart.JournalWriter wired in above,
	// matching spec §4.4.5 step 3's "write the transaction log and a
	// journal record together" in one storage transaction) so it is not
	// re-subscribed to TopicTransactionLog here - doing so would append
	// the same journal record twice. It does subscribe to the cash-log
	// and open/close-log topics, which have no synchronous writer.
	processor := stock.NewProcessor(ledger)
	eventbus.Subscribe(h.Bus, h.Dedupe, publisher.Callback(), eventbus.TopicTransactionLog, "stock", processor.Process, h.Notifier)
	jproc := journal.NewProcessor(journalService, gateway)
	eventbus.Subscribe(h.Bus, h.Dedupe, publisher.Callback(), eventbus.TopicCashLog, "journal", jproc.Process, h.Notifier)
	eventbus.Subscribe(h.Bus, h.Dedupe, publisher.Callback(), eventbus.TopicOpenCloseLog, "journal", jproc.Process, h.Notifier)

	return &Tenant{
		ID: tenantID, Gateway: gateway, Counters: counters,
		CartRepo: cartRepo, Cart: engine,
		TermRepo: termRepo, Terminal: termService,
		Masterdata: mdRepo,
		StockRepo:  stockRepo, Stock: ledger,
		JournalRepo: journalRepo, Journal: journalService,
		Report: reportService,
		AuthRepo: authRepo, Auth: authService,
	}
}
