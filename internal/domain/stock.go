package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is the current on-hand quantity for one item at one store.
// Negative CurrentQuantity is permitted (spec §3).
type Stock struct {
	TenantID        string
	StoreCode       string
	ItemCode        string
	CurrentQuantity decimal.Decimal
	MinimumQuantity decimal.Decimal
	ReorderPoint    decimal.Decimal
	ReorderQuantity decimal.Decimal
	UpdatedAt       time.Time
}

// StockUpdateType classifies the cause of a stock mutation.
type StockUpdateType string

const (
	StockUpdateSale       StockUpdateType = "sale"
	StockUpdateVoid       StockUpdateType = "void"
	StockUpdateReturn     StockUpdateType = "return"
	StockUpdateVoidReturn StockUpdateType = "void_return"
	StockUpdatePurchase   StockUpdateType = "purchase"
	StockUpdateAdjustment StockUpdateType = "adjustment"
	StockUpdateInitial    StockUpdateType = "initial"
)

// StockUpdate is an append-only ledger entry; it is never rewritten.
type StockUpdate struct {
	TenantID        string
	StoreCode       string
	ItemCode        string
	UpdateType      StockUpdateType
	QuantityChange  decimal.Decimal // signed
	BeforeQuantity  decimal.Decimal
	AfterQuantity   decimal.Decimal
	ReferenceID     string
	Timestamp       time.Time
	OperatorID      string
	Note            string
}

// StockSnapshot is a point-in-time copy of every Stock row for one store.
// It carries no stored expiry: retention is evaluated dynamically at reap
// time against the owning SnapshotSchedule's *current* RetentionDays, so a
// retention change takes effect on every existing snapshot immediately
// instead of only on snapshots taken after the change (spec §4.6.3, §8
// scenario 6).
type StockSnapshot struct {
	TenantID         string
	StoreCode        string
	Items            []Stock
	GenerateDateTime time.Time
}

// SnapshotInterval is the schedule cadence for a tenant's stock snapshots.
type SnapshotInterval string

const (
	SnapshotDaily   SnapshotInterval = "daily"
	SnapshotWeekly  SnapshotInterval = "weekly"
	SnapshotMonthly SnapshotInterval = "monthly"
)

// SnapshotSchedule drives the per-tenant cron job in internal/stock.
type SnapshotSchedule struct {
	TenantID         string
	Enabled          bool
	Interval         SnapshotInterval
	Hour             int
	Minute           int
	DayOfWeek        *int // 0=Sunday, required when Interval == weekly
	DayOfMonth       *int // required when Interval == monthly
	RetentionDays    int
	TargetStores     []string // literal "all" enumerates every store
	LastExecutedAt   *time.Time
	NextExecutionAt  *time.Time
}

// AlertType distinguishes the two threshold crossings the alert service
// evaluates after every mutation.
type AlertType string

const (
	AlertTypeLowStock AlertType = "low_stock"
	AlertTypeReorder  AlertType = "reorder"
)

// StockAlert is the JSON message shape pushed to subscribed clients.
type StockAlert struct {
	Type            AlertType       `json:"type"`
	ItemCode        string          `json:"item_code"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	Threshold       decimal.Decimal `json:"threshold"`
	Timestamp       time.Time       `json:"timestamp"`
}
