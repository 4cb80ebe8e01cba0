package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TerminalStatus is the lifecycle state of a terminal session.
type TerminalStatus string

const (
	TerminalStatusIdle     TerminalStatus = "Idle"
	TerminalStatusOpened   TerminalStatus = "Opened"
	TerminalStatusClosed   TerminalStatus = "Closed"
	TerminalStatusSignedin TerminalStatus = "Signedin"
)

// Counter types tracked per terminal by the counter service (C2).
const (
	CounterTypeReceiptNo     = "receipt_no"
	CounterTypeTransactionNo = "transaction_no"
)

// Terminal is addressed by (TenantID, StoreCode, TerminalNo); TerminalID is
// the derived "tenant-store-no" composite key used throughout the cart and
// event layers.
type Terminal struct {
	TenantID        string
	StoreCode       string
	TerminalNo      int
	FunctionMode    string
	Status          TerminalStatus
	BusinessDate    string
	OpenCounter     int
	BusinessCounter int
	StaffID         string
	APIKey          string
	InitialAmount   decimal.Decimal
	PhysicalAmount  decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TerminalID returns the derived composite identifier used to key carts,
// counters and events to this terminal.
func (t *Terminal) TerminalID() string {
	return fmt.Sprintf("%s-%s-%d", t.TenantID, t.StoreCode, t.TerminalNo)
}

// TerminalCounter is the rollover-bounded sequence document consumed by C2.
// Count is keyed by CounterType on the same document so receipt and
// transaction numbers cycle independently per terminal.
type TerminalCounter struct {
	TerminalID string
	Counts     map[string]int
	UpdatedAt  time.Time
}
