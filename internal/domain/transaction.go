package domain

import "time"

// TransactionType is the signed integer code carried on every transaction
// log, per spec §3. Only NormalSalesCancel is negative; void and return
// codes are positive. Stock processing derives its quantity sign from its
// own per-type table (see internal/stock), not from the code's sign.
type TransactionType int

const (
	TransactionTypeNormalSales       TransactionType = 101
	TransactionTypeNormalSalesCancel TransactionType = -101
	TransactionTypeReturnSales       TransactionType = 102
	TransactionTypeVoidSales         TransactionType = 201
	TransactionTypeVoidReturn        TransactionType = 202
	TransactionTypeOpen              TransactionType = 301
	TransactionTypeClose             TransactionType = 302
	TransactionTypeCashIn            TransactionType = 401
	TransactionTypeCashOut           TransactionType = 402
)

// TransactionLog is the immutable record produced on cart finalization. It
// is never mutated after creation; void/return state lives alongside it in
// TransactionStatus and must be overlaid by readers.
type TransactionLog struct {
	TenantID         string
	StoreCode        string
	TerminalNo       int
	TransactionNo    int
	ReceiptNo        int
	TransactionType  TransactionType
	BusinessDate     string
	OpenCounter      int
	BusinessCounter  int
	GenerateDateTime time.Time
	Origin           *CartOrigin
	StaffID          string
	LineItems        []CartLineItem
	Payments         []Payment
	Taxes            []Tax
	Sales            SalesRollup

	// IsVoided/IsRefunded are convenience fields populated by joining
	// against TransactionStatus at read time; they are never persisted
	// as part of this record's own write path.
	IsVoided   bool
	IsRefunded bool
}

// TransactionStatus is the out-of-band mutation record for a transaction
// log, created lazily on the first void or return. The original log
// document is never rewritten; readers must overlay this record onto it.
type TransactionStatus struct {
	TenantID      string
	StoreCode     string
	TerminalNo    int
	TransactionNo int

	IsVoided        bool
	VoidTransactionNo *int
	VoidDateTime      *time.Time
	VoidStaffID       *string

	IsRefunded          bool
	ReturnTransactionNo *int
	ReturnDateTime      *time.Time
	ReturnStaffID       *string
}

// MarkVoided applies a void and leaves any existing refund fields as they
// are.
func (s *TransactionStatus) MarkVoided(voidTransactionNo int, staffID string, now time.Time) {
	s.IsVoided = true
	s.VoidTransactionNo = &voidTransactionNo
	s.VoidDateTime = &now
	s.VoidStaffID = &staffID
}

// MarkRefunded applies a return, preserving any existing void fields.
func (s *TransactionStatus) MarkRefunded(returnTransactionNo int, staffID string, now time.Time) {
	s.IsRefunded = true
	s.ReturnTransactionNo = &returnTransactionNo
	s.ReturnDateTime = &now
	s.ReturnStaffID = &staffID
}

// ResetRefund clears refund fields; used when a return transaction is
// itself voided.
func (s *TransactionStatus) ResetRefund() {
	s.IsRefunded = false
	s.ReturnTransactionNo = nil
	s.ReturnDateTime = nil
	s.ReturnStaffID = nil
}
