package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Journal is the receipt/journal-text record kept alongside every
// transaction log, cash in/out, and terminal open/close event, per
// spec §4.4.5 step 3 and the C5 "journal" subscriber. It is a write-once
// record: journal text is never edited after the fact, only re-read.
type Journal struct {
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
	Amount           decimal.Decimal
	Quantity         decimal.Decimal
	StaffID          string
	JournalText      string
	ReceiptText      string
}

// JournalQuery narrows ListJournals; zero-valued fields are not applied
// as filters. Ranges are inclusive; a zero time.Time or int bound means
// "unbounded on that side".
type JournalQuery struct {
	StoreCode              string
	Terminals               []int
	TransactionTypes         []TransactionType
	BusinessDateFrom        string
	BusinessDateTo          string
	GenerateDateTimeFrom    time.Time
	GenerateDateTimeTo      time.Time
	ReceiptNoFrom           int
	ReceiptNoTo             int
	Keywords                []string
}
