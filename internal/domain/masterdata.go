package domain

import "github.com/shopspring/decimal"

// RoundMethod is the rounding policy applied to discount allocation and to
// tax computation. It is process-wide for discounts (ROUND_METHOD_FOR_DISCOUNT)
// and per-rule for taxes.
type RoundMethod string

const (
	RoundFloor  RoundMethod = "Floor"
	RoundHalfUp RoundMethod = "HalfUp"
	RoundCeil   RoundMethod = "Ceil"
)

// Apply rounds v to digit decimal places using m.
func (m RoundMethod) Apply(v decimal.Decimal, digit int32) decimal.Decimal {
	switch m {
	case RoundCeil:
		return v.RoundCeil(digit)
	case RoundFloor:
		return v.RoundFloor(digit)
	default:
		return v.Round(digit)
	}
}

// Item is a master-data product record, read through the per-cart cache
// in internal/masterdata.
type Item struct {
	TenantID             string
	StoreCode            string
	ItemCode             string
	Description          string
	UnitPrice            decimal.Decimal
	TaxCode              string
	CategoryCode         string
	IsDiscountRestricted bool
	ImageURLs            []string
}

// TaxRule describes how one tax_code is computed.
type TaxRule struct {
	TenantID    string
	TaxCode     string
	TaxType     TaxType
	TaxName     string
	Rate        decimal.Decimal
	RoundDigit  int32
	RoundMethod RoundMethod
}

// PaymentMethod is the master record a payment strategy is looked up
// against; it - not the strategy - owns the capability flags.
type PaymentMethod struct {
	TenantID       string
	PaymentCode    string
	Description    string
	CanRefund      bool
	CanDepositOver bool
	CanChange      bool
}

// Category groups items for reporting and button-layout purposes.
type Category struct {
	TenantID     string
	CategoryCode string
	Description  string
}

// ButtonLayoutBook is a terminal's configured grid of item shortcut
// buttons, one per (tenant, store).
type ButtonLayoutBook struct {
	TenantID  string
	StoreCode string
	Name      string
	Buttons   []ButtonLayoutEntry
}

// ButtonLayoutEntry is one cell of a ButtonLayoutBook.
type ButtonLayoutEntry struct {
	Position int
	ItemCode string
	Color    string
}

// SettingsValue scopes one override of a Settings entry to a store, or to
// a store+terminal pair. TerminalNo is nil for a store-wide override;
// StoreCode is empty for the global override.
type SettingsValue struct {
	StoreCode  string
	TerminalNo *int
	Value      string
}

// Settings is a tenant-wide configuration entry with store/terminal-scoped
// overrides, grounded on settings_master_service.py's hierarchical lookup.
type Settings struct {
	TenantID     string
	Name         string
	DefaultValue string
	Values       []SettingsValue
}

// Resolve returns the value that applies for (storeCode, terminalNo),
// trying store+terminal, then store-only, then global overrides in that
// order before falling back to DefaultValue - the same three-tier
// priority settings_master_service.py's get_settings_value_by_name_async
// implements.
func (s *Settings) Resolve(storeCode string, terminalNo int) string {
	matches := func(v SettingsValue, store string, term *int) bool {
		if v.StoreCode != store {
			return false
		}
		if term == nil {
			return v.TerminalNo == nil
		}
		return v.TerminalNo != nil && *v.TerminalNo == *term
	}
	for _, v := range s.Values {
		if matches(v, storeCode, &terminalNo) {
			return v.Value
		}
	}
	for _, v := range s.Values {
		if matches(v, storeCode, nil) {
			return v.Value
		}
	}
	for _, v := range s.Values {
		if matches(v, "", nil) {
			return v.Value
		}
	}
	return s.DefaultValue
}
