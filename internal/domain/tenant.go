package domain

import "time"

// Tenant is created once at registration and never mutated by core flows.
// Its ID is the namespace key for the storage gateway (see internal/storage).
type Tenant struct {
	TenantID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is addressed by (TenantID, StoreCode) and tracks the running
// business date, advanced by terminal open operations.
type Store struct {
	TenantID     string
	StoreCode    string
	Name         string
	BusinessDate string // YYYYMMDD
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
