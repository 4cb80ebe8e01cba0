package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account-service principal. The OAuth2 password flow issues a
// JWT carrying Sub (this ID, as string), TenantID and IsSuperuser as claims.
type User struct {
	ID           uuid.UUID
	TenantID     string
	Username     string
	PasswordHash string // bcrypt
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Staff is a store-floor operator referenced by carts and terminals. It is
// intentionally separate from User: staff sign in at a terminal with a
// short PIN-like ID, they do not hold JWT sessions.
type Staff struct {
	TenantID  string
	StaffID   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
