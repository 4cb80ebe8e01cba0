// Package auth implements the account service (spec §6): the OAuth2
// password flow at POST /accounts/token, bcrypt-hashed credential storage,
// and tenant registration's random tenant-ID minting.
package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const usersCollection = "users"

// Repository persists domain.User within a tenant's own schema, mirroring
// the original's per-tenant user_accounts collection
// (kugel_common settings.DB_COLLECTION_USER_ACCOUNTS).
type Repository struct {
	gateway storage.Gateway
}

func NewRepository(gateway storage.Gateway) *Repository {
	return &Repository{gateway: gateway}
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	doc, err := r.gateway.Get(ctx, usersCollection, storage.Filter{"username": username})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrUserNotFound
	}
	return docToUser(doc.Body), nil
}

func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.gateway.Create(ctx, usersCollection, u.ID.String(), userToDoc(u))
}

func userToDoc(u *domain.User) map[string]any {
	return map[string]any{
		"id":            u.ID.String(),
		"tenant_id":     u.TenantID,
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"is_superuser":  u.IsSuperuser,
	}
}

func docToUser(m map[string]any) *domain.User {
	id, _ := uuid.Parse(asString(m["id"]))
	return &domain.User{
		ID:           id,
		TenantID:     asString(m["tenant_id"]),
		Username:     asString(m["username"]),
		PasswordHash: asString(m["password_hash"]),
		IsSuperuser:  asBool(m["is_superuser"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
