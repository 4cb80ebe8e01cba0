package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// TenantResolver opens the Repository scoped to tenantID's own schema,
// the same per-tenant dispatch shape internal/terminal.TenantResolver
// uses, since user accounts live inside the tenant's own namespace
// (account.py's get_user_collection).
type TenantResolver func(tenantID string) *Repository

// Service implements the account service's OAuth2 password grant and
// credential management (spec §6), grounded on
// account/app/dependencies/auth.py.
type Service struct {
	resolve TenantResolver
	jwt     *middleware.AuthMiddleware
}

func NewService(resolve TenantResolver, jwt *middleware.AuthMiddleware) *Service {
	return &Service{resolve: resolve, jwt: jwt}
}

// Login verifies username/password against tenantID's user store and, on
// success, issues a signed JWT carrying sub/tenant_id/is_superuser/exp.
func (s *Service) Login(ctx context.Context, tenantID, username, password string) (token string, expiresAt time.Time, err error) {
	repo := s.resolve(tenantID)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", time.Time{}, domain.ErrInvalidPassword
		}
		return "", time.Time{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", time.Time{}, domain.ErrInvalidPassword
	}
	return s.jwt.IssueToken(user.ID, user.TenantID, user.IsSuperuser)
}

// CreateUser hashes password with bcrypt and stores a new account.
func (s *Service) CreateUser(ctx context.Context, tenantID, username, password string, isSuperuser bool) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		TenantID: tenantID, Username: username, PasswordHash: string(hash),
		IsSuperuser: isSuperuser, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.resolve(tenantID).Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AuthenticateSuperuser looks up username within tenantID and reports
// whether the account is a superuser.
//
// Per spec §9's Open Question, account.py's authenticate_superuser
// dereferences the fetched document before checking it for nil ("if
// superuser_info is None" comes *after* UserAccountInDB(**superuser_dict)
// has already unpacked a possibly-empty dict). This implementation checks
// the not-found error first and never constructs a *domain.User from a
// nil lookup.
func (s *Service) AuthenticateSuperuser(ctx context.Context, tenantID, username string) (*domain.User, error) {
	user, err := s.resolve(tenantID).GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.IsSuperuser {
		return nil, domain.ErrForbidden
	}
	return user, nil
}
