package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	gateway := testutil.NewMockGateway()
	repo := NewRepository(gateway)
	jwt := middleware.NewAuthMiddleware("test-secret", "HS256", time.Hour)
	return NewService(func(tenantID string) *Repository { return repo }, jwt)
}

func TestService_Login_Succeeds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "T0001", "cashier", "hunter2", false)
	require.NoError(t, err)

	token, expiresAt, err := svc.Login(ctx, "T0001", "cashier", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
}

func TestService_Login_RejectsWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "T0001", "cashier", "hunter2", false)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "T0001", "cashier", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestService_Login_UnknownUsernameIsInvalidPassword(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.Login(context.Background(), "T0001", "ghost", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidPassword)
}

func TestService_AuthenticateSuperuser_RejectsNonSuperuser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "T0001", "cashier", "hunter2", false)
	require.NoError(t, err)

	_, err = svc.AuthenticateSuperuser(ctx, "T0001", "cashier")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestService_AuthenticateSuperuser_AcceptsSuperuser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "T0001", "admin", "hunter2", true)
	require.NoError(t, err)

	u, err := svc.AuthenticateSuperuser(ctx, "T0001", "admin")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
}

func TestService_AuthenticateSuperuser_UnknownUserNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.AuthenticateSuperuser(context.Background(), "T0001", "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
