package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/testutil"
)

func TestTenantRegistry_Register_ProvisionsSchemaAndRecordsTenant(t *testing.T) {
	gateway := testutil.NewMockGateway()
	reg := NewTenantRegistry(gateway, gateway)

	tenant, err := reg.Register(context.Background(), "A1234", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "A1234", tenant.TenantID)
	assert.Contains(t, gateway.EnsuredIDs, "A1234")

	_, err = reg.Register(context.Background(), "A1234", "Acme")
	assert.ErrorIs(t, err, domain.ErrTenantAlreadyExists)
}

func TestTenantRegistry_GenerateTenantID_HonorsPreferredWhenAvailable(t *testing.T) {
	gateway := testutil.NewMockGateway()
	reg := NewTenantRegistry(gateway, gateway)

	id, err := reg.GenerateTenantID(context.Background(), "B5678")
	require.NoError(t, err)
	assert.Equal(t, "B5678", id)
}

func TestTenantRegistry_GenerateTenantID_RejectsMalformedPreferred(t *testing.T) {
	gateway := testutil.NewMockGateway()
	reg := NewTenantRegistry(gateway, gateway)

	_, err := reg.GenerateTenantID(context.Background(), "not-a-tenant-id")
	assert.ErrorIs(t, err, domain.ErrInvalidTenantID)
}

func TestTenantRegistry_GenerateTenantID_RandomWhenNoneRequested(t *testing.T) {
	gateway := testutil.NewMockGateway()
	reg := NewTenantRegistry(gateway, gateway)

	id, err := reg.GenerateTenantID(context.Background(), "")
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z][0-9]{4}$`, id)
}
