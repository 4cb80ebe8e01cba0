package auth

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/storage"
)

const tenantsCollection = "tenants"

var tenantIDRe = regexp.MustCompile(`^[A-Z][0-9]{4}$`)

// TenantRegistry persists domain.Tenant in the cross-tenant commons
// schema and drives the one-time per-tenant schema provisioning,
// grounded on account_service.py's generate_tenant_id/tenant registration
// flow.
type TenantRegistry struct {
	commons    storage.Gateway
	provisions SchemaProvisioner
}

// SchemaProvisioner is the narrow storage.Gateway surface tenant
// registration needs: creating the new tenant's logical namespace.
type SchemaProvisioner interface {
	EnsureTenantSchema(ctx context.Context, tenantID string) error
}

func NewTenantRegistry(commons storage.Gateway, provisions SchemaProvisioner) *TenantRegistry {
	return &TenantRegistry{commons: commons, provisions: provisions}
}

func (t *TenantRegistry) exists(ctx context.Context, tenantID string) (bool, error) {
	doc, err := t.commons.Get(ctx, tenantsCollection, storage.Filter{"tenant_id": tenantID})
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// GenerateTenantID mints a fresh "one uppercase letter + four digits"
// tenant ID (spec §3), retrying on collision against already-registered
// tenants. If preferred is non-empty and available, it is used as-is
// (account_service.py's "tenant_id that client wants" path).
func (t *TenantRegistry) GenerateTenantID(ctx context.Context, preferred string) (string, error) {
	if preferred != "" {
		if !tenantIDRe.MatchString(preferred) {
			return "", domain.ErrInvalidTenantID
		}
		taken, err := t.exists(ctx, preferred)
		if err != nil {
			return "", err
		}
		if !taken {
			return preferred, nil
		}
		return "", domain.ErrTenantAlreadyExists
	}
	for attempt := 0; attempt < 100; attempt++ {
		candidate := fmt.Sprintf("%c%04d", 'A'+rand.Intn(26), rand.Intn(10000))
		taken, err := t.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("auth: exhausted tenant id candidates")
}

// Register provisions tenantID's schema and records the Tenant in the
// commons registry. Creation is a one-time operation; core flows never
// mutate the Tenant record afterwards (spec §3).
func (t *TenantRegistry) Register(ctx context.Context, tenantID, name string) (*domain.Tenant, error) {
	taken, err := t.exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrTenantAlreadyExists
	}
	if err := t.provisions.EnsureTenantSchema(ctx, tenantID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	tenant := &domain.Tenant{TenantID: tenantID, Name: name, CreatedAt: now, UpdatedAt: now}
	body := map[string]any{
		"tenant_id":  tenant.TenantID,
		"name":       tenant.Name,
		"created_at": tenant.CreatedAt,
		"updated_at": tenant.UpdatedAt,
	}
	if err := t.commons.Create(ctx, tenantsCollection, tenant.TenantID, body); err != nil {
		return nil, err
	}
	return tenant, nil
}
