package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// HTTPSource resolves master-data entities by calling the master-data
// service's own HTTP API. It is the cart engine's default collaborator;
// GRPCSource (grpc_source.go) is an alternative wired the same way.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource builds an HTTPSource with a process-global client honoring
// idle-connection limits, per spec §5's shared-resource policy.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMasterDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrItemNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", domain.ErrMasterDataUnavailable, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *HTTPSource) GetItem(ctx context.Context, tenantID, storeCode, itemCode string) (*domain.Item, error) {
	var item domain.Item
	if err := s.getJSON(ctx, fmt.Sprintf("/api/v1/tenants/%s/stores/%s/items/%s", tenantID, storeCode, itemCode), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *HTTPSource) GetTaxRule(ctx context.Context, tenantID, taxCode string) (*domain.TaxRule, error) {
	var rule domain.TaxRule
	if err := s.getJSON(ctx, fmt.Sprintf("/api/v1/tenants/%s/taxes/%s", tenantID, taxCode), &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *HTTPSource) GetPaymentMethod(ctx context.Context, tenantID, paymentCode string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	if err := s.getJSON(ctx, fmt.Sprintf("/api/v1/tenants/%s/payments/%s", tenantID, paymentCode), &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

func (s *HTTPSource) GetCategory(ctx context.Context, tenantID, categoryCode string) (*domain.Category, error) {
	var cat domain.Category
	if err := s.getJSON(ctx, fmt.Sprintf("/api/v1/tenants/%s/categories/%s", tenantID, categoryCode), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}
