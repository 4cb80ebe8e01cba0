// Package terminal implements terminal lifecycle management: creation,
// sign-in, open/close, and cash movements. Each lifecycle transition that
// spec.md treats as its own transaction type runs through the same
// counter-allocation and event-publish path a cart finalization does,
// just against the open/close and cash-log topics instead of the
// transaction-log topic.
package terminal

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/counter"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/eventbus"
)

// TenantContext bundles the per-tenant collaborators a terminal
// operation needs: a Repository and a counter.Service opened against
// that tenant's schema.
type TenantContext struct {
	Repo     *Repository
	Counters *counter.Service
}

// TenantResolver opens (or returns a cached) TenantContext for tenantID.
// API-key authenticated requests only learn the tenant by parsing it out
// of the terminal_id path parameter (see ParseTerminalID), which is
// exactly why terminal_id is defined as a tenant-prefixed composite key.
type TenantResolver func(tenantID string) *TenantContext

// Service is the terminal lifecycle service and also implements
// middleware.TerminalValidator for X-API-KEY authentication.
type Service struct {
	resolve   TenantResolver
	publisher *eventbus.Publisher
}

func NewService(resolve TenantResolver, publisher *eventbus.Publisher) *Service {
	return &Service{resolve: resolve, publisher: publisher}
}

func (s *Service) Create(ctx context.Context, tenantID, storeCode string, terminalNo int, functionMode string) (*domain.Terminal, error) {
	tc := s.resolve(tenantID)
	if _, err := tc.Repo.Get(ctx, storeCode, terminalNo); err == nil {
		return nil, domain.ErrTerminalAlreadyExists
	} else if err != domain.ErrTerminalNotFound {
		return nil, err
	}
	now := time.Now().UTC()
	t := &domain.Terminal{
		TenantID: tenantID, StoreCode: storeCode, TerminalNo: terminalNo,
		FunctionMode: functionMode, Status: domain.TerminalStatusIdle,
		APIKey: uuid.New().String(), CreatedAt: now, UpdatedAt: now,
	}
	if err := tc.Repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) SignIn(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID string) (*domain.Terminal, error) {
	tc := s.resolve(tenantID)
	t, err := tc.Repo.Get(ctx, storeCode, terminalNo)
	if err != nil {
		return nil, err
	}
	t.StaffID = staffID
	t.Status = domain.TerminalStatusSignedin
	if err := tc.Repo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Open(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID, businessDate string, initialAmount decimal.Decimal) (*domain.Terminal, error) {
	tc := s.resolve(tenantID)
	t, err := tc.Repo.Get(ctx, storeCode, terminalNo)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TerminalStatusOpened {
		return nil, domain.ErrTerminalNotIdle
	}
	t.BusinessDate = businessDate
	t.OpenCounter++
	t.Status = domain.TerminalStatusOpened
	t.StaffID = staffID
	t.InitialAmount = initialAmount
	if err := tc.Repo.Save(ctx, t); err != nil {
		return nil, err
	}
	if err := s.publishLifecycleEvent(ctx, tc, t, eventbus.TopicOpenCloseLog, domain.TransactionTypeOpen, initialAmount); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Close(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID string, physicalAmount decimal.Decimal) (*domain.Terminal, error) {
	tc := s.resolve(tenantID)
	t, err := tc.Repo.Get(ctx, storeCode, terminalNo)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TerminalStatusOpened {
		return nil, domain.ErrTerminalNotOpened
	}
	t.BusinessCounter++
	t.Status = domain.TerminalStatusClosed
	t.StaffID = staffID
	t.PhysicalAmount = physicalAmount
	if err := tc.Repo.Save(ctx, t); err != nil {
		return nil, err
	}
	if err := s.publishLifecycleEvent(ctx, tc, t, eventbus.TopicOpenCloseLog, domain.TransactionTypeClose, physicalAmount); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) CashIn(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID string, amount decimal.Decimal) (*domain.Terminal, error) {
	return s.cashMovement(ctx, tenantID, storeCode, terminalNo, staffID, amount, domain.TransactionTypeCashIn)
}

func (s *Service) CashOut(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID string, amount decimal.Decimal) (*domain.Terminal, error) {
	return s.cashMovement(ctx, tenantID, storeCode, terminalNo, staffID, amount.Neg(), domain.TransactionTypeCashOut)
}

func (s *Service) cashMovement(ctx context.Context, tenantID, storeCode string, terminalNo int, staffID string, signedAmount decimal.Decimal, txType domain.TransactionType) (*domain.Terminal, error) {
	tc := s.resolve(tenantID)
	t, err := tc.Repo.Get(ctx, storeCode, terminalNo)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TerminalStatusOpened {
		return nil, domain.ErrTerminalNotOpened
	}
	t.PhysicalAmount = t.PhysicalAmount.Add(signedAmount)
	t.StaffID = staffID
	if err := tc.Repo.Save(ctx, t); err != nil {
		return nil, err
	}
	if err := s.publishLifecycleEvent(ctx, tc, t, eventbus.TopicCashLog, txType, signedAmount); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, storeCode string, terminalNo int) error {
	tc := s.resolve(tenantID)
	t, err := tc.Repo.Get(ctx, storeCode, terminalNo)
	if err != nil {
		return err
	}
	if t.Status == domain.TerminalStatusOpened {
		return domain.ErrTerminalNotIdle
	}
	return tc.Repo.Delete(ctx, storeCode, terminalNo)
}

// ValidateAPIKey implements middleware.TerminalValidator. terminalID is
// parsed to recover the tenant (see ParseTerminalID) since the caller
// has not been authenticated yet and so cannot be trusted to state its
// own tenant separately.
func (s *Service) ValidateAPIKey(ctx context.Context, terminalID, apiKey string) (*domain.Terminal, error) {
	tenantID, _, _, err := ParseTerminalID(terminalID)
	if err != nil {
		return nil, domain.ErrInvalidAPIKey
	}
	tc := s.resolve(tenantID)
	t, err := tc.Repo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if t.TerminalID() != terminalID {
		return nil, domain.ErrInvalidAPIKey
	}
	return t, nil
}

// ParseTerminalID recovers (tenantID, storeCode, terminalNo) from a
// composite "tenant-store-no" key, the inverse of domain.Terminal.TerminalID.
// storeCode is assumed not to contain '-'.
func ParseTerminalID(terminalID string) (tenantID, storeCode string, terminalNo int, err error) {
	firstDash := strings.Index(terminalID, "-")
	if firstDash < 0 {
		return "", "", 0, domain.ErrInvalidAPIKey
	}
	tenantID = terminalID[:firstDash]
	rest := terminalID[firstDash+1:]
	lastDash := strings.LastIndex(rest, "-")
	if lastDash < 0 {
		return "", "", 0, domain.ErrInvalidAPIKey
	}
	storeCode = rest[:lastDash]
	n, convErr := strconv.Atoi(rest[lastDash+1:])
	if convErr != nil {
		return "", "", 0, domain.ErrInvalidAPIKey
	}
	return tenantID, storeCode, n, nil
}

func (s *Service) publishLifecycleEvent(ctx context.Context, tc *TenantContext, t *domain.Terminal, topic string, txType domain.TransactionType, amount decimal.Decimal) error {
	txNo, err := tc.Counters.Next(ctx, t.TerminalID(), domain.CounterTypeTransactionNo, 1, counter.MaxCounter)
	if err != nil {
		return err
	}
	event := eventbus.TransactionLogEvent{
		TenantID: t.TenantID, StoreCode: t.StoreCode, TerminalNo: t.TerminalNo,
		TransactionNo: txNo, TransactionType: int(txType), BusinessDate: t.BusinessDate,
		OpenCounter: t.OpenCounter, BusinessCounter: t.BusinessCounter,
		GenerateDateTime: time.Now().UTC(), StaffID: t.StaffID,
		Sales: eventbus.SalesRollupWire{TotalAmountWithTax: amount},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = s.publisher.Publish(ctx, topic, payload)
	return err
}
