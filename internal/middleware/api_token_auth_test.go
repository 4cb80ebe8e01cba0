package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// mockTerminalValidator implements TerminalValidator for testing.
type mockTerminalValidator struct {
	terminal *domain.Terminal
	err      error
}

func (m *mockTerminalValidator) ValidateAPIKey(ctx context.Context, terminalID, apiKey string) (*domain.Terminal, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.terminal, nil
}

func TestAPITokenAuth_Success(t *testing.T) {
	e := echo.New()
	terminal := &domain.Terminal{TenantID: "tenant-001", StoreCode: "30", TerminalNo: 1, APIKey: "secret-key"}
	validator := &mockTerminalValidator{terminal: terminal}
	m := NewAPITokenAuthMiddleware(validator)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminals/tenant-001-30-1", nil)
	req.Header.Set("X-API-KEY", "secret-key")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("terminal_id")
	c.SetParamValues(terminal.TerminalID())

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		if GetTerminalID(c) != terminal.TerminalID() {
			t.Errorf("expected terminal id %q, got %q", terminal.TerminalID(), GetTerminalID(c))
		}
		if GetTerminal(c) == nil {
			t.Error("expected terminal in context")
		}
		if GetTenantID(c) != "tenant-001" {
			t.Errorf("expected tenant id 'tenant-001', got %q", GetTenantID(c))
		}
		return c.String(http.StatusOK, "OK")
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !handlerCalled {
		t.Error("handler was not called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestAPITokenAuth_MissingHeader(t *testing.T) {
	e := echo.New()
	m := NewAPITokenAuthMiddleware(&mockTerminalValidator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminals/tenant-001-30-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("terminal_id")
	c.SetParamValues("tenant-001-30-1")

	handler := func(c echo.Context) error {
		t.Error("handler should not be called")
		return nil
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestAPITokenAuth_MissingTerminalID(t *testing.T) {
	e := echo.New()
	m := NewAPITokenAuthMiddleware(&mockTerminalValidator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminals", nil)
	req.Header.Set("X-API-KEY", "secret-key")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		t.Error("handler should not be called")
		return nil
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestAPITokenAuth_InvalidKey(t *testing.T) {
	e := echo.New()
	m := NewAPITokenAuthMiddleware(&mockTerminalValidator{err: domain.ErrInvalidAPIKey})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminals/tenant-001-30-1", nil)
	req.Header.Set("X-API-KEY", "wrong-key")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("terminal_id")
	c.SetParamValues("tenant-001-30-1")

	handler := func(c echo.Context) error {
		t.Error("handler should not be called")
		return nil
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestAPITokenAuth_TerminalNotFound(t *testing.T) {
	e := echo.New()
	m := NewAPITokenAuthMiddleware(&mockTerminalValidator{err: domain.ErrTerminalNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminals/tenant-001-30-1", nil)
	req.Header.Set("X-API-KEY", "secret-key")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("terminal_id")
	c.SetParamValues("tenant-001-30-1")

	handler := func(c echo.Context) error {
		t.Error("handler should not be called")
		return nil
	}

	if err := m.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}
