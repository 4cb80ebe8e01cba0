package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

func newTestDualAuth() *DualAuthMiddleware {
	apiTokenAuth := NewAPITokenAuthMiddleware(&mockTerminalValidator{
		terminal: &domain.Terminal{TenantID: "tenant-001", StoreCode: "30", TerminalNo: 1, APIKey: "secret-key"},
	})
	jwtAuth := NewAuthMiddleware("test-secret", "HS256", time.Hour)
	return NewDualAuthMiddleware(apiTokenAuth, jwtAuth)
}

func TestDualAuth_PrefersAPIKeyWhenPresent(t *testing.T) {
	e := echo.New()
	dualAuth := newTestDualAuth()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts", nil)
	req.Header.Set("X-API-KEY", "secret-key")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("terminal_id")
	c.SetParamValues("tenant-001-30-1")

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "ok")
	}

	if err := dualAuth.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestDualAuth_FallsBackToJWT(t *testing.T) {
	e := echo.New()
	dualAuth := newTestDualAuth()

	token, _, err := dualAuth.jwtAuth.IssueToken(uuid.New(), "tenant-001", false)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "ok")
	}

	if err := dualAuth.Authenticate()(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestDualAuth_MissingCredentials(t *testing.T) {
	e := echo.New()
	dualAuth := newTestDualAuth()

	tests := []struct {
		name       string
		middleware echo.MiddlewareFunc
	}{
		{"Authenticate", dualAuth.Authenticate()},
		{"JWTOnly", dualAuth.JWTOnly()},
		{"APITokenOnly", dualAuth.APITokenOnly()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := func(c echo.Context) error {
				t.Error("handler should not be called")
				return nil
			}

			if err := tt.middleware(handler)(c); err != nil {
				t.Fatalf("expected JSON response, got error: %v", err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestDualAuth_APITokenOnlyRejectsAPIKeyMismatch(t *testing.T) {
	e := echo.New()
	dualAuth := newTestDualAuth()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/carts", nil)
	req.Header.Set("X-API-KEY", "wrong-key")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("terminal_id")
	c.SetParamValues("tenant-001-30-1")

	dualAuth.apiTokenAuth = NewAPITokenAuthMiddleware(&mockTerminalValidator{err: domain.ErrInvalidAPIKey})

	handler := func(c echo.Context) error {
		t.Error("handler should not be called")
		return nil
	}

	if err := dualAuth.APITokenOnly()(handler)(c); err != nil {
		t.Fatalf("expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}
