package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestAuthMiddleware() *AuthMiddleware {
	return NewAuthMiddleware("test-secret", "HS256", time.Hour)
}

func TestAuthMiddleware_IssueAndAuthenticate(t *testing.T) {
	e := echo.New()
	m := newTestAuthMiddleware()

	subject := uuid.New()
	token, expiresAt, err := m.IssueToken(subject, "tenant-001", true)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("expected expiry in the future")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	handler := m.Authenticate()(func(c echo.Context) error {
		captured = c
		return c.String(http.StatusOK, "ok")
	})

	if err := handler(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if GetSubject(captured) != subject.String() {
		t.Errorf("expected subject %q, got %q", subject.String(), GetSubject(captured))
	}
	if GetTenantID(captured) != "tenant-001" {
		t.Errorf("expected tenant_id 'tenant-001', got %q", GetTenantID(captured))
	}
	if !IsSuperuser(captured) {
		t.Error("expected superuser flag true")
	}
}

func TestAuthMiddleware_MissingAuthorizationHeader(t *testing.T) {
	e := echo.New()
	m := newTestAuthMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := m.Authenticate()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if err := handler(c); err != nil {
		t.Fatalf("middleware should write the response directly, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidAuthorizationHeaderFormat(t *testing.T) {
	e := echo.New()
	m := newTestAuthMiddleware()

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "invalid-token"},
		{"wrong scheme", "Basic token123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := m.Authenticate()(func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			})

			if err := handler(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_RejectsTamperedToken(t *testing.T) {
	e := echo.New()
	m := newTestAuthMiddleware()

	token, _, err := m.IssueToken(uuid.New(), "tenant-001", false)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	other := NewAuthMiddleware("different-secret", "HS256", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := other.Authenticate()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 for a token signed with a different secret, got %d", rec.Code)
	}
}

func TestGetClaimsAndDefaults(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if GetClaims(c) != nil {
		t.Error("expected nil claims when none set")
	}
	if GetTenantID(c) != "" {
		t.Error("expected empty tenant id when none set")
	}
	if GetSubject(c) != "" {
		t.Error("expected empty subject when none set")
	}
	if IsSuperuser(c) {
		t.Error("expected superuser false by default")
	}

	claims := &Claims{TenantID: "tenant-xyz", IsSuperuser: true}
	ctx := context.WithValue(c.Request().Context(), ClaimsKey, claims)
	c.SetRequest(c.Request().WithContext(ctx))

	if GetClaims(c) == nil {
		t.Fatal("expected claims to be present")
	}
}
