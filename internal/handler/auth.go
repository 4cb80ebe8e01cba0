package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/auth"
	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// AuthHandler exposes tenant registration and the OAuth2-password-flow
// token endpoint (spec §3, §6).
type AuthHandler struct {
	hub      *app.Hub
	registry *auth.TenantRegistry
}

func NewAuthHandler(hub *app.Hub, registry *auth.TenantRegistry) *AuthHandler {
	return &AuthHandler{hub: hub, registry: registry}
}

type registerTenantBody struct {
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
}

// RegisterTenant handles POST /api/v1/tenants.
func (h *AuthHandler) RegisterTenant(c echo.Context) error {
	var body registerTenantBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "registerTenant", domain.ErrInvalidInput)
	}
	tenantID, err := h.registry.GenerateTenantID(c.Request().Context(), body.TenantID)
	if err != nil {
		return Error(c, "registerTenant", err)
	}
	tenant, err := h.registry.Register(c.Request().Context(), tenantID, body.Name)
	if err != nil {
		return Error(c, "registerTenant", err)
	}
	return Created(c, "registerTenant", tenant)
}

type createUserBody struct {
	TenantID    string `json:"tenantId"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	IsSuperuser bool   `json:"isSuperuser"`
}

// CreateUser handles POST /api/v1/accounts/users (JWT superuser-only).
func (h *AuthHandler) CreateUser(c echo.Context) error {
	if !middleware.IsSuperuser(c) {
		return Error(c, "createUser", domain.ErrForbidden)
	}
	var body createUserBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "createUser", domain.ErrInvalidInput)
	}
	tenant, err := h.hub.Resolve(c.Request().Context(), body.TenantID)
	if err != nil {
		return Error(c, "createUser", err)
	}
	user, err := tenant.Auth.CreateUser(c.Request().Context(), body.TenantID, body.Username, body.Password, body.IsSuperuser)
	if err != nil {
		return Error(c, "createUser", err)
	}
	return Created(c, "createUser", map[string]any{"id": user.ID, "username": user.Username, "tenantId": user.TenantID})
}

type tokenBody struct {
	TenantID string `json:"tenantId" form:"tenant_id"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Token handles POST /api/v1/accounts/token, the OAuth2 password grant.
func (h *AuthHandler) Token(c echo.Context) error {
	var body tokenBody
	if err := c.Bind(&body); err != nil {
		return Error(c, "issueToken", domain.ErrInvalidInput)
	}
	tenant, err := h.hub.Resolve(c.Request().Context(), body.TenantID)
	if err != nil {
		return Error(c, "issueToken", err)
	}
	token, expiresAt, err := tenant.Auth.Login(c.Request().Context(), body.TenantID, body.Username, body.Password)
	if err != nil {
		return Error(c, "issueToken", err)
	}
	return OK(c, "issueToken", map[string]any{
		"accessToken": token,
		"tokenType":   "bearer",
		"expiresAt":   expiresAt,
	})
}

// Me handles GET /api/v1/accounts/me.
func (h *AuthHandler) Me(c echo.Context) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return Error(c, "me", domain.ErrUnauthorized)
	}
	return OK(c, "me", map[string]any{
		"subject":     claims.Subject,
		"tenantId":    claims.TenantID,
		"isSuperuser": claims.IsSuperuser,
	})
}
