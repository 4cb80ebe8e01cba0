package middleware

import (
	"github.com/labstack/echo/v4"
)

// DualAuthMiddleware accepts either authentication mechanism spec §6
// describes: a terminal's X-API-KEY header, or an admin's bearer JWT. It
// tries the API key first since it is the cheaper, more specific check.
type DualAuthMiddleware struct {
	apiTokenAuth *APITokenAuthMiddleware
	jwtAuth      *AuthMiddleware
}

// NewDualAuthMiddleware creates a new DualAuthMiddleware.
func NewDualAuthMiddleware(apiTokenAuth *APITokenAuthMiddleware, jwtAuth *AuthMiddleware) *DualAuthMiddleware {
	return &DualAuthMiddleware{apiTokenAuth: apiTokenAuth, jwtAuth: jwtAuth}
}

// Authenticate returns a middleware that accepts a terminal API key when
// present, otherwise requires a valid JWT.
func (m *DualAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-API-KEY") != "" {
				return m.apiTokenAuth.Authenticate()(next)(c)
			}
			return m.jwtAuth.Authenticate()(next)(c)
		}
	}
}

// APITokenOnly returns a middleware that only accepts the terminal API key.
func (m *DualAuthMiddleware) APITokenOnly() echo.MiddlewareFunc {
	return m.apiTokenAuth.Authenticate()
}

// JWTOnly returns a middleware that only accepts the admin bearer JWT.
func (m *DualAuthMiddleware) JWTOnly() echo.MiddlewareFunc {
	return m.jwtAuth.Authenticate()
}
