package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

const (
	// TerminalIDKey is the context key for the authenticated terminal's
	// derived composite ID.
	TerminalIDKey contextKey = "terminal_id"
	// TerminalKey is the context key for the full Terminal record.
	TerminalKey contextKey = "terminal"
)

// TerminalValidator validates the (terminal_id, api_key) pair carried by
// the X-API-KEY header against the terminal store, per spec §6.
type TerminalValidator interface {
	ValidateAPIKey(ctx context.Context, terminalID, apiKey string) (*domain.Terminal, error)
}

// APITokenAuthMiddleware authenticates terminal-originated requests via the
// X-API-KEY header paired with a terminal_id path/query parameter.
type APITokenAuthMiddleware struct {
	validator TerminalValidator
}

// NewAPITokenAuthMiddleware creates a new APITokenAuthMiddleware.
func NewAPITokenAuthMiddleware(validator TerminalValidator) *APITokenAuthMiddleware {
	return &APITokenAuthMiddleware{validator: validator}
}

// Authenticate returns an Echo middleware that validates the terminal API
// key and injects the resolved Terminal into the request context.
func (m *APITokenAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get("X-API-KEY")
			if apiKey == "" {
				return unauthorizedError(c, "missing X-API-KEY header")
			}

			terminalID := c.Param("terminal_id")
			if terminalID == "" {
				terminalID = c.QueryParam("terminal_id")
			}
			if terminalID == "" {
				return unauthorizedError(c, "missing terminal_id")
			}

			terminal, err := m.validator.ValidateAPIKey(c.Request().Context(), terminalID, apiKey)
			if err != nil {
				if err == domain.ErrInvalidAPIKey || err == domain.ErrTerminalNotFound {
					log.Debug().Str("terminal_id", terminalID).Msg("terminal api key rejected")
					return unauthorizedError(c, "invalid terminal API key")
				}
				log.Error().Err(err).Msg("terminal api key validation failed")
				return unauthorizedError(c, "token validation failed")
			}

			ctx := context.WithValue(c.Request().Context(), TerminalIDKey, terminalID)
			ctx = context.WithValue(ctx, TenantIDKey, terminal.TenantID)
			ctx = context.WithValue(ctx, TerminalKey, terminal)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetTerminal extracts the authenticated Terminal from the context.
func GetTerminal(c echo.Context) *domain.Terminal {
	if t, ok := c.Request().Context().Value(TerminalKey).(*domain.Terminal); ok {
		return t
	}
	return nil
}

// GetTerminalID extracts the authenticated terminal's composite ID.
func GetTerminalID(c echo.Context) string {
	if v, ok := c.Request().Context().Value(TerminalIDKey).(string); ok {
		return v
	}
	return ""
}
