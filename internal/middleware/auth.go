package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	ClaimsKey      contextKey = "claims"
	SubjectKey     contextKey = "subject"
	TenantIDKey    contextKey = "tenant_id"
	IsSuperuserKey contextKey = "is_superuser"
)

// Claims carries the OAuth2-password-flow JWT payload this system issues
// for itself (spec §6): sub, tenant_id, is_superuser, exp.
type Claims struct {
	TenantID    string `json:"tenant_id"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates JWTs signed with the process-wide SECRET_KEY and
// issues new ones for the /accounts/token password grant.
type AuthMiddleware struct {
	secretKey   []byte
	algorithm   string
	tokenExpiry time.Duration
}

// NewAuthMiddleware builds an AuthMiddleware around the shared secret.
func NewAuthMiddleware(secretKey, algorithm string, tokenExpiry time.Duration) *AuthMiddleware {
	if algorithm == "" {
		algorithm = "HS256"
	}
	return &AuthMiddleware{secretKey: []byte(secretKey), algorithm: algorithm, tokenExpiry: tokenExpiry}
}

// IssueToken mints a signed JWT for the given subject, the OAuth2 password
// grant response body's access_token.
func (m *AuthMiddleware) IssueToken(subject uuid.UUID, tenantID string, isSuperuser bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.tokenExpiry)
	claims := Claims{
		TenantID:    tenantID,
		IsSuperuser: isSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.GetSigningMethod(m.algorithm), claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *AuthMiddleware) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, err
	}
	return claims, nil
}

// Authenticate returns an Echo middleware that validates the bearer JWT and
// injects its claims into the request context.
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "invalid authorization header format")
			}

			claims, err := m.parse(parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("jwt validation failed")
				return unauthorizedError(c, "invalid token")
			}

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, claims)
			ctx = context.WithValue(ctx, SubjectKey, claims.Subject)
			ctx = context.WithValue(ctx, TenantIDKey, claims.TenantID)
			ctx = context.WithValue(ctx, IsSuperuserKey, claims.IsSuperuser)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetClaims extracts the validated claims from the context.
func GetClaims(c echo.Context) *Claims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*Claims); ok {
		return claims
	}
	return nil
}

// GetTenantID extracts the authenticated tenant ID from the context.
func GetTenantID(c echo.Context) string {
	if v, ok := c.Request().Context().Value(TenantIDKey).(string); ok {
		return v
	}
	return ""
}

// GetSubject extracts the JWT subject (user ID string) from the context.
func GetSubject(c echo.Context) string {
	if v, ok := c.Request().Context().Value(SubjectKey).(string); ok {
		return v
	}
	return ""
}

// IsSuperuser reports whether the authenticated principal is a superuser.
// Per spec §9's Open Question, null/absence is checked before any
// dereference - there is nothing here to dereference unsafely, by design.
func IsSuperuser(c echo.Context) bool {
	if v, ok := c.Request().Context().Value(IsSuperuserKey).(bool); ok {
		return v
	}
	return false
}
