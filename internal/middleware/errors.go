package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// authResponse mirrors the handler package's ApiResponse envelope (spec
// §6) without importing it, since middleware sits below handler in the
// dependency graph.
type authResponse struct {
	Success   bool   `json:"success"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	UserError string `json:"userError,omitempty"`
	Operation string `json:"operation"`
}

// unauthorizedError creates an unauthorized error response
func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, authResponse{
		Success:   false,
		Code:      http.StatusUnauthorized,
		Message:   detail,
		UserError: "認証に失敗しました",
		Operation: c.Request().URL.Path,
	})
}
