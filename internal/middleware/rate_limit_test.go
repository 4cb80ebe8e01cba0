package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 5) // 10 per minute, burst of 5
	defer rl.Stop()

	terminalID := "tenant-001-30-1"

	for i := 0; i < 5; i++ {
		if !rl.Allow(terminalID) {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow(terminalID) {
		t.Error("6th request should be rate limited")
	}
}

func TestRateLimiter_DifferentTerminals(t *testing.T) {
	rl := NewRateLimiterWithConfig(10, 3)
	defer rl.Stop()

	terminal1 := "tenant-001-30-1"
	terminal2 := "tenant-001-30-2"

	for i := 0; i < 3; i++ {
		if !rl.Allow(terminal1) {
			t.Errorf("terminal1 request %d should be allowed", i+1)
		}
	}

	if rl.Allow(terminal1) {
		t.Error("terminal1 should be rate limited")
	}

	for i := 0; i < 3; i++ {
		if !rl.Allow(terminal2) {
			t.Errorf("terminal2 request %d should be allowed", i+1)
		}
	}
}

func TestRateLimitMiddleware_SkipsNonTerminalRequests(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(1, 1)
	defer rl.Stop()

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	// No terminal_id in context (JWT-authenticated request) - never throttled.
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitMiddleware_RateLimitsTerminal(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(10, 2) // small burst for testing
	defer rl.Stop()

	terminalID := "tenant-001-30-1"

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	newTerminalContext := func() echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/carts", nil)
		rec := httptest.NewRecorder()
		ctx := context.WithValue(req.Context(), TerminalIDKey, terminalID)
		c := e.NewContext(req.WithContext(ctx), rec)
		return c
	}

	for i := 0; i < 2; i++ {
		c := newTerminalContext()
		if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		rec := c.Response().Writer.(*httptest.ResponseRecorder)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") == "" {
			t.Errorf("request %d: expected X-RateLimit-Limit header", i+1)
		}
	}

	c := newTerminalContext()
	if err := RateLimitMiddleware(rl)(handler)(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}
