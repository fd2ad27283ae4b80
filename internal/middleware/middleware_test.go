package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/config"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
	"github.com/iliyamo/billiard-reservation/internal/utils"
)

const secret = "test-secret"

func newServer() *echo.Echo {
	e := echo.New()
	g := e.Group("/staff", middleware.JWTAuth(secret), middleware.RequireRole("front_desk", "manager"))
	g.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"id":   c.Get(middleware.ContextAccountID),
			"role": c.Get(middleware.ContextRole),
		})
	})
	return e
}

func call(t *testing.T, e *echo.Echo, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/staff/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func issue(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	return tok.Token
}

func TestJWTAuthAndRole(t *testing.T) {
	e := newServer()

	if rec := call(t, e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	if rec := call(t, e, "junk"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", rec.Code)
	}
	if rec := call(t, e, issue(t, 3, "customer")); rec.Code != http.StatusForbidden {
		t.Fatalf("customer: status = %d", rec.Code)
	}
	rec := call(t, e, issue(t, 9, "front_desk"))
	if rec.Code != http.StatusOK {
		t.Fatalf("staff: status = %d body=%s", rec.Code, rec.Body)
	}
	if body := rec.Body.String(); body != "{\"id\":9,\"role\":\"front_desk\"}\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestRedisMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	hits := 0
	e.GET("/v1/tables", func(c echo.Context) error {
		hits++
		return c.String(http.StatusOK, "ok")
	},
		middleware.NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
		middleware.NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
	)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		if rec.Header().Get("X-Cache") != "" {
			t.Fatalf("cache header set without redis")
		}
	}
	if hits != 3 {
		t.Fatalf("handler hits = %d, want 3", hits)
	}
}
