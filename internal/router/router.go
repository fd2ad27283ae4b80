// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/handler"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
)

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers login, token and sign-up routes under /v1/auth,
// throttled by authLimit, and the signed-in account routes under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, r *handler.RegisterHandler, p *handler.ProfileHandler,
	jwtSecret string, authLimit, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", authLimit)
	g.POST("/register", r.Start)
	g.POST("/register/resend", r.Resend)
	g.POST("/register/verify", r.Verify)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// bearer or refresh_token, so no JWT middleware
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), limit)
	auth.GET("/me", a.Me)
	auth.GET("/profile", p.Get)
	auth.PUT("/profile", p.Update)
	auth.PUT("/profile/password", p.ChangePassword)
}

// RegisterPublic registers guest browsing.  The table catalogue is served
// through cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/tables", p.ListTables, cache)
}
