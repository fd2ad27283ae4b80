package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/handler"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

// RegisterCheckIn registers the front desk check-in screen under
// /v1/checkin.  Any staff role may use it.
func RegisterCheckIn(e *echo.Echo, h *handler.CheckInHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/checkin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.StaffRoles()...),
		limit,
	)
	g.GET("/state", h.State)
	g.GET("/reservations", h.Reservations)
	g.POST("/scanner/start", h.StartScanner)
	g.POST("/scanner/stop", h.StopScanner)
	g.POST("/scan", h.Scan)
	g.POST("/search", h.Search)
	g.POST("/begin", h.Begin)
	g.POST("/confirm", h.Confirm)
	g.POST("/cancel", h.Cancel)
	g.DELETE("/selection", h.ClearSelection)
	g.DELETE("/session", h.EndSession)
}
