package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/billiard-reservation/internal/handler"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

// proofBodyLimit leaves room for a 5 MB proof image after base64.
const proofBodyLimit = "8M"

// RegisterCustomer registers the payment page endpoints.  All routes require
// a valid JWT and the customer role.
func RegisterCustomer(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
		limit,
	)
	g.POST("/reservations", h.Submit, echomw.BodyLimit(proofBodyLimit))
	g.GET("/my-reservations", h.ListMine)
	g.GET("/my-reservations/:id", h.GetMine)
}
