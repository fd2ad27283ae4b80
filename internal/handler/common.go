// Package handler exposes the HTTP handlers.  Every handler bounds its
// store calls with requestTimeout and reports failures as
// {"error": "..."}.
package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/checkin"
	"github.com/iliyamo/billiard-reservation/internal/middleware"
)

const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// accountID returns the account stored by middleware.JWTAuth.
func accountID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(middleware.ContextAccountID).(uint64)
	return id, ok && id != 0
}

func accountRole(c echo.Context) string {
	role, _ := c.Get(middleware.ContextRole).(string)
	return role
}

// operatorFrom builds the check-in operator from the token claims.
func operatorFrom(c echo.Context) (checkin.Operator, bool) {
	id, ok := accountID(c)
	if !ok {
		return checkin.Operator{}, false
	}
	return checkin.Operator{AccountID: id, Role: accountRole(c)}, true
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}
