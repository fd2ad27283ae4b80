package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated account ID as a string for use in
// Redis keys, or "anon" before JWTAuth has run.
func currentUserID(c echo.Context) string {
	if id, ok := c.Get(ContextAccountID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
