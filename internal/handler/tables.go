package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/model"
)

// TableLister lists the billiard table catalogue.
type TableLister interface {
	List(ctx context.Context) ([]model.BilliardTable, error)
}

// PublicHandler serves unauthenticated browsing.
type PublicHandler struct {
	Tables TableLister
}

func NewPublicHandler(tables TableLister) *PublicHandler {
	return &PublicHandler{Tables: tables}
}

// ListTables handles GET /v1/tables.
func (h *PublicHandler) ListTables(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tables, err := h.Tables.List(ctx)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to fetch tables")
	}
	if tables == nil {
		tables = []model.BilliardTable{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tables})
}
