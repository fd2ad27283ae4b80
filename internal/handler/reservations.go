package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/booking"
	"github.com/iliyamo/billiard-reservation/internal/model"
	"github.com/iliyamo/billiard-reservation/internal/repository"
)

// Booker submits and lists a customer's reservations.  *booking.Service
// satisfies it.
type Booker interface {
	Submit(ctx context.Context, accountID uint64, req booking.Request) (booking.Submission, error)
	ListMine(ctx context.Context, accountID uint64) ([]model.Reservation, error)
	GetMine(ctx context.Context, accountID, id uint64) (model.Reservation, error)
}

// ReservationHandler serves the customer payment page.
type ReservationHandler struct {
	Booking Booker
}

func NewReservationHandler(b Booker) *ReservationHandler {
	return &ReservationHandler{Booking: b}
}

// Submit handles POST /v1/reservations.  It returns 201 with the created
// reservations, proofs omitted.
func (h *ReservationHandler) Submit(c echo.Context) error {
	id, ok := accountID(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req booking.Request
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sub, err := h.Booking.Submit(ctx, id, req)
	if err != nil {
		switch {
		case booking.IsClientError(err):
			return errorJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrConflict):
			return errorJSON(c, http.StatusConflict, "reservation could not be saved, please try again")
		}
		c.Logger().Errorf("submit reservation for %d: %v", id, err)
		return errorJSON(c, http.StatusInternalServerError, "failed to submit reservation")
	}
	return c.JSON(http.StatusCreated, sub)
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	id, ok := accountID(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Booking.ListMine(ctx, id)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to fetch reservations")
	}
	if items == nil {
		items = []model.Reservation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetMine handles GET /v1/my-reservations/:id.  The payment proof is
// included so the customer can review what was uploaded.
func (h *ReservationHandler) GetMine(c echo.Context) error {
	uid, ok := accountID(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return errorJSON(c, http.StatusBadRequest, "invalid reservation id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Booking.GetMine(ctx, uid, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errorJSON(c, http.StatusNotFound, "reservation not found")
	case errors.Is(err, repository.ErrForbidden):
		return errorJSON(c, http.StatusForbidden, "forbidden")
	case err != nil:
		return errorJSON(c, http.StatusInternalServerError, "failed to fetch reservation")
	}
	return c.JSON(http.StatusOK, res)
}
