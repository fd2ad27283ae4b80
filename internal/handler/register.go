package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/model"
	"github.com/iliyamo/billiard-reservation/internal/registration"
	"github.com/iliyamo/billiard-reservation/internal/repository"
)

// Registrar runs the email OTP sign-up.  *registration.Service satisfies it.
type Registrar interface {
	Start(ctx context.Context, f registration.Form) (registration.Ticket, error)
	Resend(ctx context.Context, email string) (registration.Ticket, error)
	Verify(ctx context.Context, email, code string) (model.Account, error)
}

// RegisterHandler serves the three sign-up steps.  A verified account is
// logged in straight away through Auth.
type RegisterHandler struct {
	Registration Registrar
	Auth         *AuthHandler
}

func NewRegisterHandler(reg Registrar, auth *AuthHandler) *RegisterHandler {
	return &RegisterHandler{Registration: reg, Auth: auth}
}

type resendReq struct {
	Email string `json:"email"`
}

type verifyReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Start handles POST /v1/auth/register.  It validates the form and emails a
// six digit code.
func (h *RegisterHandler) Start(c echo.Context) error {
	var form registration.Form
	if err := c.Bind(&form); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	// longer than requestTimeout: the email API is in the path
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*requestTimeout)
	defer cancel()

	ticket, err := h.Registration.Start(ctx, form)
	if err != nil {
		return registrationError(c, err)
	}
	return c.JSON(http.StatusAccepted, ticket)
}

// Resend handles POST /v1/auth/register/resend.
func (h *RegisterHandler) Resend(c echo.Context) error {
	var req resendReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return errorJSON(c, http.StatusBadRequest, "email required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*requestTimeout)
	defer cancel()

	ticket, err := h.Registration.Resend(ctx, req.Email)
	if err != nil {
		return registrationError(c, err)
	}
	return c.JSON(http.StatusAccepted, ticket)
}

// Verify handles POST /v1/auth/register/verify.  On success the customer
// account exists and a token pair is returned.
func (h *RegisterHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		return errorJSON(c, http.StatusBadRequest, "email/otp required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	acct, err := h.Registration.Verify(ctx, req.Email, req.OTP)
	if err != nil {
		return registrationError(c, err)
	}
	resp, err := h.Auth.issue(ctx, acct)
	if err != nil {
		// the account exists; the client can still log in
		return c.JSON(http.StatusCreated, echo.Map{"user": userPart{ID: acct.AccountID, Email: acct.Email, Role: acct.Role}})
	}
	return c.JSON(http.StatusCreated, resp)
}

func registrationError(c echo.Context, err error) error {
	var (
		formErr *registration.FormError
		wait    *registration.ResendTooSoonError
	)
	switch {
	case errors.As(err, &formErr):
		return errorJSON(c, http.StatusBadRequest, formErr.Message)
	case errors.As(err, &wait):
		secs := int(math.Ceil(wait.RetryAfter.Seconds()))
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": wait.Error(), "retry_after": secs})
	case errors.Is(err, registration.ErrEmailTaken), errors.Is(err, repository.ErrEmailExists):
		return errorJSON(c, http.StatusConflict, registration.ErrEmailTaken.Error())
	case errors.Is(err, registration.ErrNoPending):
		return errorJSON(c, http.StatusGone, "OTP expired, please register again")
	case errors.Is(err, registration.ErrInvalidCode):
		return errorJSON(c, http.StatusBadRequest, registration.ErrInvalidCode.Error())
	case errors.Is(err, registration.ErrTooManyAttempts):
		return errorJSON(c, http.StatusTooManyRequests, registration.ErrTooManyAttempts.Error())
	case errors.Is(err, registration.ErrSendFailed):
		return errorJSON(c, http.StatusBadGateway, registration.ErrSendFailed.Error())
	}
	c.Logger().Errorf("registration: %v", err)
	return errorJSON(c, http.StatusInternalServerError, "registration failed")
}
