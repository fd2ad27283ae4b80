package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/billiard-reservation/internal/model"
	"github.com/iliyamo/billiard-reservation/internal/repository"
	"github.com/iliyamo/billiard-reservation/internal/utils"
)

// ProfileStore reads and writes the role-specific profile tables.
type ProfileStore interface {
	GetCustomer(ctx context.Context, accountID uint64) (model.Customer, error)
	GetStaff(ctx context.Context, role string, accountID uint64) (model.Staff, error)
	GetProfile(ctx context.Context, id uint64) (model.Profile, error)
	UpdateCustomer(ctx context.Context, c model.Customer) error
	UpdateStaff(ctx context.Context, role string, s model.Staff) error
}

// PasswordStore is the account access needed to change a password.
type PasswordStore interface {
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	Profiles   ProfileStore
	Accounts   PasswordStore
	Tokens     TokenStore
	BcryptCost int
}

func NewProfileHandler(profiles ProfileStore, accounts PasswordStore, tokens TokenStore, bcryptCost int) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Accounts: accounts, Tokens: tokens, BcryptCost: bcryptCost}
}

type profileResp struct {
	AccountID      uint64          `json:"account_id"`
	Role           string          `json:"role"`
	ProfilePicture *string         `json:"profile_picture"`
	Customer       *model.Customer `json:"customer,omitempty"`
	Staff          *model.Staff    `json:"staff,omitempty"`
	Profile        *model.Profile  `json:"profile,omitempty"`
}

type profileReq struct {
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
}

type passwordReq struct {
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Get handles GET /v1/profile.  Staff rows are returned together with the
// display profile when one exists.
func (h *ProfileHandler) Get(c echo.Context) error {
	id, ok := accountID(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	role := accountRole(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	acct, err := h.Accounts.GetByID(ctx, id)
	if err != nil {
		return profileError(c, err)
	}
	resp := profileResp{AccountID: id, Role: role, ProfilePicture: acct.ProfilePicture}
	if role == model.RoleCustomer {
		cust, err := h.Profiles.GetCustomer(ctx, id)
		if err != nil {
			return profileError(c, err)
		}
		resp.Customer = &cust
		return c.JSON(http.StatusOK, resp)
	}
	staff, err := h.Profiles.GetStaff(ctx, role, id)
	if err != nil {
		return profileError(c, err)
	}
	resp.Staff = &staff
	p, err := h.Profiles.GetProfile(ctx, id)
	switch {
	case err == nil:
		resp.Profile = &p
	case !errors.Is(err, sql.ErrNoRows):
		return profileError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update handles PUT /v1/profile.
func (h *ProfileHandler) Update(c echo.Context) error {
	id, ok := accountID(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" {
		return errorJSON(c, http.StatusBadRequest, "email is required")
	}
	if !strings.Contains(req.Email, "@") {
		return errorJSON(c, http.StatusBadRequest, "invalid email")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	role := accountRole(c)
	var err error
	if role == model.RoleCustomer {
		cust := model.Customer{
			AccountID:     id,
			FirstName:     strings.TrimSpace(req.FirstName),
			LastName:      strings.TrimSpace(req.LastName),
			Email:         req.Email,
			ContactNumber: strings.TrimSpace(req.ContactNumber),
		}
		if m := strings.TrimSpace(req.MiddleName); m != "" {
			cust.MiddleName = &m
		}
		err = h.Profiles.UpdateCustomer(ctx, cust)
	} else {
		err = h.Profiles.UpdateStaff(ctx, role, model.Staff{
			AccountID:     id,
			FirstName:     strings.TrimSpace(req.FirstName),
			LastName:      strings.TrimSpace(req.LastName),
			Email:         req.Email,
			ContactNumber: strings.TrimSpace(req.ContactNumber),
		})
	}
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated"})
}

// ChangePassword handles PUT /v1/profile/password.  Every refresh token of
// the account is revoked afterwards.
func (h *ProfileHandler) ChangePassword(c echo.Context) error {
	id, ok := accountID(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.NewPassword == "" || req.ConfirmPassword == "" {
		return errorJSON(c, http.StatusBadRequest, "new_password/confirm_password required")
	}
	if err := utils.CheckNewPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	hash, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "hash failed")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.UpdatePassword(ctx, id, hash); err != nil {
		return profileError(c, err)
	}
	if err := h.Tokens.RevokeAllForAccount(ctx, id); err != nil {
		c.Logger().Warnf("revoke tokens for %d: %v", id, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func profileError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errorJSON(c, http.StatusNotFound, "profile not found")
	case errors.Is(err, repository.ErrEmailExists):
		return errorJSON(c, http.StatusConflict, "email already exists")
	case errors.Is(err, repository.ErrUnknownRole):
		return errorJSON(c, http.StatusForbidden, "forbidden")
	}
	c.Logger().Errorf("profile: %v", err)
	return errorJSON(c, http.StatusInternalServerError, "database error")
}
