package model

import "time"

// Account roles.  Customers register themselves; the three staff roles are
// provisioned by the club and may operate the check-in desk.
const (
	RoleCustomer  = "customer"
	RoleFrontDesk = "front_desk"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
)

// StaffRoles lists the roles allowed to check customers in.
func StaffRoles() []string { return []string{RoleFrontDesk, RoleManager, RoleAdmin} }

// IsStaffRole reports whether role belongs to club staff.
func IsStaffRole(role string) bool {
	switch role {
	case RoleFrontDesk, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Account represents a row in the `accounts` table, the login identity
// shared by customers and staff.  Role-specific details live in the
// customer, front_desk, manager and admin tables keyed by AccountID.
//
// Fields:
//
//	AccountID      – primary key identifier.
//	Email          – unique, lower-cased login email.
//	PasswordHash   – bcrypt hash of the password.
//	Role           – customer, front_desk, manager or admin.
//	ProfilePicture – optional base64 avatar.
//	CreatedAt      – creation timestamp.
type Account struct {
	AccountID      uint64
	Email          string
	PasswordHash   string
	Role           string
	ProfilePicture *string
	CreatedAt      time.Time
}

// Customer mirrors the `customer` table.
type Customer struct {
	AccountID     uint64  `json:"account_id"`
	FirstName     string  `json:"first_name"`
	MiddleName    *string `json:"middle_name"`
	LastName      string  `json:"last_name"`
	Birthdate     string  `json:"birthdate"`
	Gender        string  `json:"gender"`
	Email         string  `json:"email"`
	ContactNumber string  `json:"contact_number"`
	Username      string  `json:"username"`
}

// Staff mirrors the front_desk, manager and admin tables, which share the
// same columns.
type Staff struct {
	AccountID     uint64 `json:"account_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
}

// Profile is the display profile for staff members (`profiles` table).  Its
// ID equals the account ID.
type Profile struct {
	ID            uint64 `json:"id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
}
