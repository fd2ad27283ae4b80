// Package registration implements customer sign-up with an emailed
// one-time code.  The submitted form is parked in a Store until the code is
// verified; only then are the account and customer rows written.
package registration

import (
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/billiard-reservation/internal/utils"
)

// ErrInvalidForm is matched by every *FormError.
var ErrInvalidForm = errors.New("invalid registration form")

// FormError carries the message shown next to the form.
type FormError struct {
	Message string
}

func (e *FormError) Error() string { return e.Message }

func (e *FormError) Unwrap() error { return ErrInvalidForm }

func invalid(msg string) error { return &FormError{Message: msg} }

const (
	minAge          = 13
	birthdateLayout = "2006-01-02"
)

// Form is the sign-up request body.
type Form struct {
	FirstName       string `json:"first_name"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name"`
	Birthdate       string `json:"birthdate"`
	Gender          string `json:"gender"`
	Email           string `json:"email"`
	ContactNumber   string `json:"contact_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Normalize trims every field, lower-cases the email and strips
// punctuation from the contact number.
func (f *Form) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.MiddleName = strings.TrimSpace(f.MiddleName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Birthdate = strings.TrimSpace(f.Birthdate)
	f.Gender = strings.TrimSpace(f.Gender)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.ContactNumber = digitsOnly(f.ContactNumber)
}

// Validate checks the form as submitted at now.  It does not check that the
// email is unused; the service does that against the account store.
func (f Form) Validate(now time.Time) error {
	if f.FirstName == "" || f.LastName == "" || f.Email == "" ||
		f.ContactNumber == "" || f.Birthdate == "" || f.Gender == "" {
		return invalid("Please fill in all required fields")
	}
	if !looksLikeEmail(f.Email) {
		return invalid("Please enter a valid email address")
	}
	switch utils.CheckNewPassword(f.Password, f.ConfirmPassword) {
	case utils.ErrPasswordMismatch:
		return invalid("Passwords do not match")
	case utils.ErrPasswordTooShort:
		return invalid("Password must be at least 6 characters long")
	}
	if n := len(digitsOnly(f.ContactNumber)); n < 10 || n > 11 {
		return invalid("Please enter a valid contact number")
	}
	born, err := time.Parse(birthdateLayout, f.Birthdate)
	if err != nil {
		return invalid("Please enter a valid birthdate")
	}
	// age is the plain difference of calendar years
	if now.Year()-born.Year() < minAge {
		return invalid("You must be at least 13 years old to register")
	}
	return nil
}

// Username derives the customer username from the email's local part.
func (f Form) Username() string {
	local, _, _ := strings.Cut(f.Email, "@")
	return local
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func looksLikeEmail(s string) bool {
	local, domain, ok := strings.Cut(s, "@")
	return ok && local != "" && strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t")
}
