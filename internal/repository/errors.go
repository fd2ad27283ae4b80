// Package repository holds the MySQL data access for accounts, profiles,
// billiard tables, reservations and refresh tokens.  Lookups that find no
// row return sql.ErrNoRows; the sentinels below cover the remaining cases
// handlers need to tell apart.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicated reservation number.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when an account with the same email exists.
var ErrEmailExists = errors.New("email already exists")

// ErrUnknownRole is returned for a role without a profile table.
var ErrUnknownRole = errors.New("unknown role")
