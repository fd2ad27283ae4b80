package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/billiard-reservation/internal/database"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

// staffTables maps staff roles to their detail table.  Table names are
// never taken from user input.
var staffTables = map[string]string{
	model.RoleFrontDesk: "front_desk",
	model.RoleManager:   "manager",
	model.RoleAdmin:     "admin",
}

// ProfileRepo reads and updates the role-specific profile tables.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// GetCustomer returns the customer row of an account.
func (r *ProfileRepo) GetCustomer(ctx context.Context, accountID uint64) (model.Customer, error) {
	var (
		c      model.Customer
		middle sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT account_id, first_name, middle_name, last_name, DATE_FORMAT(birthdate, '%Y-%m-%d'),
		        gender, email, contact_number, username
		 FROM customer WHERE account_id=? LIMIT 1`, accountID).Scan(
		&c.AccountID, &c.FirstName, &middle, &c.LastName, &c.Birthdate,
		&c.Gender, &c.Email, &c.ContactNumber, &c.Username)
	if err != nil {
		return model.Customer{}, err
	}
	if middle.Valid && middle.String != "" {
		v := middle.String
		c.MiddleName = &v
	}
	return c, nil
}

// GetStaff returns the staff row for role.
func (r *ProfileRepo) GetStaff(ctx context.Context, role string, accountID uint64) (model.Staff, error) {
	table, ok := staffTables[role]
	if !ok {
		return model.Staff{}, ErrUnknownRole
	}
	var s model.Staff
	err := r.DB.QueryRowContext(ctx,
		"SELECT account_id, first_name, last_name, email, contact_number FROM "+table+" WHERE account_id=? LIMIT 1",
		accountID).Scan(&s.AccountID, &s.FirstName, &s.LastName, &s.Email, &s.ContactNumber)
	return s, err
}

// GetProfile returns the display profile of a staff account.  A missing
// row is reported as sql.ErrNoRows.
func (r *ProfileRepo) GetProfile(ctx context.Context, id uint64) (model.Profile, error) {
	var (
		p       model.Profile
		contact sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, full_name, email, contact_number FROM profiles WHERE id=? LIMIT 1", id).Scan(
		&p.ID, &p.FullName, &p.Email, &contact)
	p.ContactNumber = contact.String
	return p, err
}

// UpdateCustomer writes the editable customer fields and keeps
// accounts.email in sync.
func (r *ProfileRepo) UpdateCustomer(ctx context.Context, c model.Customer) error {
	c.Email = NormalizeEmail(c.Email)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE customer SET first_name=?, middle_name=?, last_name=?, email=?, contact_number=?
			 WHERE account_id=?`,
			c.FirstName, c.MiddleName, c.LastName, c.Email, c.ContactNumber, c.AccountID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return syncAccountEmail(ctx, tx, c.AccountID, c.Email)
	})
}

// UpdateStaff writes the role table, upserts the display profile and keeps
// accounts.email in sync.
func (r *ProfileRepo) UpdateStaff(ctx context.Context, role string, s model.Staff) error {
	table, ok := staffTables[role]
	if !ok {
		return ErrUnknownRole
	}
	s.Email = NormalizeEmail(s.Email)
	fullName := strings.TrimSpace(s.FirstName + " " + s.LastName)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET first_name=?, last_name=?, email=?, contact_number=? WHERE account_id=?",
			s.FirstName, s.LastName, s.Email, s.ContactNumber, s.AccountID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (id, full_name, email, contact_number) VALUES (?,?,?,?)
			 ON DUPLICATE KEY UPDATE full_name=VALUES(full_name), email=VALUES(email),
			 contact_number=VALUES(contact_number)`,
			s.AccountID, fullName, s.Email, s.ContactNumber)
		if err != nil {
			return err
		}
		return syncAccountEmail(ctx, tx, s.AccountID, s.Email)
	})
}

func syncAccountEmail(ctx context.Context, tx *sql.Tx, accountID uint64, email string) error {
	_, err := tx.ExecContext(ctx, "UPDATE accounts SET email=? WHERE account_id=?", email, accountID)
	if database.IsDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

func (r *ProfileRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
