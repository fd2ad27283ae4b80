package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/billiard-reservation/internal/database"
	"github.com/iliyamo/billiard-reservation/internal/model"
)

// AccountRepo manages login identities in the accounts table.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "account_id, email, password_hash, role, profile_picture, created_at"

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a   model.Account
		pic sql.NullString
	)
	if err := s.Scan(&a.AccountID, &a.Email, &a.PasswordHash, &a.Role, &pic, &a.CreatedAt); err != nil {
		return model.Account{}, err
	}
	if pic.Valid && pic.String != "" {
		v := pic.String
		a.ProfilePicture = &v
	}
	return a, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_id=? LIMIT 1", id))
}

// EmailExists reports whether an account already uses email.
func (r *AccountRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE email=?", NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// CreateCustomer inserts the account and its customer row in one
// transaction.  acct.PasswordHash must already be hashed.  The new ID is
// written to both structs.
func (r *AccountRepo) CreateCustomer(ctx context.Context, acct *model.Account, cust *model.Customer) error {
	acct.Email = NormalizeEmail(acct.Email)
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

	res, err := tx.ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, role) VALUES (?,?,?)",
		acct.Email, acct.PasswordHash, model.RoleCustomer)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	acct.AccountID = uint64(id)
	acct.Role = model.RoleCustomer
	cust.AccountID = acct.AccountID
	cust.Email = acct.Email

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customer (account_id, first_name, middle_name, last_name, birthdate, gender,
		 email, contact_number, username) VALUES (?,?,?,?,?,?,?,?,?)`,
		cust.AccountID, cust.FirstName, cust.MiddleName, cust.LastName, cust.Birthdate, cust.Gender,
		cust.Email, cust.ContactNumber, cust.Username)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE account_id=?", hash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}
