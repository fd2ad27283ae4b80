package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens in refresh_tokens.  Only the SHA-256
// hash of a token is stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash for an account.
func (r *TokenRepo) StoreRefresh(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (account_id, token_hash, expires_at) VALUES (?,?,?)",
		accountID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owning account if the token is neither
// revoked nor expired, sql.ErrNoRows otherwise.  The token stays usable.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var accountID uint64
	err := r.DB.QueryRowContext(ctx, `SELECT account_id FROM refresh_tokens
	      WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
	      LIMIT 1`, tokenHash).Scan(&accountID)
	if err != nil {
		return 0, err
	}
	return accountID, nil
}

// ConsumeRefresh revokes an active token and returns its account.  Of two
// concurrent calls with the same token only one succeeds; the other, like
// any call with a revoked, expired or unknown token, gets sql.ErrNoRows.
func (r *TokenRepo) ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var accountID uint64
	err = tx.QueryRowContext(ctx, `SELECT account_id FROM refresh_tokens
	      WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
	      LIMIT 1 FOR UPDATE`, tokenHash).Scan(&accountID)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return accountID, nil
}

// RevokeByHash marks a token as revoked.  Unknown tokens are ignored.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForAccount revokes every active token of an account.  It runs
// on logout without a specific token and after a password change.
func (r *TokenRepo) RevokeAllForAccount(ctx context.Context, accountID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE account_id=? AND revoked_at IS NULL",
		accountID)
	return err
}
