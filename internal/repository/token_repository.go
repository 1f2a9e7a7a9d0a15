package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/invoice-api/internal/model"
)

// TokenRepo persists refresh tokens by hash.  A row is live while
// expires_at is in the future; consuming or revoking a token deletes it.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token row.
func (r *TokenRepo) Store(ctx context.Context, t model.RefreshToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		t.UserID, t.TokenHash, t.ExpiresAt)
	return err
}

// Consume deletes the live row matching tokenHash in a single statement and
// reports whether this call was the one that removed it.  Concurrent callers
// with the same hash race on the row lock; exactly one sees a deleted row.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=? AND expires_at>?",
		tokenHash, now.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes the row for tokenHash whether or not it has expired.
// Deleting an absent token is not an error.
func (r *TokenRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// PurgeExpired drops the user's dead rows; they are already invalid, this
// only keeps the table from growing with every login.
func (r *TokenRepo) PurgeExpired(ctx context.Context, userID uint64, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND expires_at<=?", userID, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
