package repository

import (
	"context"
	"time"

	"github.com/iliyamo/health-tracker/internal/model"
	"github.com/iliyamo/health-tracker/internal/store"
)

// TokenRepo persists/validates refresh tokens keyed by their hash.
type TokenRepo struct {
	db  store.Client
	now func() time.Time
}

func NewTokenRepo(db store.Client) *TokenRepo { return &TokenRepo{db: db, now: time.Now} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.Insert(ctx, RefreshTokensTable, store.Row{
		"token_hash": tokenHash,
		"user_id":    userID,
		"expires_at": exp.UTC(),
		"revoked_at": nil,
		"created_at": r.now().UTC(),
	})
	if err != nil {
		return storeErr("store refresh token", err)
	}
	return nil
}

// ValidateRefresh returns the owning user id if a non-revoked, non-expired
// token exists, ErrNotFound otherwise.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	rows, err := r.db.Select(ctx, RefreshTokensTable, store.Query{
		Filters: []store.Filter{store.Eq("token_hash", tokenHash), store.IsNull("revoked_at")},
		Limit:   1,
	})
	if err != nil {
		return "", storeErr("validate refresh token", err)
	}
	tok, err := first[model.RefreshToken](rows)
	if err != nil {
		return "", err
	}
	if r.now().UTC().After(tok.ExpiresAt) {
		return "", ErrNotFound
	}
	return tok.UserID, nil
}

// RevokeByHash marks a token as revoked. It reports false when the token
// was unknown or already revoked, which lets rotation detect reuse.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	rows, err := r.db.Update(ctx, RefreshTokensTable,
		[]store.Filter{store.Eq("token_hash", tokenHash), store.IsNull("revoked_at")},
		store.Row{"revoked_at": r.now().UTC()})
	if err != nil {
		return false, storeErr("revoke refresh token", err)
	}
	return len(rows) > 0, nil
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.Update(ctx, RefreshTokensTable,
		[]store.Filter{store.Eq("user_id", userID), store.IsNull("revoked_at")},
		store.Row{"revoked_at": r.now().UTC()})
	if err != nil {
		return storeErr("revoke refresh tokens", err)
	}
	return nil
}
