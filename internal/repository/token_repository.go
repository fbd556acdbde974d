package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/parking-reservation/internal/billing"
	"github.com/iliyamo/parking-reservation/internal/database"
)

// ErrInvalidRefresh is returned for unknown, revoked or expired refresh tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenRepo stores refresh tokens by SHA-256 hash only.
type TokenRepo struct {
	db    *database.DB
	clock billing.Clock
}

func NewTokenRepo(db *database.DB, clock billing.Clock) *TokenRepo {
	if clock == nil {
		clock = billing.SystemClock{}
	}
	return &TokenRepo{db: db, clock: clock}
}

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ConsumeRefresh revokes a live token and returns its owner.  The revoke is
// conditional on revoked_at still being NULL, so a token can be spent once
// even when two requests present it at the same time.
func (r *TokenRepo) ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=?"+r.db.ForUpdate(),
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInvalidRefresh
	}
	if err != nil {
		return 0, err
	}
	now := r.clock.Now()
	if revokedAt.Valid || !now.Before(expiresAt) {
		return 0, ErrInvalidRefresh
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		now, tokenHash)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n != 1 {
		return 0, ErrInvalidRefresh
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// RevokeAllForUser ends every live session of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		r.clock.Now(), userID)
	return err
}
