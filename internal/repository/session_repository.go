package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/threatpulse/securesoc/internal/model"
)

// SessionRepo persists and validates sessions (single 'token_hash' column).
// Policy: one active session per account. Create deletes any prior rows for
// the account inside the same transaction, so a new sign-in invalidates every
// earlier device.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create replaces the account's sessions with a single new row.
func (r *SessionRepo) Create(ctx context.Context, accountID, tokenHash string, issued, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE account_id=?", accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (account_id, token_hash, issued_at, expires_at) VALUES (?,?,?,?)",
		accountID, tokenHash, issued, exp); err != nil {
		return err
	}
	return tx.Commit()
}

// Validate returns the owning account ID if a non-revoked, non-expired
// session exists for the token hash.
func (r *SessionRepo) Validate(ctx context.Context, tokenHash string) (string, error) {
	s, err := r.getByHash(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	if s.RevokedAt != nil || time.Now().UTC().After(s.ExpiresAt) {
		return "", sql.ErrNoRows
	}
	return s.AccountID, nil
}

func (r *SessionRepo) getByHash(ctx context.Context, tokenHash string) (model.Session, error) {
	var (
		s       model.Session
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, account_id, token_hash, issued_at, expires_at, revoked_at FROM sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.IssuedAt, &s.ExpiresAt, &revoked)
	if err != nil {
		return model.Session{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, nil
}

// RevokeAllForAccount revokes every active session an account holds.
func (r *SessionRepo) RevokeAllForAccount(ctx context.Context, accountID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE account_id=? AND revoked_at IS NULL",
		accountID)
	return err
}
