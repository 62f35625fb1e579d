package repository

import (
	"context"
	"database/sql"

	"github.com/threatpulse/securesoc/internal/model"
)

// MFARepo persists MFA enrollments and their single-use backup codes.
type MFARepo struct{ DB *sql.DB }

func NewMFARepo(db *sql.DB) *MFARepo { return &MFARepo{DB: db} }

// Get returns the account's enrollment row, pending or enabled.
func (r *MFARepo) Get(ctx context.Context, accountID string) (model.MFAEnrollment, error) {
	var e model.MFAEnrollment
	err := r.DB.QueryRowContext(ctx,
		"SELECT account_id, secret, enabled, created_at FROM mfa_enrollments WHERE account_id=? LIMIT 1",
		accountID).Scan(&e.AccountID, &e.Secret, &e.Enabled, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return model.MFAEnrollment{}, ErrNotEnrolled
	}
	return e, err
}

// Enabled reports whether the account has an active second factor.
func (r *MFARepo) Enabled(ctx context.Context, accountID string) (bool, error) {
	e, err := r.Get(ctx, accountID)
	if err == ErrNotEnrolled {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Enabled, nil
}

// BeginEnrollment stores a fresh pending secret, discarding any previous
// pending state and its backup codes. Reopening enrollment therefore always
// regenerates; a prior secret is never kept.
func (r *MFARepo) BeginEnrollment(ctx context.Context, accountID, secret string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM mfa_backup_codes WHERE account_id=?", accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO mfa_enrollments (account_id, secret, enabled) VALUES (?,?,FALSE)
		 ON DUPLICATE KEY UPDATE secret=VALUES(secret), enabled=FALSE`,
		accountID, secret); err != nil {
		return err
	}
	return tx.Commit()
}

// Activate flips the pending enrollment to enabled and stores its backup
// codes. The caller has already verified an authenticator code against the
// pending secret.
func (r *MFARepo) Activate(ctx context.Context, accountID string, codes []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE mfa_enrollments SET enabled=TRUE WHERE account_id=?", accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotEnrolled
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM mfa_backup_codes WHERE account_id=?", accountID); err != nil {
		return err
	}
	for _, c := range codes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO mfa_backup_codes (account_id, code) VALUES (?,?)",
			accountID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ConsumeBackupCode removes a recovery code if present and reports whether it
// was consumed. The single DELETE makes consumption atomic: two concurrent
// attempts with the same code cannot both see RowsAffected()==1.
func (r *MFARepo) ConsumeBackupCode(ctx context.Context, accountID, code string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM mfa_backup_codes WHERE account_id=? AND code=?",
		accountID, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Disable clears the enrollment and all remaining backup codes. Nothing of
// the prior secret or codes is retained.
func (r *MFARepo) Disable(ctx context.Context, accountID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM mfa_backup_codes WHERE account_id=?", accountID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM mfa_enrollments WHERE account_id=?", accountID); err != nil {
		return err
	}
	return tx.Commit()
}
