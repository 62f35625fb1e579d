package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/threatpulse/securesoc/internal/model"
	"github.com/threatpulse/securesoc/internal/utils"
)

// AccountRepo mirrors the 'accounts' table.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "id,email,password_hash,role,name,avatar_url,is_active,last_login,created_at,updated_at"

// Create inserts an account and returns its generated ID. Emails are
// lowercased before insert so the unique index is case-insensitive.
func (r *AccountRepo) Create(ctx context.Context, email, password, name, role string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id, email, password_hash, role, name) VALUES (?,?,?,?,?)",
		id, email, hash, role, name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email))
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
}

// List returns all accounts ordered by creation time, newest first.
func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TouchLastLogin stamps the last successful sign-in time.
func (r *AccountRepo) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET last_login=NOW() WHERE id=?", id)
	return err
}

// UpdateProfile updates the account's own editable fields. A nil avatar
// leaves the stored value untouched.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id, name string, avatarURL *string) error {
	if avatarURL == nil {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE accounts SET name=? WHERE id=?", name, id)
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET name=?, avatar_url=? WHERE id=?", name, *avatarURL, id)
	return err
}

// UpdateRole changes an account's role.
func (r *AccountRepo) UpdateRole(ctx context.Context, id, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET role=? WHERE id=?", role, id)
	return err
}

// SetActive toggles the soft-deactivation flag.
func (r *AccountRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET is_active=? WHERE id=?", active, id)
	return err
}

// Delete permanently removes an account and its dependent rows. Irreversible;
// the normal path is SetActive(false).
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		"DELETE FROM sessions WHERE account_id=?",
		"DELETE FROM mfa_backup_codes WHERE account_id=?",
		"DELETE FROM mfa_enrollments WHERE account_id=?",
		"DELETE FROM accounts WHERE id=?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface{ Scan(dest ...any) error }

func (r *AccountRepo) scanOne(row *sql.Row) (model.Account, error) {
	return scanAccount(row)
}

func scanAccount(s rowScanner) (model.Account, error) {
	var (
		a         model.Account
		avatar    sql.NullString
		lastLogin sql.NullTime
	)
	err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.Name,
		&avatar, &a.IsActive, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}
	if avatar.Valid {
		a.AvatarURL = &avatar.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return a, nil
}
