package repository

import (
	"context"
	"database/sql"

	"github.com/threatpulse/securesoc/internal/model"
)

// AuditRepo persists audit events written by the queue consumer and read by
// the audit-log endpoints.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert appends an audit event.
func (r *AuditRepo) Insert(ctx context.Context, ev model.AuditEvent) error {
	var accountID any
	if ev.AccountID != nil {
		accountID = *ev.AccountID
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_events (account_id, actor_email, action, detail, created_at) VALUES (?,?,?,?,?)",
		accountID, ev.ActorEmail, ev.Action, ev.Detail, ev.CreatedAt)
	return err
}

// List returns the newest events up to limit.
func (r *AuditRepo) List(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, account_id, actor_email, action, detail, created_at FROM audit_events ORDER BY created_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEvent
	for rows.Next() {
		var (
			ev        model.AuditEvent
			accountID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &accountID, &ev.ActorEmail, &ev.Action, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if accountID.Valid {
			ev.AccountID = &accountID.String
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Purge deletes the entire audit trail. Gated by the deleteAuditLog
// capability at the handler layer.
func (r *AuditRepo) Purge(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM audit_events")
	return err
}
