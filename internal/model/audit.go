package model

import "time"

// AuditEvent models a row in the `audit_events` table. Events are produced by
// the API on security-relevant actions, travel through the message broker and
// are persisted by the audit consumer.
//
// Fields:
//  ID         – primary key identifier.
//  AccountID  – account the event concerns (null for anonymous failures).
//  ActorEmail – email supplied or resolved at event time.
//  Action     – short machine-readable action name (e.g. "auth.signin").
//  Detail     – free-form human-readable detail.
//  CreatedAt  – when the event occurred.
type AuditEvent struct {
	ID         uint64    // audit_events.id
	AccountID  *string   // audit_events.account_id (nullable)
	ActorEmail string    // audit_events.actor_email
	Action     string    // audit_events.action
	Detail     string    // audit_events.detail
	CreatedAt  time.Time // audit_events.created_at
}
