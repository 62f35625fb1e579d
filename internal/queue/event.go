// Package queue defines message payloads exchanged over the message broker
// and the background consumer that persists them.
package queue

// AuditQueueName is the durable queue carrying security audit events.
const AuditQueueName = "audit.events"

// Audit action names published by the API.
const (
	ActionSignIn        = "auth.signin"
	ActionSignInFailed  = "auth.signin_failed"
	ActionSignUp        = "auth.signup"
	ActionSignOut       = "auth.signout"
	ActionMFAEnabled    = "mfa.enabled"
	ActionMFADisabled   = "mfa.disabled"
	ActionUserUpdated   = "users.updated"
	ActionUserDeleted   = "users.deleted"
	ActionAuditPurged   = "audit.purged"
	ActionProfileUpdate = "profile.updated"
)

// AuditEvent is published whenever a security-relevant action happens. It
// contains enough information for the audit log without the consumer having
// to query the primary database.
type AuditEvent struct {
	AccountID  string `json:"account_id,omitempty"`
	ActorEmail string `json:"actor_email"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"` // RFC 3339 UTC
}
