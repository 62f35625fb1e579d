package model

import "time"

// MFAEnrollment models a row in the `mfa_enrollments` table. A row with
// Enabled=false is a pending enrollment: the secret has been issued to the
// user but no authenticator code has been confirmed yet. Restarting
// enrollment overwrites the pending row with a fresh secret.
//
// Fields:
//  AccountID – owner of the enrollment (primary key, one per account).
//  Secret    – base32 shared secret rendered into the provisioning URI.
//  Enabled   – whether the second factor is active for sign-in.
//  CreatedAt – timestamp of creation.
type MFAEnrollment struct {
	AccountID string    // mfa_enrollments.account_id
	Secret    string    // mfa_enrollments.secret
	Enabled   bool      // mfa_enrollments.enabled
	CreatedAt time.Time // mfa_enrollments.created_at
}
