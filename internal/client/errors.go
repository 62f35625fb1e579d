package client

import "errors"

// Error taxonomy of the authentication boundary. Transport and HTTP failures
// are translated into exactly one of these kinds before they reach any UI
// code; nothing above this layer inspects status codes.
var (
	// ErrInvalidInput: missing or malformed fields, caught locally before any
	// network call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthenticationFailed: bad credentials. Deliberately generic; unknown
	// email and wrong password are indistinguishable.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrProfileMissing: the account exists but its profile or role could not
	// be resolved. Indicates backend data inconsistency, not bad credentials.
	ErrProfileMissing = errors.New("profile not found")

	// ErrMFAInvalidCode: the second-factor code or recovery code did not
	// verify. Which check failed is not revealed.
	ErrMFAInvalidCode = errors.New("invalid mfa code")

	// ErrServiceUnavailable: transport failure or server error. Distinct from
	// invalid credentials; the caller decides whether to re-prompt.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrSessionExpired: the session is no longer accepted. Handled silently
	// by returning to the sign-in surface, never surfaced as an alarm.
	ErrSessionExpired = errors.New("session expired")
)
