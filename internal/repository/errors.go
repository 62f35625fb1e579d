// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios without inspecting
// driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when creating an account with an email that is
// already registered. Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrNotEnrolled is returned when an MFA operation targets an account that
// has no enrollment row (pending or enabled).
var ErrNotEnrolled = errors.New("mfa not enrolled")
