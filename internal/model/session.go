package model

import "time"

// Session models an entry in the `sessions` table. The bearer token itself is
// not stored; only its SHA-256 hash. A session is live when it is neither
// revoked nor past its expiry. The repository enforces at most one live
// session per account.
//
// Fields:
//  ID        – primary key identifier.
//  AccountID – owner of the session.
//  TokenHash – SHA-256 hex digest of the bearer token.
//  IssuedAt  – when the session was created.
//  ExpiresAt – IssuedAt plus the fixed 24h session TTL.
//  RevokedAt – when the session was revoked (null if still active).
type Session struct {
	ID        uint64     // sessions.id
	AccountID string     // sessions.account_id
	TokenHash string     // sessions.token_hash
	IssuedAt  time.Time  // sessions.issued_at
	ExpiresAt time.Time  // sessions.expires_at
	RevokedAt *time.Time // sessions.revoked_at (nullable)
}
