package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is the fixed lifetime of a session token. Expiry is embedded in
// the token itself, so verification is stateless.
const SessionTTL = 24 * time.Hour

// MFAChallengeTTL bounds how long a sign-in may stay parked on the second
// factor before the whole attempt has to restart.
const MFAChallengeTTL = 5 * time.Minute

// mfaPurpose marks challenge tokens so they can never pass as session tokens.
const mfaPurpose = "mfa"

// ErrInvalidToken is returned for any token that fails verification. Expired
// and tampered tokens are rejected uniformly; callers are not told which.
var ErrInvalidToken = errors.New("invalid token")

// SessionToken represents a signed bearer token along with its expiry. The
// Token field contains the serialized JWT returned to the client; Exp is the
// UTC expiration time also recorded on the session row.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// NewSessionToken builds and signs an HS256 JWT carrying the account ID as
// its subject. The signing secret is process-wide configuration; rotating it
// invalidates every outstanding token.
func NewSessionToken(secret, accountID string) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(SessionTTL)
	claims := jwt.MapClaims{
		"sub": accountID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// VerifySessionToken checks signature and expiry and returns the embedded
// account ID. Any failure maps to ErrInvalidToken. Tokens carrying a purpose
// claim (MFA challenges) are rejected here.
func VerifySessionToken(secret, raw string) (string, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return "", ErrInvalidToken
	}
	if _, hasPurpose := claims["purpose"]; hasPurpose {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// NewMFAChallengeToken issues a short-lived token proving that the primary
// password check already succeeded for the account. It carries a purpose
// claim so it cannot be replayed as a session token.
func NewMFAChallengeToken(secret, accountID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":     accountID,
		"purpose": mfaPurpose,
		"exp":     now.Add(MFAChallengeTTL).Unix(),
		"iat":     now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyMFAChallengeToken validates a challenge token and returns the account
// ID it was issued for.
func VerifyMFAChallengeToken(secret, raw string) (string, error) {
	claims, err := parseHS256(secret, raw)
	if err != nil {
		return "", ErrInvalidToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != mfaPurpose {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// parseHS256 parses a JWT, enforcing the HMAC signing method used at issue
// time. The jwt library validates exp automatically.
func parseHS256(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the SHA-256 hash of a bearer token as a hex string. Only
// the hash is stored in the sessions table, so a leaked database dump cannot
// be replayed as live sessions.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
