// Package mfa implements the second-factor primitives: shared-secret
// generation, provisioning URIs for authenticator apps, server-side TOTP
// verification and single-use recovery codes. Verification happens entirely
// on the server; the client is never trusted to decide whether a code is valid.
package mfa

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	// Issuer is the name shown by authenticator apps next to the account.
	Issuer = "SecureSOC"

	// SecretLength is the length of the shared secret in base32 characters.
	SecretLength = 32

	// secretAlphabet is the RFC 4648 base32 alphabet. Authenticator apps
	// expect secrets drawn from exactly this set.
	secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

	// BackupCodeCount is how many recovery codes an enrollment produces.
	BackupCodeCount = 10

	// backupCodeLength is the length of each recovery code.
	backupCodeLength = 8

	// backupAlphabet is the uppercase alphanumeric set recovery codes use.
	backupAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewSecret returns a fresh random shared secret. Every enrollment restart
// must call this again; a prior secret is never reused.
func NewSecret() (string, error) {
	return randomString(secretAlphabet, SecretLength)
}

// ProvisioningURI renders the otpauth URI that authenticator apps scan as a
// QR code or accept as a pasted string.
func ProvisioningURI(secret, email string) string {
	label := url.PathEscape(Issuer + ":" + email)
	return fmt.Sprintf("otpauth://totp/%s?secret=%s&issuer=%s",
		label, secret, url.QueryEscape(Issuer))
}

// NormalizeCode trims surrounding whitespace and uppercases a user-supplied
// code so comparisons are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCodeFormat reports whether code looks like an authenticator code:
// exactly six ASCII digits. The check is local; no verification is attempted.
func ValidCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// VerifyTOTP checks a 6-digit code against the time-based value derived from
// the shared secret. The library accepts one time step of clock skew in
// either direction.
func VerifyTOTP(secret, code string) bool {
	code = strings.TrimSpace(code)
	if !ValidCodeFormat(code) {
		return false
	}
	return totp.Validate(code, secret)
}

// GenerateCode computes the current TOTP value for a secret. Used by tests
// and by operator tooling; sign-in verification goes through VerifyTOTP.
func GenerateCode(secret string) (string, error) {
	return totp.GenerateCode(secret, time.Now())
}

// NewBackupCodes returns a fresh set of unique single-use recovery codes,
// already uppercase.
func NewBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	seen := make(map[string]bool, BackupCodeCount)
	for len(codes) < BackupCodeCount {
		c, err := randomString(backupAlphabet, backupCodeLength)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	return codes, nil
}

// randomString draws n characters from alphabet using crypto/rand.
func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
