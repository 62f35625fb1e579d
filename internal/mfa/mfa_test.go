package mfa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecret_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	s, err := NewSecret()
	require.NoError(t, err)
	assert.Len(t, s, SecretLength)
	for _, r := range s {
		assert.Contains(t, secretAlphabet, string(r))
	}
}

func TestNewSecret_NoCollisions(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		s, err := NewSecret()
		require.NoError(t, err)
		require.False(t, seen[s], "secret collision after %d draws", i)
		seen[s] = true
	}
}

func TestProvisioningURI(t *testing.T) {
	t.Parallel()

	uri := ProvisioningURI("JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", "ana@co.test")
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/SecureSOC:ana@co.test?"))
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "issuer=SecureSOC")
}

func TestValidCodeFormat(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidCodeFormat("123456"))
	assert.False(t, ValidCodeFormat("12345"))
	assert.False(t, ValidCodeFormat("1234567"))
	assert.False(t, ValidCodeFormat("12345a"))
	assert.False(t, ValidCodeFormat(""))
	assert.False(t, ValidCodeFormat("12 456"))
}

func TestVerifyTOTP(t *testing.T) {
	t.Parallel()

	secret, err := NewSecret()
	require.NoError(t, err)

	code, err := GenerateCode(secret)
	require.NoError(t, err)

	assert.True(t, VerifyTOTP(secret, code))
	assert.True(t, VerifyTOTP(secret, " "+code+" "), "codes must be trimmed before comparison")
	assert.False(t, VerifyTOTP(secret, "000000"))
	assert.False(t, VerifyTOTP(secret, "abcdef"))

	// A code computed for one secret must not verify against another.
	other, err := NewSecret()
	require.NoError(t, err)
	assert.False(t, VerifyTOTP(other, code))
}

func TestNewBackupCodes(t *testing.T) {
	t.Parallel()

	codes, err := NewBackupCodes()
	require.NoError(t, err)
	require.Len(t, codes, BackupCodeCount)

	seen := make(map[string]bool)
	for _, c := range codes {
		assert.Len(t, c, backupCodeLength)
		assert.Equal(t, strings.ToUpper(c), c)
		assert.False(t, seen[c], "backup codes must be unique")
		seen[c] = true
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AB12CD34", NormalizeCode("  ab12cd34 "))
	assert.Equal(t, "123456", NormalizeCode("123456"))
}
