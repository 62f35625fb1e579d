package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := NewSessionToken("signing-secret", "acc-1")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	got, err := VerifySessionToken("signing-secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got)
}

func TestVerifySessionToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewSessionToken("right-secret", "acc-1")
	require.NoError(t, err)

	_, err = VerifySessionToken("wrong-secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifySessionToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := VerifySessionToken("secret", "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifySessionToken_RejectsChallengeToken(t *testing.T) {
	t.Parallel()

	// A challenge token proves the password step only; it must never be
	// accepted where a full session token is expected.
	raw, err := NewMFAChallengeToken("secret", "acc-1")
	require.NoError(t, err)

	_, err = VerifySessionToken("secret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMFAChallengeToken_RoundTrip(t *testing.T) {
	t.Parallel()

	raw, err := NewMFAChallengeToken("secret", "acc-9")
	require.NoError(t, err)

	got, err := VerifyMFAChallengeToken("secret", raw)
	require.NoError(t, err)
	assert.Equal(t, "acc-9", got)
}

func TestVerifyMFAChallengeToken_RejectsSessionToken(t *testing.T) {
	t.Parallel()

	tok, err := NewSessionToken("secret", "acc-9")
	require.NoError(t, err)

	_, err = VerifyMFAChallengeToken("secret", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashToken_StableAndDistinct(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestPassword_HashAndVerify(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("Passw0rd!", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "Passw0rd!"))
	assert.False(t, VerifyPassword(hash, "passw0rd!"))
}
