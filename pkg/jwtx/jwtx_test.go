package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	signer := NewEdDSASigner(keys)
	verifier := NewEdDSAVerifier(keys, "obra-limpa")

	raw, err := signer.Sign(NewClaims("obra-limpa", "user-123", "admin", time.Minute))
	require.NoError(t, err)

	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	signingKeys, err := GenerateKeyPair()
	require.NoError(t, err)
	otherKeys, err := GenerateKeyPair()
	require.NoError(t, err)

	raw, err := NewEdDSASigner(signingKeys).Sign(NewClaims("obra-limpa", "u", "worker", time.Minute))
	require.NoError(t, err)

	_, err = NewEdDSAVerifier(otherKeys, "obra-limpa").Verify(raw)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	raw, err := NewEdDSASigner(keys).Sign(NewClaims("someone-else", "u", "worker", time.Minute))
	require.NoError(t, err)

	_, err = NewEdDSAVerifier(keys, "obra-limpa").Verify(raw)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	keys, err := GenerateKeyPair()
	require.NoError(t, err)

	raw, err := NewEdDSASigner(keys).Sign(NewClaims("obra-limpa", "u", "worker", -time.Minute))
	require.NoError(t, err)

	_, err = NewEdDSAVerifier(keys, "obra-limpa").Verify(raw)
	require.ErrorIs(t, err, ErrTokenExpired)
}
