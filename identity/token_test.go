package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	secret := "super-secret"

	// Given a token minted by the provider
	token, err := GenerateToken("alice", secret, time.Hour)
	req.NoError(err)

	// Then the verifier extracts the display name
	name, err := NewTokenVerifier(secret).Verify(token)
	req.NoError(err)
	req.Equal("alice", name)
}

func TestTokenVerifier_RejectsWrongSecret(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("alice", "right-secret", time.Hour)
	req.NoError(err)

	_, err = NewTokenVerifier("wrong-secret").Verify(token)
	req.Error(err)
}

func TestTokenVerifier_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	secret := "super-secret"

	// Given a token that expired an hour ago
	token, err := GenerateToken("alice", secret, -time.Hour)
	req.NoError(err)

	_, err = NewTokenVerifier(secret).Verify(token)
	req.Error(err)
}

func TestTokenVerifier_RejectsGarbage(t *testing.T) {
	req := require.New(t)

	_, err := NewTokenVerifier("secret").Verify("not-a-token")
	req.Error(err)
}

func TestTokenVerifier_RejectsMissingName(t *testing.T) {
	req := require.New(t)
	secret := "super-secret"

	token, err := GenerateToken("", secret, time.Hour)
	req.NoError(err)

	_, err = NewTokenVerifier(secret).Verify(token)
	req.Error(err)
}
