package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	req := require.New(t)

	// Given a signed token for a student
	token, err := GenerateToken(&Payload{UserID: "alice", Role: "student"}, testSecret, AccessExpiration)
	req.NoError(err)
	req.NotEmpty(token)

	// When it is parsed with the same secret
	payload, err := ParseToken(token, testSecret)

	// Then the claims round-trip
	req.NoError(err)
	req.Equal("alice", payload.UserID)
	req.Equal("student", payload.Role)
	req.Equal(TokenIssuer, payload.Issuer)
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(&Payload{UserID: "alice"}, testSecret, AccessExpiration)
	req.NoError(err)

	_, err = ParseToken(token, "another-secret")

	req.Error(err)
}

func TestParseToken_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(&Payload{UserID: "alice"}, testSecret, -time.Minute)
	req.NoError(err)

	_, err = ParseToken(token, testSecret)

	req.Error(err)
}

func TestParseToken_RejectsGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	require.Error(t, err)
}
