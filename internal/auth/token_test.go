package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testKeypair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestMintAndParseRoundTrip(t *testing.T) {
	key := testKeypair(t)
	agentID := uuid.New()

	token, err := MintSessionToken(agentID, time.Hour, key)
	require.NoError(t, err)

	claims, err := ParseSessionToken(token, &key.PublicKey)
	require.NoError(t, err)
	require.Equal(t, agentID, claims.AgentID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	key := testKeypair(t)

	token, err := MintSessionToken(uuid.New(), -time.Minute, key)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, &key.PublicKey)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsWrongKey(t *testing.T) {
	signingKey := testKeypair(t)
	otherKey := testKeypair(t)

	token, err := MintSessionToken(uuid.New(), time.Hour, signingKey)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, &otherKey.PublicKey)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	key := testKeypair(t)

	claims := jwt.MapClaims{
		"iss": "SomeoneElse",
		"sub": uuid.New().String(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, &key.PublicKey)
	require.Error(t, err)
	require.Contains(t, err.Error(), "issuer")
}

func TestParseRejectsNonRSAAlgorithm(t *testing.T) {
	key := testKeypair(t)

	claims := jwt.MapClaims{
		"iss": TokenIssuer,
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("hmac-secret"))
	require.NoError(t, err)

	_, err = ParseSessionToken(token, &key.PublicKey)
	require.Error(t, err)
}

func TestParseRejectsNonUUIDSubject(t *testing.T) {
	key := testKeypair(t)

	claims := jwt.MapClaims{
		"iss": TokenIssuer,
		"sub": "agent-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, &key.PublicKey)
	require.Error(t, err)
}
