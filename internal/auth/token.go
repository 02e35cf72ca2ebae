package auth

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer identifies the service that issues all agent session tokens.
const TokenIssuer = "KeyHaven"

// SessionClaims is the parsed identity carried by an agent session token.
type SessionClaims struct {
	AgentID   uuid.UUID
	ExpiresAt time.Time
}

// ParseSessionToken checks the token's signature and standard claims and
// returns the agent identity. Expired or malformed tokens are a
// fatal-for-session condition for the desk: the caller must re-authenticate,
// not retry.
func ParseSessionToken(tokenString string, publicKey *rsa.PublicKey) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("missing expiration claim")
	}
	expiry := time.Unix(int64(exp), 0)
	if expiry.Before(time.Now()) {
		return nil, jwt.ErrTokenExpired
	}

	iss, ok := claims["iss"].(string)
	if !ok {
		return nil, errors.New("missing issuer claim")
	}
	if iss != TokenIssuer {
		return nil, errors.New("invalid token issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("missing subject claim")
	}
	agentID, err := uuid.Parse(sub)
	if err != nil {
		return nil, errors.New("subject claim is not an agent id")
	}

	return &SessionClaims{AgentID: agentID, ExpiresAt: expiry}, nil
}

// MintSessionToken issues a session token for an agent. Used by the
// simulator and the test helpers; production tokens come from the auth
// service.
func MintSessionToken(agentID uuid.UUID, ttl time.Duration, privateKey *rsa.PrivateKey) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": TokenIssuer,
		"sub": agentID.String(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(privateKey)
}
