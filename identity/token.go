// Package identity is the boundary to the external identity provider.
// The core trusts the verified display name for the connection's lifetime;
// credential storage stays out of this repository.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "chat-relay"

// Claims is the data the identity provider embeds in a token.
type Claims struct {
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 tokens minted by the identity provider with
// a shared secret.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) TokenVerifier {
	return TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates the signature and expiration of a token and
// returns the verified display name.
func (v TokenVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	if claims.DisplayName == "" {
		return "", fmt.Errorf("token carries no display name")
	}
	return claims.DisplayName, nil
}

// GenerateToken creates a signed token for a display name. The server never
// calls this; it exists for the tester binary and for tests standing in for
// the external provider.
func GenerateToken(displayName, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
