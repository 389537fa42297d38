// Package auth issues and verifies the access tokens handed out to
// anonymous principals.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the principal the token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID string
}

func GenerateToken(principalID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		PrincipalID: principalID,
	})

	return token.SignedString(secretKey)
}

// GetPrincipalIDFromToken verifies the token. Expired tokens yield
// common.ErrTokenExpired so the client knows to sign in again.
func GetPrincipalIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil {
		return "", err
	}

	if !token.Valid || claims.PrincipalID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.PrincipalID, nil
}
