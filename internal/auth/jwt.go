// Package auth supplies the engine's identity: whose documents are being
// synchronized. Identity is carried as a signed JWT so both the local engine
// and the remote service agree on the user without a directory lookup.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
)

// Claims includes the registered claims plus the owning user's identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// GenerateToken signs a token for userID valid for validityDuration.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})
	return token.SignedString(secretKey)
}

// GetUserIDFromToken verifies the token and extracts the user identifier.
// Expired tokens are reported as common.ErrTokenExpired so callers can
// refresh and retry; any other verification failure is ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	if !token.Valid {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
