// Package auth issues and verifies HS256 access tokens.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the numeric user id the token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64
}

func GenerateToken(userID int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken validates tokenString and returns its user id.
// Expired tokens yield common.ErrTokenExpired, anything else unusable
// yields common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, common.ErrTokenExpired
		}
		return 0, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID <= 0 {
		return 0, common.ErrInvalidToken
	}

	return claims.UserID, nil
}

// FromAuthorizationHeader extracts the token from a "Bearer <jwt>" header value.
func FromAuthorizationHeader(header string) (string, bool) {
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
	return token, token != ""
}
