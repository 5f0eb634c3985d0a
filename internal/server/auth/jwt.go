// Package auth issues and verifies the access tokens carried by family
// devices.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies one device of one family.
type Claims struct {
	jwt.RegisteredClaims
	FamilyID string `json:"fid"`
	DeviceID string `json:"did"`
}

func GenerateToken(familyID, deviceID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		FamilyID: familyID,
		DeviceID: deviceID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken returns common.ErrTokenExpired for expired tokens and
// common.ErrInvalidToken for anything else that fails verification.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.FamilyID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
