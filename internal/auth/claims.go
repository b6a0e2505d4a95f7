package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// DecodeClaims reads the payload of a session token without verifying its
// signature. The device is the only party that can verify it; the client only
// displays what it carries.
func DecodeClaims(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claims, nil
}
