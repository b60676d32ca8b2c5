package utils

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// GenerateToken creates a signed JWT with a subject and role claim. Used by
// the admin tooling to mint tokens for the override/report endpoints.
func GenerateToken(secret, subject, role string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
