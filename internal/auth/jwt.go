// Package auth implements the bearer token service and the route
// authorization policy.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/errs"
)

// NewAccessToken issues an HS256 token whose payload is exactly
// {sub, iat, exp}. The subject is the user's email.
func NewAccessToken(secret, issuer string, ttl time.Duration, subject string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSubject validates signature, issuer and expiry and returns the subject.
// Every failure mode collapses to errs.ErrInvalidToken so callers cannot be
// used as a validation oracle.
func ParseSubject(secret, issuer, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", errs.ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errs.ErrInvalidToken
	}
	return claims.Subject, nil
}
