// Package jwtx wraps github.com/golang-jwt/jwt/v5 with the small surface the
// service needs: EdDSA-signed access tokens carrying the caller's role.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("jwtx: token expired")
	ErrTokenInvalid = errors.New("jwtx: token invalid")
)

// Claims is the access-token payload. Role is read by the authorization
// middleware; it is a gating convenience only and every handler still loads
// the persisted user for anything that mutates state.
type Claims struct {
	Role string `json:"role,omitempty"`

	jwt.RegisteredClaims
}

// NewClaims builds claims for a user with the given role and lifetime.
func NewClaims(issuer, subject, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
