package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints signed access tokens.
type Signer interface {
	Sign(claims Claims) (string, error)
}

// EdDSASigner signs tokens with an Ed25519 private key.
type EdDSASigner struct {
	keys KeyPair
}

func NewEdDSASigner(keys KeyPair) *EdDSASigner {
	return &EdDSASigner{keys: keys}
}

func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.keys.Private)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}
