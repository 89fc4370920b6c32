package domain

import "time"

// RefreshToken is the persisted record of an opaque refresh token. Only the
// SHA-256 fingerprint of the raw token is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
