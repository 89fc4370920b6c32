package domain

import (
	"slices"
	"time"
)

// Role is the authorization tier of a user. An empty role means the user
// registered without an invite and is pending assignment; such sessions are
// gated out of all functional surfaces.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
	RoleUnset  Role = ""
)

// Valid reports whether r is one of the assignable roles. RoleUnset is a
// state, not an assignable value.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker
}

type User struct {
	ID           string
	Email        string // normalized lowercase, unique
	Name         string
	PasswordHash string // argon2id PHC encoded
	Role         Role
	JobTitle     string // free-text display label ("funcao"), independent of Role

	// Sites the user may act within. SiteID is the primary-site convenience
	// field; when set it is always a member of Sites.
	Sites  []string
	SiteID string

	MFAEnabled *time.Time // when TOTP was enabled (nullable)
	MFASecret  *string    // base32 TOTP secret (nullable)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSite reports whether the user is attached to the given site.
func (u User) HasSite(siteID string) bool {
	return slices.Contains(u.Sites, siteID)
}

// MFAActive reports whether TOTP verification is required at login.
func (u User) MFAActive() bool {
	return u.MFAEnabled != nil && u.MFASecret != nil
}
