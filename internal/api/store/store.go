package store

import (
	"context"
	"errors"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it. It
// exposes sub-repositories to keep concerns tidy and testable.
type Store interface {
	Users() Users
	Sites() Sites
	Invites() Invites
	Tasks() Tasks
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn returns
	// an error, committed otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user with its site memberships populated.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by normalized email. Used at login and
	// during invite issuance.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns users, optionally filtered to members of one site.
	ListUsers(ctx context.Context, siteID string) ([]domain.User, error)

	// UpdateRole sets the authorization role and bumps updated_at.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// UpdateJobTitle sets the display label ("funcao") only.
	UpdateJobTitle(ctx context.Context, userID string, jobTitle string) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// AddUserSite attaches a site membership; adding an existing membership
	// is a no-op.
	AddUserSite(ctx context.Context, userID, siteID string) error

	// RemoveUserSite detaches a site membership.
	RemoveUserSite(ctx context.Context, userID, siteID string) error

	// SetPrimarySiteIfUnset sets site_id only when it is currently empty,
	// keeping it consistent with the membership set.
	SetPrimarySiteIfUnset(ctx context.Context, userID, siteID string) error

	// DeleteUser removes the user; memberships and refresh tokens cascade.
	DeleteUser(ctx context.Context, userID string) error

	// UpdateMFASecret stores the TOTP secret during enrollment.
	UpdateMFASecret(ctx context.Context, userID string, secret string) error

	// EnableMFA marks TOTP as verified by setting the mfa_enabled timestamp.
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA clears both MFA fields.
	DisableMFA(ctx context.Context, userID string) error
}

type Sites interface {
	// CreateSite inserts a new site.
	CreateSite(ctx context.Context, s domain.Site) error

	// GetSiteByID fetches a site.
	GetSiteByID(ctx context.Context, id string) (domain.Site, error)

	// ListSites returns all sites ordered by creation date (newest first).
	ListSites(ctx context.Context) ([]domain.Site, error)

	// ListSitesByIDs returns the sites with the given ids, same ordering.
	ListSitesByIDs(ctx context.Context, ids []string) ([]domain.Site, error)

	// UpdateSiteStatus flips active/inactive.
	UpdateSiteStatus(ctx context.Context, siteID string, status domain.SiteStatus) error

	// UpdateSiteCoordinates stores geocoded coordinates after the fact.
	UpdateSiteCoordinates(ctx context.Context, siteID string, lat, lng float64) error
}

type Invites interface {
	// CreateInvite writes a new pending invite.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByID fetches an invite regardless of status.
	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	// GetPendingInvite returns the pending invite for an (email, site) pair,
	// or ErrNotFound. At most one can exist.
	GetPendingInvite(ctx context.Context, email, siteID string) (domain.Invite, error)

	// ListPendingInvitesByEmail returns all pending invites addressed to the
	// email, oldest first. Consumption iterates this.
	ListPendingInvitesByEmail(ctx context.Context, email string) ([]domain.Invite, error)

	// ListInvites returns invites filtered by optional site and status.
	ListInvites(ctx context.Context, siteID string, status domain.InviteStatus) ([]domain.Invite, error)

	// AcceptInvite conditionally moves pending -> accepted, recording the
	// accepting user. Returns false when the invite was no longer pending,
	// which is how concurrent consumers lose the race.
	AcceptInvite(ctx context.Context, inviteID, acceptedBy string) (bool, error)

	// CancelInvite conditionally moves pending -> cancelled. Returns false
	// when the invite was no longer pending.
	CancelInvite(ctx context.Context, inviteID string) (bool, error)

	// ExpirePendingInvitesBefore moves every pending invite created before
	// cutoff to expired. Returns the number of invites expired.
	ExpirePendingInvitesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Tasks interface {
	// CreateTask inserts a new task.
	CreateTask(ctx context.Context, t domain.Task) error

	// GetTaskByID fetches a task.
	GetTaskByID(ctx context.Context, id string) (domain.Task, error)

	// ListTasks returns tasks filtered by optional site and status, newest
	// first.
	ListTasks(ctx context.Context, siteID string, status domain.TaskStatus) ([]domain.Task, error)

	// UpdateTaskStatus assigns the status directly and bumps updated_at.
	UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus) error

	// SetTaskPhotoURL records the completion photo reference.
	SetTaskPhotoURL(ctx context.Context, taskID string, url string) error

	// CountTasksByStatus aggregates one site's tasks for the progress view.
	CountTasksByStatus(ctx context.Context, siteID string) (domain.Progress, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens bulk revocation for a user (role change,
	// account deletion).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
