package domain

import "time"

// InviteStatus is monotonic: pending is the only non-terminal state, and a
// terminal invite never reverts.
type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteExpired   InviteStatus = "expired"
	InviteCancelled InviteStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s InviteStatus) Terminal() bool {
	return s != InvitePending
}

// Invite grants a specific email the right to join a specific site. It is
// consumed at most once; acceptance is guarded by a conditional update on
// status so concurrent consumption attempts cannot both succeed.
type Invite struct {
	ID         string
	Email      string // normalized lowercase, the consumption lookup key
	SiteID     string
	Status     InviteStatus
	CreatedBy  string // admin user ID
	AcceptedBy string // set when status becomes accepted
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
