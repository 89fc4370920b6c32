package domain

import "time"

type SiteStatus string

const (
	SiteActive   SiteStatus = "active"
	SiteInactive SiteStatus = "inactive"
)

// Site is a construction site. It owns tasks and is referenced by users and
// invites.
type Site struct {
	ID      string
	Name    string
	Address string

	// Geocoded coordinates; nil when the address could not be resolved.
	Latitude  *float64
	Longitude *float64

	Status    SiteStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
