package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/geo"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/idx"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

var (
	ErrInvalidSiteRequest = errors.New("site name and address are required")
	ErrInvalidSiteStatus  = errors.New("invalid site status")
)

type SiteService struct {
	Store    store.Store
	Geocoder geo.Geocoder
}

// CreateSite registers a new site. Geocoding is best effort: when the
// address does not resolve the site is created without coordinates.
func (s *SiteService) CreateSite(ctx context.Context, name, address string) (domain.Site, error) {
	log := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" {
		return domain.Site{}, ErrInvalidSiteRequest
	}

	now := time.Now().UTC()
	site := domain.Site{
		ID:        idx.New().String(),
		Name:      name,
		Address:   address,
		Status:    domain.SiteActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.Geocoder != nil {
		lat, lng, err := s.Geocoder.Geocode(ctx, address)
		switch {
		case err == nil:
			site.Latitude = &lat
			site.Longitude = &lng
		case errors.Is(err, geo.ErrNoResults):
			log.Info("address did not geocode", slog.String("site_id", site.ID))
		default:
			log.Warn("geocoding failed",
				slog.String("site_id", site.ID),
				slog.Any("error", err),
			)
		}
	}

	if err := s.Store.Sites().CreateSite(ctx, site); err != nil {
		log.Error("failed to create site", slog.Any("error", err))
		return domain.Site{}, err
	}

	log.Info("site created", slog.String("site_id", site.ID))
	return site, nil
}

// GetSite fetches a site by id.
func (s *SiteService) GetSite(ctx context.Context, siteID string) (domain.Site, error) {
	site, err := s.Store.Sites().GetSiteByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Site{}, ErrSiteNotFound
		}
		return domain.Site{}, err
	}
	return site, nil
}

// ListSitesForUser returns every site for admins and only the member sites
// for workers.
func (s *SiteService) ListSitesForUser(ctx context.Context, user domain.User) ([]domain.Site, error) {
	if user.Role == domain.RoleAdmin {
		return s.Store.Sites().ListSites(ctx)
	}
	if len(user.Sites) == 0 {
		return nil, nil
	}
	return s.Store.Sites().ListSitesByIDs(ctx, user.Sites)
}

// UpdateStatus flips a site between active and inactive. Inactive sites
// reject new invites but keep their tasks and members.
func (s *SiteService) UpdateStatus(ctx context.Context, siteID string, status domain.SiteStatus) error {
	log := slogx.FromContext(ctx)

	if status != domain.SiteActive && status != domain.SiteInactive {
		return ErrInvalidSiteStatus
	}

	if err := s.Store.Sites().UpdateSiteStatus(ctx, siteID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSiteNotFound
		}
		log.Error("failed to update site status",
			slog.String("site_id", siteID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("site status updated",
		slog.String("site_id", siteID),
		slog.String("status", string(status)),
	)
	return nil
}
