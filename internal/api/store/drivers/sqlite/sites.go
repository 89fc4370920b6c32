package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/store"
)

type sitesRepo struct {
	db dbtx
}

const siteColumns = `id, name, address, latitude, longitude, status, created_at, updated_at`

func (r *sitesRepo) CreateSite(ctx context.Context, s domain.Site) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sites (id, name, address, latitude, longitude, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Address,
		mapOptionalFloat(s.Latitude), mapOptionalFloat(s.Longitude),
		string(s.Status), s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	return err
}

func (r *sitesRepo) GetSiteByID(ctx context.Context, id string) (domain.Site, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)

	s, err := scanSite(row)
	if err != nil {
		return domain.Site{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sitesRepo) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+siteColumns+` FROM sites ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSites(rows)
}

func (r *sitesRepo) ListSitesByIDs(ctx context.Context, ids []string) ([]domain.Site, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id IN (`+placeholders+`) ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSites(rows)
}

func (r *sitesRepo) UpdateSiteStatus(ctx context.Context, siteID string, status domain.SiteStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sites SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), siteID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *sitesRepo) UpdateSiteCoordinates(ctx context.Context, siteID string, lat, lng float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sites SET latitude = ?, longitude = ?, updated_at = ? WHERE id = ?`,
		lat, lng, time.Now().UTC(), siteID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanSite(row rowScanner) (domain.Site, error) {
	var (
		s        domain.Site
		lat, lng sql.NullFloat64
		status   string
	)
	err := row.Scan(&s.ID, &s.Name, &s.Address, &lat, &lng, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Site{}, err
	}
	s.Latitude = mapNullFloatPtr(lat)
	s.Longitude = mapNullFloatPtr(lng)
	s.Status = domain.SiteStatus(status)
	return s, nil
}

func collectSites(rows *sql.Rows) ([]domain.Site, error) {
	var sites []domain.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}
