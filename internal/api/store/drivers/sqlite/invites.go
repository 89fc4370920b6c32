package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/store"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, email, site_id, status, created_by, accepted_by, created_at, updated_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (id, email, site_id, status, created_by, accepted_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.SiteID, string(inv.Status), inv.CreatedBy, inv.AcceptedBy,
		inv.CreatedAt.UTC(), inv.UpdatedAt.UTC())
	if err != nil && isUniqueViolation(err) {
		// idx_invites_one_pending: a pending invite for this pair already exists.
		return store.ErrAlreadyExists
	}
	return err
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id)

	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) GetPendingInvite(ctx context.Context, email, siteID string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE email = ? AND site_id = ? AND status = 'pending'`,
		email, siteID)

	inv, err := scanInvite(row)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitesRepo) ListPendingInvitesByEmail(ctx context.Context, email string) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM invites
		 WHERE email = ? AND status = 'pending'
		 ORDER BY created_at ASC`,
		email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvites(rows)
}

func (r *invitesRepo) ListInvites(ctx context.Context, siteID string, status domain.InviteStatus) ([]domain.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE 1=1`
	var args []any
	if siteID != "" {
		query += ` AND site_id = ?`
		args = append(args, siteID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvites(rows)
}

// AcceptInvite is the check-and-set that keeps acceptance at-most-once: the
// status predicate makes concurrent consumers race on a single row update,
// and exactly one observes RowsAffected == 1.
func (r *invitesRepo) AcceptInvite(ctx context.Context, inviteID, acceptedBy string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET status = 'accepted', accepted_by = ?, updated_at = ?
		 WHERE id = ? AND status = 'pending'`,
		acceptedBy, time.Now().UTC(), inviteID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitesRepo) CancelInvite(ctx context.Context, inviteID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET status = 'cancelled', updated_at = ?
		 WHERE id = ? AND status = 'pending'`,
		time.Now().UTC(), inviteID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *invitesRepo) ExpirePendingInvitesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET status = 'expired', updated_at = ?
		 WHERE status = 'pending' AND created_at < ?`,
		time.Now().UTC(), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanInvite(row rowScanner) (domain.Invite, error) {
	var (
		inv    domain.Invite
		status string
	)
	err := row.Scan(
		&inv.ID, &inv.Email, &inv.SiteID, &status,
		&inv.CreatedBy, &inv.AcceptedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invite{}, err
	}
	inv.Status = domain.InviteStatus(status)
	return inv, nil
}

func collectInvites(rows *sql.Rows) ([]domain.Invite, error) {
	var invites []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
