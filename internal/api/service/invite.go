package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/notify"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/idx"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

var (
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrDuplicatePendingInvite = errors.New("a pending invite already exists for this email and site")
	ErrSiteNotFound           = errors.New("site not found")
	ErrSiteInactive           = errors.New("site is inactive")
	ErrInviteNotFound         = errors.New("invite not found")
	ErrInviteNotPending       = errors.New("invite is no longer pending")
)

type InviteService struct {
	Store  store.Store
	Notify notify.Publisher
	Events *UserEvents
}

// NormalizeEmail lowercases and validates an email address. All invite and
// user lookups key on the normalized form.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IssueInvite creates a pending invite for an email on a site and publishes
// the notification event. At most one pending invite may exist per
// (email, site) pair.
func (s *InviteService) IssueInvite(ctx context.Context, email, siteID, createdBy string) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	// 1. Normalize and validate the email.
	email, err := NormalizeEmail(email)
	if err != nil {
		return domain.Invite{}, err
	}

	// 2. Validate the site exists and is active.
	site, err := s.Store.Sites().GetSiteByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("attempted to invite to non-existent site",
				slog.String("site_id", siteID),
			)
			return domain.Invite{}, ErrSiteNotFound
		}
		log.Error("failed to fetch site", slog.Any("error", err))
		return domain.Invite{}, err
	}
	if site.Status != domain.SiteActive {
		log.Warn("attempted to invite to inactive site",
			slog.String("site_id", siteID),
		)
		return domain.Invite{}, ErrSiteInactive
	}

	// 3. Write the pending invite. The partial unique index on
	// (email, site_id, status='pending') rejects duplicates atomically, so
	// there is no read-then-write window here.
	now := time.Now().UTC()
	inv := domain.Invite{
		ID:        idx.New().String(),
		Email:     email,
		SiteID:    siteID,
		Status:    domain.InvitePending,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Invites().CreateInvite(ctx, inv); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Invite{}, ErrDuplicatePendingInvite
		}
		log.Error("failed to create invite",
			slog.String("invite_id", inv.ID),
			slog.Any("error", err),
		)
		return domain.Invite{}, err
	}

	// 4. Publish the mail event. Delivery is asynchronous and best effort;
	// the invite is already durable.
	if s.Notify != nil {
		s.Notify.Publish(notify.InviteCreated{
			InviteID: inv.ID,
			Email:    inv.Email,
			SiteID:   site.ID,
			SiteName: site.Name,
		})
	}

	log.Info("invite issued",
		slog.String("invite_id", inv.ID),
		slog.String("site_id", siteID),
	)
	return inv, nil
}

// ConsumeInvites accepts every pending invite addressed to the user's email,
// attaching site memberships and promoting an unset role to worker. It is
// called after registration and after login so invites issued in between are
// picked up. Each invite is consumed in its own transaction; a concurrent
// consumer losing the conditional update simply skips that invite.
func (s *InviteService) ConsumeInvites(ctx context.Context, user domain.User) (domain.User, int, error) {
	log := slogx.FromContext(ctx)

	// 1. Collect pending invites for this email, oldest first so the first
	// issued invite decides the primary site.
	pending, err := s.Store.Invites().ListPendingInvitesByEmail(ctx, user.Email)
	if err != nil {
		log.Error("failed to list pending invites", slog.Any("error", err))
		return user, 0, err
	}
	if len(pending) == 0 {
		return user, 0, nil
	}

	consumed := 0
	for _, inv := range pending {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			// 2. Conditional pending -> accepted. ok=false means another
			// consumer, a cancel or the expiry sweep got there first.
			ok, err := tx.Invites().AcceptInvite(ctx, inv.ID, user.ID)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			// 3. Attach the membership and the primary site.
			if err := tx.Users().AddUserSite(ctx, user.ID, inv.SiteID); err != nil {
				return err
			}
			if err := tx.Users().SetPrimarySiteIfUnset(ctx, user.ID, inv.SiteID); err != nil {
				return err
			}

			// 4. Promote role. Invited users become workers; an existing
			// admin keeps its role.
			if user.Role == domain.RoleUnset {
				if err := tx.Users().UpdateRole(ctx, user.ID, domain.RoleWorker); err != nil {
					return err
				}
			}
			consumed++
			return nil
		})
		if err != nil {
			log.Error("failed to consume invite",
				slog.String("invite_id", inv.ID),
				slog.Any("error", err),
			)
			return user, consumed, err
		}
	}

	if consumed == 0 {
		return user, 0, nil
	}

	// 5. Re-read the user so callers and watchers see the final state.
	updated, err := s.Store.Users().GetUserByID(ctx, user.ID)
	if err != nil {
		log.Error("failed to reload user after invite consumption", slog.Any("error", err))
		return user, consumed, err
	}
	if s.Events != nil {
		s.Events.Publish(updated)
	}

	log.Info("invites consumed",
		slog.String("user_id", user.ID),
		slog.Int("count", consumed),
	)
	return updated, consumed, nil
}

// CancelInvite moves a pending invite to cancelled.
func (s *InviteService) CancelInvite(ctx context.Context, inviteID string) error {
	log := slogx.FromContext(ctx)

	ok, err := s.Store.Invites().CancelInvite(ctx, inviteID)
	if err != nil {
		log.Error("failed to cancel invite",
			slog.String("invite_id", inviteID),
			slog.Any("error", err),
		)
		return err
	}
	if !ok {
		// Distinguish unknown from already terminal for the caller.
		if _, err := s.Store.Invites().GetInviteByID(ctx, inviteID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInviteNotFound
			}
			return err
		}
		return ErrInviteNotPending
	}

	log.Info("invite cancelled", slog.String("invite_id", inviteID))
	return nil
}

// ListInvites returns invites filtered by optional site and status.
func (s *InviteService) ListInvites(ctx context.Context, siteID string, status domain.InviteStatus) ([]domain.Invite, error) {
	return s.Store.Invites().ListInvites(ctx, siteID, status)
}

// GetInvite fetches a single invite.
func (s *InviteService) GetInvite(ctx context.Context, inviteID string) (domain.Invite, error) {
	inv, err := s.Store.Invites().GetInviteByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteNotFound
		}
		return domain.Invite{}, err
	}
	return inv, nil
}
