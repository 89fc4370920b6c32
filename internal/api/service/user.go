package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/cryptox"
	"github.com/obralimpa/obralimpa/pkg/slogx"
)

var (
	ErrInvalidRole   = errors.New("invalid role")
	ErrSelfTarget    = errors.New("admins cannot target their own account")
	ErrPasswordReuse = errors.New("new password must differ from the current one")
)

type UserService struct {
	Store  store.Store
	Events *UserEvents
}

// GetUserByID fetches a user with site memberships populated.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// ListUsers returns users, optionally restricted to one site's members.
func (s *UserService) ListUsers(ctx context.Context, siteID string) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx, siteID)
}

// ChangeRole reassigns a user's role. Outstanding refresh tokens are revoked
// so the old role cannot be re-minted, and watchers are notified so open
// sessions re-gate without polling.
func (s *UserService) ChangeRole(ctx context.Context, actorID, userID string, role domain.Role) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Only assignable roles; an admin cannot demote itself, which would
	// strand a site with no admin mid-session.
	if !role.Valid() {
		return domain.User{}, ErrInvalidRole
	}
	if actorID == userID {
		return domain.User{}, ErrSelfTarget
	}

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Role == role {
			return nil
		}

		// 2. Persist the new role and kill outstanding sessions' ability
		// to refresh with the old one.
		if err := tx.Users().UpdateRole(ctx, userID, role); err != nil {
			return err
		}
		if err := tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID); err != nil {
			return err
		}
		user.Role = role
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error("failed to change role",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, err
	}

	// 3. Push the change to any live watch streams.
	if s.Events != nil {
		s.Events.Publish(user)
	}

	log.Info("role changed",
		slog.String("user_id", userID),
		slog.String("role", string(role)),
		slog.String("actor_id", actorID),
	)
	return user, nil
}

// UpdateJobTitle sets the free-text display label. It never touches Role.
func (s *UserService) UpdateJobTitle(ctx context.Context, userID, jobTitle string) (domain.User, error) {
	if err := s.Store.Users().UpdateJobTitle(ctx, userID, strings.TrimSpace(jobTitle)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if s.Events != nil {
		s.Events.Publish(user)
	}
	return user, nil
}

// AssignSites replaces a user's site memberships with the given set. The
// primary site follows along when the old one is removed.
func (s *UserService) AssignSites(ctx context.Context, userID string, siteIDs []string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Every site must exist.
	if len(siteIDs) > 0 {
		sites, err := s.Store.Sites().ListSitesByIDs(ctx, siteIDs)
		if err != nil {
			return domain.User{}, err
		}
		if len(sites) != len(siteIDs) {
			return domain.User{}, ErrSiteNotFound
		}
	}

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		keep := make(map[string]bool, len(siteIDs))
		for _, id := range siteIDs {
			keep[id] = true
		}

		// 2. Drop memberships not in the new set, add missing ones.
		for _, id := range user.Sites {
			if !keep[id] {
				if err := tx.Users().RemoveUserSite(ctx, userID, id); err != nil {
					return err
				}
			}
		}
		for _, id := range siteIDs {
			if err := tx.Users().AddUserSite(ctx, userID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error("failed to assign sites",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		}
		return domain.User{}, err
	}

	user, err = s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if s.Events != nil {
		s.Events.Publish(user)
	}

	log.Info("sites assigned",
		slog.String("user_id", userID),
		slog.Int("count", len(siteIDs)),
	)
	return user, nil
}

// ChangePassword verifies the current password and stores a new hash. All
// refresh tokens are revoked so stolen sessions die with the old password.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	log := slogx.FromContext(ctx)

	if len(next) < minPasswordLength {
		return ErrWeakPassword
	}
	if current == next {
		return ErrPasswordReuse
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	})
	if err != nil {
		log.Error("failed to change password",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("password changed", slog.String("user_id", userID))
	return nil
}

// DeleteUser removes an account. Memberships and refresh tokens cascade in
// the schema.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	log := slogx.FromContext(ctx)

	if actorID == userID {
		return ErrSelfTarget
	}
	if err := s.Store.Users().DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		log.Error("failed to delete user",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("user deleted",
		slog.String("user_id", userID),
		slog.String("actor_id", actorID),
	)
	return nil
}
