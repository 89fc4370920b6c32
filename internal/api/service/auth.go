package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/cryptox"
	"github.com/obralimpa/obralimpa/pkg/idx"
	"github.com/obralimpa/obralimpa/pkg/jwtx"
	"github.com/obralimpa/obralimpa/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet the minimum length")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrMFARequired        = errors.New("mfa code required")
	ErrInvalidMFACode     = errors.New("invalid mfa code")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in seconds
	User         domain.User
}

type AuthService struct {
	Store      store.Store
	Signer     jwtx.Signer
	Invites    *InviteService
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Register creates an account with no role. Pending invites addressed to the
// email are consumed immediately, which may leave the user a worker with a
// primary site; otherwise the account stays unset and gated.
func (s *AuthService) Register(ctx context.Context, email, name, password, jobTitle string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Normalize email, check password policy.
	email, err := NormalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	// 2. Hash the password before touching the store.
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 3. Insert. The unique index on email turns a race between two
	// registrations into ErrAlreadyExists for the loser.
	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleUnset,
		JobTitle:     jobTitle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	// 4. Consume any invites already waiting for this email.
	user, _, err = s.Invites.ConsumeInvites(ctx, user)
	if err != nil {
		// The account exists; invite consumption retries at next login.
		log.Warn("invite consumption failed during registration",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Login verifies credentials, consumes pending invites and issues a token
// pair. When TOTP is enabled the code must be supplied in the same call.
func (s *AuthService) Login(ctx context.Context, email, password, mfaCode string) (*TokenPair, error) {
	log := slogx.FromContext(ctx)

	// 1. Look up the user. A miss and a bad password are indistinguishable
	// to the caller.
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return nil, err
	}

	// 2. Verify password.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login failed", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	// 3. TOTP when enabled.
	if user.MFAActive() {
		if mfaCode == "" {
			return nil, ErrMFARequired
		}
		if !totp.Validate(mfaCode, *user.MFASecret) {
			log.Info("login mfa failed", slog.String("user_id", user.ID))
			return nil, ErrInvalidMFACode
		}
	}

	// 4. Consume invites issued since the last login.
	user, _, err = s.Invites.ConsumeInvites(ctx, user)
	if err != nil {
		log.Warn("invite consumption failed during login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	// 5. Issue tokens.
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A revoked or expired token is rejected.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	log := slogx.FromContext(ctx)

	hash := cryptox.FingerprintToken(rawToken)

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Look up by fingerprint and validate.
		rec, err := tx.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if rec.Revoked || time.Now().After(rec.ExpiresAt) {
			return ErrInvalidRefresh
		}

		// 2. Rotate: the old token is single use.
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, hash); err != nil {
			return err
		}

		user, err = tx.Users().GetUserByID(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidRefresh) {
			log.Error("refresh rotation failed", slog.Any("error", err))
		}
		return nil, err
	}

	// 3. New pair carries the user's current role, so a role change takes
	// effect at the next rotation at the latest.
	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token. Unknown tokens are a no-op so
// logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	hash := cryptox.FingerprintToken(rawToken)
	err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, hash)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user domain.User) (*TokenPair, error) {
	log := slogx.FromContext(ctx)

	claims := jwtx.NewClaims(s.Issuer, user.ID, string(user.Role), s.AccessTTL)
	access, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign access token", slog.Any("error", err))
		return nil, err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, err
	}

	now := time.Now().UTC()
	rec := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rec); err != nil {
		log.Error("failed to store refresh token", slog.Any("error", err))
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
		User:         user,
	}, nil
}
