package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/obralimpa/obralimpa/internal/api/store"
	"github.com/obralimpa/obralimpa/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

var (
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	ErrMFANotEnrolled    = errors.New("mfa enrollment not started")
)

type MFAService struct {
	Store  store.Store
	Issuer string
}

// MFAEnrollment is returned from EnrollTOTP for the client to render a QR
// code and manual entry key.
type MFAEnrollment struct {
	Secret       string
	ProvisionURI string
}

// EnrollTOTP generates a TOTP secret for the user. The secret is stored but
// MFA stays inactive until VerifyTOTP confirms the authenticator works.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string) (MFAEnrollment, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MFAEnrollment{}, ErrUserNotFound
		}
		return MFAEnrollment{}, err
	}
	if user.MFAActive() {
		return MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		log.Error("failed to generate totp secret", slog.Any("error", err))
		return MFAEnrollment{}, err
	}

	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		log.Error("failed to store totp secret", slog.Any("error", err))
		return MFAEnrollment{}, err
	}

	return MFAEnrollment{
		Secret:       key.Secret(),
		ProvisionURI: key.URL(),
	}, nil
}

// VerifyTOTP confirms the enrollment code and activates MFA.
func (s *MFAService) VerifyTOTP(ctx context.Context, userID, code string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.MFASecret == nil {
		return ErrMFANotEnrolled
	}
	if user.MFAActive() {
		return ErrMFAAlreadyEnabled
	}

	if !totp.Validate(code, *user.MFASecret) {
		return ErrInvalidMFACode
	}

	if err := s.Store.Users().EnableMFA(ctx, userID); err != nil {
		log.Error("failed to enable mfa", slog.Any("error", err))
		return err
	}

	log.Info("mfa enabled", slog.String("user_id", userID))
	return nil
}

// DisableTOTP turns MFA off. The current code must be presented.
func (s *MFAService) DisableTOTP(ctx context.Context, userID, code string) error {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.MFAActive() {
		return ErrMFANotEnrolled
	}
	if !totp.Validate(code, *user.MFASecret) {
		return ErrInvalidMFACode
	}

	if err := s.Store.Users().DisableMFA(ctx, userID); err != nil {
		log.Error("failed to disable mfa", slog.Any("error", err))
		return err
	}

	log.Info("mfa disabled", slog.String("user_id", userID))
	return nil
}
