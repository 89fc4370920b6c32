package service

import (
	"context"
	"testing"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTOTPLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &MFAService{Store: st, Issuer: "obralimpa-test"}

	user := seedUser(t, st, "totp@example.com", domain.RoleWorker)

	t.Run("enroll produces a usable secret", func(t *testing.T) {
		enroll, err := svc.EnrollTOTP(ctx, user.ID)
		require.NoError(t, err)
		require.NotEmpty(t, enroll.Secret)
		require.Contains(t, enroll.ProvisionURI, "otpauth://")

		// Not active until verified.
		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.MFAActive())
	})

	t.Run("verify with a wrong code fails", func(t *testing.T) {
		require.ErrorIs(t, svc.VerifyTOTP(ctx, user.ID, "000000"), ErrInvalidMFACode)
	})

	t.Run("verify with a valid code activates", func(t *testing.T) {
		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)

		code, err := totp.GenerateCode(*got.MFASecret, time.Now())
		require.NoError(t, err)
		require.NoError(t, svc.VerifyTOTP(ctx, user.ID, code))

		got, err = st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, got.MFAActive())
	})

	t.Run("double enrollment is rejected once active", func(t *testing.T) {
		_, err := svc.EnrollTOTP(ctx, user.ID)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("disable requires a valid code", func(t *testing.T) {
		require.ErrorIs(t, svc.DisableTOTP(ctx, user.ID, "000000"), ErrInvalidMFACode)

		got, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		code, err := totp.GenerateCode(*got.MFASecret, time.Now())
		require.NoError(t, err)

		require.NoError(t, svc.DisableTOTP(ctx, user.ID, code))
		got, err = st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, got.MFAActive())
	})

	t.Run("disable without enrollment is rejected", func(t *testing.T) {
		require.ErrorIs(t, svc.DisableTOTP(ctx, user.ID, "123456"), ErrMFANotEnrolled)
	})
}
