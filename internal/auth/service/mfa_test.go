package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/mail"
	"github.com/stretchr/testify/require"
)

func TestSetupTOTP(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@example.com", "correct horse battery")

	svc := &MFAService{Store: st, Mailer: mail.LogMailer{}, Issuer: "test-issuer", OTPTTL: 5 * time.Minute}

	enrollment, err := svc.SetupTOTP(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.True(t, strings.HasPrefix(enrollment.ProvisioningURI, "otpauth://totp/"))
	require.Contains(t, enrollment.ProvisioningURI, "test-issuer")

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.MFAEnabled())
	require.Equal(t, domain.MFAMethodTOTP, *stored.MFAMethod)
	require.Equal(t, enrollment.Secret, *stored.MFASecret)

	t.Run("second enrolment rejected", func(t *testing.T) {
		_, err := svc.SetupTOTP(ctx, user.ID)
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})
}

func TestSetupEmail(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@example.com", "correct horse battery")

	svc := &MFAService{Store: st, Mailer: mail.LogMailer{}, Issuer: "test-issuer", OTPTTL: 5 * time.Minute}

	require.NoError(t, svc.SetupEmail(ctx, user.ID))

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, stored.MFAEnabled())
	require.Equal(t, domain.MFAMethodEmail, *stored.MFAMethod)
	require.Nil(t, stored.MFASecret)

	require.ErrorIs(t, svc.SetupEmail(ctx, user.ID), ErrMFAAlreadyEnabled)
}

func TestRemoveMFAIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	user := createTestUser(t, st, "alice@example.com", "correct horse battery")

	svc := &MFAService{Store: st, Mailer: mail.LogMailer{}, Issuer: "test-issuer", OTPTTL: 5 * time.Minute}

	_, err := svc.SetupTOTP(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, user.ID))

	stored, err := st.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, stored.MFAEnabled())
	require.Nil(t, stored.MFAMethod)
	require.Nil(t, stored.MFASecret)

	// Removing again is a no-op, not an error.
	require.NoError(t, svc.Remove(ctx, user.ID))

	// And the account can re-enrol afterwards.
	_, err = svc.SetupTOTP(ctx, user.ID)
	require.NoError(t, err)
}
