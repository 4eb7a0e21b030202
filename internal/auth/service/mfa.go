package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/mail"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/idx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	emailOTPDigits = 6

	// mailSendTimeout bounds the background delivery goroutine so a hung
	// SMTP relay cannot pile up goroutines forever.
	mailSendTimeout = 15 * time.Second
)

var (
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
)

// MFAService manages second-factor enrolment and email one-time codes.
type MFAService struct {
	Store  store.Store
	Mailer mail.Mailer
	Issuer string // Issuer label for TOTP provisioning URIs
	OTPTTL time.Duration
}

// TOTPEnrollment is returned by SetupTOTP. The provisioning URI is rendered
// as a QR code by the caller; this service never renders it.
type TOTPEnrollment struct {
	Secret          string
	ProvisioningURI string
}

// SetupTOTP generates a TOTP secret for the user and enables the totp method.
func (s *MFAService) SetupTOTP(ctx context.Context, userID string) (TOTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	if user.MFAEnabled() {
		return TOTPEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	method := domain.MFAMethodTOTP
	secret := key.Secret()
	if err := s.Store.Users().UpdateMFA(ctx, userID, &method, &secret); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	return TOTPEnrollment{
		Secret:          secret,
		ProvisioningURI: key.URL(),
	}, nil
}

// SetupEmail enables the email OTP method. No secret is stored; codes are
// issued per login attempt.
func (s *MFAService) SetupEmail(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}

	method := domain.MFAMethodEmail
	return s.Store.Users().UpdateMFA(ctx, userID, &method, nil)
}

// Remove disables MFA for the user. Removing when nothing is enabled is a
// no-op, so the operation is idempotent.
func (s *MFAService) Remove(ctx context.Context, userID string) error {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return err
	}
	return s.Store.Users().UpdateMFA(ctx, userID, nil, nil)
}

// IssueEmailOTP mints a fresh numeric code for the user and purpose,
// retiring any earlier unused codes for the same pair so only the newest
// code can verify. Delivery happens in the background; the login response
// never waits on SMTP.
func (s *MFAService) IssueEmailOTP(ctx context.Context, user domain.Credential, purpose string) error {
	l := slogx.FromContext(ctx)

	code, err := cryptox.GenerateNumericCode(emailOTPDigits)
	if err != nil {
		return err
	}

	ttl := s.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	record := domain.EmailOTP{
		ID:        idx.New().String(),
		UserID:    user.ID,
		Purpose:   purpose,
		CodeHash:  cryptox.FingerprintToken(code),
		ExpiresAt: time.Now().Add(ttl),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailOTPs().InvalidateUnusedEmailOTPs(ctx, user.ID, purpose); err != nil {
			return err
		}
		return tx.EmailOTPs().CreateEmailOTP(ctx, record)
	})
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailSendTimeout)
		defer cancel()
		if err := s.Mailer.Send(sendCtx, user.Email, "Your verification code", body); err != nil {
			l.Error("failed to deliver email OTP", "error", err, "user_id", user.ID)
		}
	}()

	return nil
}

// VerifyEmailOTP checks a submitted code against the newest active code for
// the pair and consumes it. A code can only ever verify once; the concurrent
// loser of the consume race gets ErrInvalidGrant like any other bad code.
func (s *MFAService) VerifyEmailOTP(ctx context.Context, userID, purpose, code string) error {
	active, err := s.Store.EmailOTPs().GetActiveEmailOTP(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidGrant
		}
		return err
	}

	submitted := cryptox.FingerprintToken(code)
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(active.CodeHash)) != 1 {
		return ErrInvalidGrant
	}

	if err := s.Store.EmailOTPs().ConsumeEmailOTP(ctx, active.ID); err != nil {
		if errors.Is(err, store.ErrAlreadyConsumed) {
			return ErrInvalidGrant
		}
		return err
	}
	return nil
}

// validateTOTP accepts codes from the current 30s period plus one period of
// skew either side, matching what authenticator apps expect.
func validateTOTP(code, secret string, now time.Time) (bool, error) {
	return totp.ValidateCustom(code, secret, now.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
