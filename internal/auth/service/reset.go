package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/mail"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/idx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

const minPasswordLength = 8

var ErrWeakPassword = errors.New("password does not meet minimum requirements")

// PasswordResetService drives the forgot-password lifecycle: issuing opaque
// single-use reset tokens, checking them, and redeeming them for a password
// change.
type PasswordResetService struct {
	Store  store.Store
	Mailer mail.Mailer

	// ResetURLBase is the prefix the raw token is appended to when building
	// the emailed link, e.g. "https://app.example.com/reset-password/".
	ResetURLBase string
	ResetTTL     time.Duration
}

// RequestReset issues a reset token for the address if it belongs to a known
// user. Unknown addresses are silently accepted so the endpoint cannot be
// used to probe which emails exist. Delivery is background, same as OTPs.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Debug("reset requested for unknown address")
			return nil
		}
		return err
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	ttl := s.ResetTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	record := domain.ResetToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: time.Now().Add(ttl),
	}

	if err := s.Store.ResetTokens().CreateResetToken(ctx, record); err != nil {
		return err
	}

	link := s.ResetURLBase + raw
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset your password here: %s\n\n"+
			"The link expires in %d minutes. If you did not request this, you can ignore this email.",
		link, int(ttl.Minutes()))

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailSendTimeout)
		defer cancel()
		if err := s.Mailer.Send(sendCtx, user.Email, "Reset your password", body); err != nil {
			l.Error("failed to deliver reset email", "error", err, "user_id", user.ID)
		}
	}()

	return nil
}

// VerifyToken checks a reset token without consuming it, so a reset form can
// validate the link before the user types a new password. On success it
// returns the masked email of the account the token belongs to.
func (s *PasswordResetService) VerifyToken(ctx context.Context, raw string) (string, error) {
	token, err := s.Store.ResetTokens().GetResetTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidGrant
		}
		return "", err
	}

	if !token.Usable(time.Now()) {
		return "", ErrInvalidGrant
	}

	user, err := s.Store.Users().GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidGrant
		}
		return "", err
	}

	return MaskEmail(user.Email), nil
}

// Redeem consumes a reset token and updates the password in one transaction.
// The consume is conditional on the token still being unused, so two
// concurrent redemptions settle to exactly one password change. Expired,
// unknown, and already-used tokens are all reported as ErrInvalidGrant.
func (s *PasswordResetService) Redeem(ctx context.Context, raw, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	hash := cryptox.FingerprintToken(raw)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		token, err := tx.ResetTokens().GetResetTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		if !token.Usable(now) {
			return ErrInvalidGrant
		}

		if err := tx.ResetTokens().ConsumeResetToken(ctx, token.ID); err != nil {
			if errors.Is(err, store.ErrAlreadyConsumed) {
				return ErrInvalidGrant
			}
			return err
		}

		return tx.Users().UpdatePasswordHash(ctx, token.UserID, newHash)
	})
}

// MaskEmail reduces an address to its first character and domain, e.g.
// "alice@example.com" becomes "a***@example.com".
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
