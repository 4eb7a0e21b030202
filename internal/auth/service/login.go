package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/jwtx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

// LoginService verifies primary credentials and completes MFA challenges,
// issuing session tokens on success.
type LoginService struct {
	Store      store.Store
	Signer     *jwtx.Signer
	MFA        *MFAService
	Issuer     string
	SessionTTL time.Duration
}

// Login verifies an email/password pair.
//
// Outcomes:
//   - (*domain.Token, nil) when the password is correct and no MFA is set up
//   - (nil, *MFARequiredError) when the password is correct but a second
//     factor is outstanding. For email MFA a fresh code is issued as a side
//     effect, retiring any earlier unused codes.
//   - (nil, ErrInvalidCredentials) for unknown email or wrong password; the
//     two cases are indistinguishable to the caller.
func (s *LoginService) Login(ctx context.Context, email, password string) (*domain.Token, error) {
	l := slogx.FromContext(ctx)
	now := time.Now()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown emails must cost as much as wrong passwords.
			cryptox.BurnPasswordHash(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("password verification failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled() {
		method := *user.MFAMethod
		if method == domain.MFAMethodEmail {
			if err := s.MFA.IssueEmailOTP(ctx, user, domain.OTPPurposeLogin); err != nil {
				return nil, err
			}
		}
		return nil, &MFARequiredError{Methods: []string{method}}
	}

	return s.issueSession(user, now)
}

// VerifyMFA completes a login for an MFA-enabled account. The code is checked
// against the method configured on the credential: TOTP codes are validated
// with one period of clock skew, email codes are consumed single-use.
func (s *LoginService) VerifyMFA(ctx context.Context, email, code string) (*domain.Token, error) {
	l := slogx.FromContext(ctx)
	now := time.Now()

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrInvalidGrant
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}

	if !user.MFAEnabled() {
		return nil, ErrInvalidGrant
	}

	switch *user.MFAMethod {
	case domain.MFAMethodTOTP:
		if user.MFASecret == nil || *user.MFASecret == "" {
			return nil, ErrInvalidGrant
		}
		ok, err := validateTOTP(code, *user.MFASecret, now)
		if err != nil || !ok {
			l.Info("totp verification failed", "user_id", user.ID)
			return nil, ErrInvalidGrant
		}

	case domain.MFAMethodEmail:
		if err := s.MFA.VerifyEmailOTP(ctx, user.ID, domain.OTPPurposeLogin, code); err != nil {
			return nil, err
		}

	default:
		return nil, ErrInvalidGrant
	}

	return s.issueSession(user, now)
}

func (s *LoginService) issueSession(user domain.Credential, now time.Time) (*domain.Token, error) {
	claims := jwtx.NewSessionClaims(user.ID, user.Email, user.IsAdmin, user.Roles, s.SessionTTL, s.Issuer, now)

	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, err
	}

	return &domain.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.SessionTTL,
	}, nil
}
