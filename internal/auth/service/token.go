package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/jwtx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrLoginRequired      = errors.New("login_required")
)

// MFARequiredError is an alias to the SDK's MFARequiredError for consistency.
// Use authsdk.MFARequiredError directly in new code.
type MFARequiredError = authsdk.MFARequiredError

// TokenService implements the OAuth2 token endpoint grants: redeeming
// authorization codes for user sessions and issuing machine tokens to
// confidential clients.
type TokenService struct {
	Signer         *jwtx.Signer
	Store          store.Store
	Issuer         string
	SessionTTL     time.Duration
	ClientTokenTTL time.Duration
}

// ExchangeAuthorizationCode implements the OAuth2 authorization_code grant.
//
// It validates the client authentication (for confidential clients), verifies
// the authorization code and PKCE proof, consumes the code, and issues a user
// session token. The consume step runs inside a transaction so two concurrent
// redemptions of the same code settle to exactly one winner.
func (s *TokenService) ExchangeAuthorizationCode(
	ctx context.Context,
	clientID, clientSecret, code, redirectURI, codeVerifier string,
) (*domain.Token, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	client, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !client.Active {
		return nil, ErrInvalidClient
	}

	// Confidential clients must authenticate
	if client.SecretHash != "" {
		if clientSecret == "" || cryptox.VerifyPassword(clientSecret, client.SecretHash) != nil {
			l.Info("authorization_code grant client authentication failed", slog.String("client_id", clientID))
			return nil, ErrInvalidClient
		}
	}

	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	codeVerifier = strings.TrimSpace(codeVerifier)
	if code == "" || redirectURI == "" {
		return nil, ErrInvalidGrant
	}

	codeHash := cryptox.FingerprintToken(code)

	var result *domain.Token

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		authCode, err := tx.AuthorizationCodes().GetAuthorizationCodeByHash(ctx, codeHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		// Binding mismatches all collapse to invalid_grant so a caller
		// holding someone else's code learns nothing about it.
		if authCode.ClientID != client.ID {
			return ErrInvalidGrant
		}
		if authCode.RedirectURI != redirectURI {
			return ErrInvalidGrant
		}
		if authCode.UsedAt != nil || authCode.Expired(now) {
			return ErrInvalidGrant
		}
		if !verifyCodeVerifier(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
			return ErrInvalidGrant
		}

		// Single-use gate. A concurrent exchange that lost the race sees
		// ErrAlreadyConsumed here.
		if err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, authCode.ID); err != nil {
			if errors.Is(err, store.ErrAlreadyConsumed) {
				return ErrInvalidGrant
			}
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, authCode.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidGrant
			}
			return err
		}

		claims := jwtx.NewSessionClaims(user.ID, user.Email, user.IsAdmin, user.Roles, s.SessionTTL, s.Issuer, now)
		claims.ClientID = client.ID
		claims.Scopes = authCode.Scopes

		accessToken, err := s.Signer.Sign(claims)
		if err != nil {
			return err
		}

		result = &domain.Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   s.SessionTTL,
			Scope:       strings.Join(authCode.Scopes, " "),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ExchangeClientCredentials implements the OAuth2 client_credentials grant.
//
// This grant is used for machine-to-machine authentication where a client
// authenticates as itself (not on behalf of a user). The client must be
// confidential (have a secret_hash) to use this grant. No refresh token is
// issued since the client can always re-authenticate.
func (s *TokenService) ExchangeClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
) (*domain.Token, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)

	c, err := s.Store.Clients().GetClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !c.Active {
		return nil, ErrInvalidClient
	}

	// Must be confidential for client_credentials
	if c.SecretHash == "" {
		l.Warn("client_credentials grant attempted with public client", "client_id", clientID)
		return nil, ErrInvalidClient
	}

	if err := cryptox.VerifyPassword(clientSecret, c.SecretHash); err != nil {
		l.Info("client secret verification failed", "client_id", clientID)
		return nil, ErrInvalidClient
	}

	claims := jwtx.NewClientClaims(c.ID, c.Scopes, s.ClientTokenTTL, s.Issuer, now)

	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		l.Error("failed to sign access token", "error", err)
		return nil, err
	}

	return &domain.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.ClientTokenTTL,
		Scope:       strings.Join(c.Scopes, " "),
	}, nil
}

func intersectScopes(a, b []string) []string {
	set := map[string]struct{}{}
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// verifyCodeVerifier checks the PKCE proof against the stored challenge.
// Issuance only ever records an S256 challenge, so a row missing one, or
// carrying any other method, fails closed.
func verifyCodeVerifier(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	verifier = strings.TrimSpace(verifier)
	if challenge == "" || verifier == "" {
		return false
	}
	if strings.TrimSpace(method) != domain.CodeChallengeMethodS256 {
		return false
	}

	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
}
