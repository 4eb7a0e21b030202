package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/idx"
)

// AuthorizeService encapsulates the OAuth2 authorization-code issuance flow.
type AuthorizeService struct {
	Store   store.Store
	CodeTTL time.Duration
}

// AuthorizeRequest captures the validated inputs required to issue an
// authorization code. UserID comes from the caller's authenticated session;
// when it is empty the flow defers to the login page instead of issuing.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string
}

// AuthorizeCodeResponse contains the authorization code and redirect
// information. This is returned on successful authorization and should be
// used to build the redirect.
type AuthorizeCodeResponse struct {
	Code        string
	RedirectURI string
	State       string
}

// IssueAuthorizationCode implements the OAuth2 authorization code flow per
// RFC 6749 section 4.1 with mandatory PKCE (RFC 7636).
//
// Security requirements:
//
//   - The caller must already be authenticated. Without a session the method
//     returns ErrLoginRequired and the handler defers to the login flow,
//     carrying the original query so state survives byte-for-byte.
//
//   - PKCE is mandatory for every client and code_challenge_method must be
//     exactly S256. An omitted method is rejected rather than falling back
//     to the RFC 7636 plain default.
//
//   - redirect_uri must exactly match one of the client's registered URIs.
//     On a mismatch the request fails locally; nothing is ever redirected to
//     an unregistered URI.
//
//   - Codes are single-use and expire after CodeTTL (default: 10 minutes).
//
// Returns:
//   - (*AuthorizeCodeResponse, nil) on success
//   - (nil, ErrLoginRequired) when no authenticated user is present
//   - (nil, ErrInvalidClient) when client_id is unknown or inactive
//   - (nil, ErrInvalidRequest) when parameters are missing, the redirect URI
//     is not registered, or the PKCE challenge or method is absent or not S256
//   - (nil, ErrInvalidScope) when no requested scope survives the client's
//     allow-list
func (s *AuthorizeService) IssueAuthorizationCode(ctx context.Context, req AuthorizeRequest) (*AuthorizeCodeResponse, error) {
	if strings.TrimSpace(req.ResponseType) != "code" {
		return nil, ErrInvalidRequest
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.RedirectURI) == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.Store.Clients().GetClientByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !client.Active {
		return nil, ErrInvalidClient
	}

	// Exact-match allow-list. Checked before anything else that could
	// leak a code so a forged redirect_uri never receives one.
	if !client.AllowsRedirectURI(req.RedirectURI) {
		return nil, ErrInvalidRequest
	}

	challenge := strings.TrimSpace(req.CodeChallenge)
	if challenge == "" {
		return nil, ErrInvalidRequest
	}
	if strings.TrimSpace(req.CodeChallengeMethod) != domain.CodeChallengeMethodS256 {
		return nil, ErrInvalidRequest
	}

	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrLoginRequired
	}

	user, err := s.Store.Users().GetUserByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrLoginRequired
		}
		return nil, err
	}

	requested := req.Scope
	if len(requested) == 0 {
		requested = client.Scopes
	}
	effective := intersectScopes(requested, client.Scopes)
	if len(requested) > 0 && len(effective) == 0 && len(client.Scopes) > 0 {
		return nil, ErrInvalidScope
	}

	now := time.Now()
	code, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	ttl := s.CodeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	record := domain.AuthorizationCode{
		ID:                  idx.New().String(),
		UserID:              user.ID,
		ClientID:            client.ID,
		CodeHash:            cryptox.FingerprintToken(code),
		RedirectURI:         req.RedirectURI,
		Scopes:              effective,
		CodeChallenge:       challenge,
		CodeChallengeMethod: domain.CodeChallengeMethodS256,
		ExpiresAt:           now.Add(ttl),
		CreatedAt:           now,
	}

	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return nil, err
	}

	return &AuthorizeCodeResponse{
		Code:        code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
	}, nil
}
