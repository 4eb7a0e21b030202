package auth_test

import (
	"strings"
	"testing"

	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationCodeFlow(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)
	session := loginSession(t, client)

	t.Run("full flow with PKCE", func(t *testing.T) {
		verifier, challenge := newPKCEPair(t)

		redirect, err := client.Authorize(t.Context(), authsdk.AuthorizeParams{
			ClientID:            webClientID,
			RedirectURI:         webRedirectURI,
			CodeChallenge:       challenge,
			CodeChallengeMethod: "S256",
			State:               "opaque-state",
			SessionToken:        session,
		})
		require.NoError(t, err)
		require.False(t, redirect.LoginRequired)
		require.NotEmpty(t, redirect.Code)
		require.Equal(t, "opaque-state", redirect.State, "state must be echoed verbatim")
		require.True(t, strings.HasPrefix(redirect.RedirectURI, webRedirectURI))

		tok, err := client.ExchangeCode(t.Context(), webClientID, redirect.Code, webRedirectURI, verifier)
		require.NoError(t, err)
		assertTokenResponse(t, tok)

		t.Run("code is single use", func(t *testing.T) {
			_, err := client.ExchangeCode(t.Context(), webClientID, redirect.Code, webRedirectURI, verifier)
			require.Error(t, err)

			var oauthErr *authsdk.OAuth2Error
			require.ErrorAs(t, err, &oauthErr)
			require.Equal(t, authsdk.ErrorCodeInvalidGrant, oauthErr.Code)
		})
	})

	t.Run("wrong verifier does not redeem", func(t *testing.T) {
		_, challenge := newPKCEPair(t)

		redirect, err := client.Authorize(t.Context(), authsdk.AuthorizeParams{
			ClientID:            webClientID,
			RedirectURI:         webRedirectURI,
			CodeChallenge:       challenge,
			CodeChallengeMethod: "S256",
			SessionToken:        session,
		})
		require.NoError(t, err)

		_, err = client.ExchangeCode(t.Context(), webClientID, redirect.Code, webRedirectURI, "wrong-verifier")
		require.Error(t, err)
	})

	t.Run("no session defers to login", func(t *testing.T) {
		_, challenge := newPKCEPair(t)

		redirect, err := client.Authorize(t.Context(), authsdk.AuthorizeParams{
			ClientID:            webClientID,
			RedirectURI:         webRedirectURI,
			CodeChallenge:       challenge,
			CodeChallengeMethod: "S256",
			State:               "keep-me",
		})
		require.NoError(t, err)
		require.True(t, redirect.LoginRequired)
		require.Contains(t, redirect.RedirectURI, "return_to=",
			"the original request must ride along to the login page")
	})

	t.Run("unregistered redirect URI fails without redirecting", func(t *testing.T) {
		_, challenge := newPKCEPair(t)

		_, err := client.Authorize(t.Context(), authsdk.AuthorizeParams{
			ClientID:            webClientID,
			RedirectURI:         "https://evil.example/callback",
			CodeChallenge:       challenge,
			CodeChallengeMethod: "S256",
			SessionToken:        session,
		})
		require.Error(t, err)

		var oauthErr *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oauthErr)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, oauthErr.Code)
	})
}
