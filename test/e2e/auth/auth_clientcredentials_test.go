package auth_test

import (
	"testing"

	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestClientCredentialsGrant(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)

	t.Run("valid secret issues a scoped machine token", func(t *testing.T) {
		tok, err := client.ClientToken(t.Context(), machineClientID, machineSecret)
		require.NoError(t, err)
		assertTokenResponse(t, tok)
		require.Equal(t, "reports:run", tok.Scope)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		_, err := client.ClientToken(t.Context(), machineClientID, "wrong-secret")
		require.Error(t, err)

		var oauthErr *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oauthErr)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, oauthErr.Code)
	})

	t.Run("public client cannot use the grant", func(t *testing.T) {
		_, err := client.ClientToken(t.Context(), webClientID, "anything")
		require.Error(t, err)
	})
}
