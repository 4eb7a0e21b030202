package auth_test

import (
	"testing"

	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestPasswordLogin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)

	t.Run("valid credentials issue a session token", func(t *testing.T) {
		tok, err := client.Login(t.Context(), userEmail, userPassword)
		require.NoError(t, err)
		assertTokenResponse(t, tok)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, wrongPassword := client.Login(t.Context(), userEmail, "not-the-password")
		_, unknownEmail := client.Login(t.Context(), "nobody@example.com", "not-the-password")

		require.Error(t, wrongPassword)
		require.Error(t, unknownEmail)
		require.Equal(t, wrongPassword.Error(), unknownEmail.Error(),
			"both failures must produce the same error")
	})
}

func TestHealthProbes(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewClient(baseURL)

	health, err := client.Livez(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.NotEmpty(t, health.Version)
}
