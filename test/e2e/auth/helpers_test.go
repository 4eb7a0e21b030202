package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, seeding, and PKCE helpers.
 */

const (
	testImageName = "praxis-auth-test:latest"

	userEmail    = "alice@example.com"
	userPassword = "correct horse battery staple"

	webClientID     = "web-app"
	webRedirectURI  = "https://app.example/callback"
	machineClientID = "reporting-job"
	machineSecret   = "machine-secret-for-tests"
)

var clientScopes = []string{"profile:read", "orders:write"}

// TestMain builds the Docker image once before all tests and cleans it up
// after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// writeSeedFiles renders the client and user seed JSON the container loads
// at startup.
func writeSeedFiles(t *testing.T) (clientsPath, usersPath string) {
	t.Helper()

	dir := t.TempDir()

	clients := []map[string]any{
		{
			"id":            webClientID,
			"name":          "Web App",
			"redirect_uris": []string{webRedirectURI},
			"scopes":        clientScopes,
		},
		{
			"id":     machineClientID,
			"name":   "Reporting Job",
			"secret": machineSecret,
			"scopes": []string{"reports:run"},
		},
	}
	users := []map[string]any{
		{
			"email":    userEmail,
			"password": userPassword,
			"roles":    []string{"member"},
		},
	}

	clientsPath = filepath.Join(dir, "clients.json")
	usersPath = filepath.Join(dir, "users.json")

	data, err := json.Marshal(clients)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(clientsPath, data, 0o600))

	data, err = json.Marshal(users)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(usersPath, data, 0o600))

	return clientsPath, usersPath
}

// setupAuthContainer starts the auth service in a container and returns the base URL.
func setupAuthContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	clientsPath, usersPath := writeSeedFiles(t)

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"AUTH_JWT_SECRET":    "e2e-test-secret-e2e-test-secret-32b",
			"AUTH_ISSUER":        "praxis-auth-test",
			"AUTH_DATABASE_FILE": "/auth.db",
			"AUTH_PEPPER_FILE":   "/pepper",
			"AUTH_CLIENTS_FILE":  "/seed/clients.json",
			"AUTH_USERS_FILE":    "/seed/users.json",
			"ENV":                "test",
			"LOG_LEVEL":          "info",
			"LOG_FORMAT":         "json",
		},
		Files: []testcontainers.ContainerFile{
			{HostFilePath: clientsPath, ContainerFilePath: "/seed/clients.json", FileMode: 0o644},
			{HostFilePath: usersPath, ContainerFilePath: "/seed/users.json", FileMode: 0o644},
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// newPKCEPair generates a fresh code verifier and its S256 challenge.
func newPKCEPair(t *testing.T) (verifier, challenge string) {
	t.Helper()

	buf := make([]byte, 32)
	_, err := rand.Read(buf)
	require.NoError(t, err)

	verifier = base64.RawURLEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(sum[:])
	return verifier, challenge
}

// loginSession performs a password login and returns the session token.
func loginSession(t *testing.T, client *authsdk.Client) string {
	t.Helper()

	tok, err := client.Login(t.Context(), userEmail, userPassword)
	require.NoError(t, err, "Login should succeed")
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn, "Token lifetime should be positive")
}
