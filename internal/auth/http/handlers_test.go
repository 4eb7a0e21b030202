package http

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/mail"
	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/internal/auth/store/drivers/sqlite"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/idx"
	"github.com/praxishq/praxis-auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type testEnv struct {
	store     store.Store
	signerCfg jwtx.Config
	login     *service.LoginService
	authorize *service.AuthorizeService
	token     *service.TokenService
	reset     *service.PasswordResetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cfg := jwtx.Config{
		Secret: []byte("test-secret-test-secret-test-secret!"),
		Issuer: "test-issuer",
	}
	signer := jwtx.NewSigner(cfg)

	mfa := &service.MFAService{Store: st, Mailer: mail.LogMailer{}, Issuer: "test-issuer", OTPTTL: 5 * time.Minute}

	return &testEnv{
		store:     st,
		signerCfg: cfg,
		login: &service.LoginService{
			Store:      st,
			Signer:     signer,
			MFA:        mfa,
			Issuer:     "test-issuer",
			SessionTTL: time.Hour,
		},
		authorize: &service.AuthorizeService{Store: st, CodeTTL: 10 * time.Minute},
		token: &service.TokenService{
			Signer:         signer,
			Store:          st,
			Issuer:         "test-issuer",
			SessionTTL:     time.Hour,
			ClientTokenTTL: 12 * time.Hour,
		},
		reset: &service.PasswordResetService{
			Store:        st,
			Mailer:       mail.LogMailer{},
			ResetURLBase: "https://app.example/reset-password/",
			ResetTTL:     30 * time.Minute,
		},
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string) domain.Credential {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	user := domain.Credential{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) createClient(t *testing.T, secretHash string) domain.Client {
	t.Helper()

	client := domain.Client{
		ID:           idx.New().String(),
		Name:         "web-app",
		SecretHash:   secretHash,
		RedirectURIs: []string{"https://app.example/callback"},
		Scopes:       []string{"profile:read"},
		Active:       true,
	}
	require.NoError(t, e.store.Clients().UpsertClient(context.Background(), client))
	return client
}

func (e *testEnv) sessionToken(t *testing.T, email, password string) string {
	t.Helper()

	tok, err := e.login.Login(context.Background(), email, password)
	require.NoError(t, err)
	return tok.AccessToken
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse battery")
	h := &LoginHandler{LoginService: env.login}

	t.Run("valid credentials return a token", func(t *testing.T) {
		rec := postJSON(t, h.HandleLogin, "/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "correct horse battery",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		body := decodeBody(t, rec)
		require.NotEmpty(t, body["access_token"])
		require.Equal(t, "Bearer", body["token_type"])
		require.EqualValues(t, 3600, body["expires_in"])
	})

	t.Run("wrong password and unknown email produce identical bodies", func(t *testing.T) {
		wrongPassword := postJSON(t, h.HandleLogin, "/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "nope",
		})
		unknownEmail := postJSON(t, h.HandleLogin, "/auth/login", map[string]string{
			"email":    "nobody@example.com",
			"password": "nope",
		})

		require.Equal(t, http.StatusBadRequest, wrongPassword.Code)
		require.Equal(t, wrongPassword.Code, unknownEmail.Code)
		require.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	})

	t.Run("MFA-enabled account gets 402 with methods and no token", func(t *testing.T) {
		user := env.createUser(t, "bob@example.com", "correct horse battery")
		_, err := env.login.MFA.SetupTOTP(context.Background(), user.ID)
		require.NoError(t, err)

		rec := postJSON(t, h.HandleLogin, "/auth/login", map[string]string{
			"email":    "bob@example.com",
			"password": "correct horse battery",
		})
		require.Equal(t, http.StatusPaymentRequired, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "mfa_required", body["error"])
		require.Equal(t, []any{"totp"}, body["mfa_methods"])
		require.NotContains(t, body, "access_token")
	})
}

func TestAuthorizeHandler(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse battery")
	client := env.createClient(t, "")
	session := env.sessionToken(t, "alice@example.com", "correct horse battery")

	h := &AuthorizeHandler{
		AuthorizeService: env.authorize,
		Verifier:         jwtx.NewVerifier(env.signerCfg),
		LoginURL:         "/login",
	}

	verifier := "example-code-verifier"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	authorizeURL := func(extra url.Values) string {
		q := url.Values{
			"response_type":         {"code"},
			"client_id":             {client.ID},
			"redirect_uri":          {"https://app.example/callback"},
			"scope":                 {"profile:read"},
			"state":                 {"opaque-state"},
			"code_challenge":        {challenge},
			"code_challenge_method": {"S256"},
		}
		for k, vs := range extra {
			q[k] = vs
		}
		return "/oauth/authorize?" + q.Encode()
	}

	t.Run("authenticated request redirects with code and state", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil)
		req.Header.Set("Authorization", "Bearer "+session)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "app.example", loc.Host)
		require.Equal(t, "/callback", loc.Path)
		require.NotEmpty(t, loc.Query().Get("code"))
		require.Equal(t, "opaque-state", loc.Query().Get("state"))
	})

	t.Run("session cookie works like a bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil)
		req.AddCookie(&http.Cookie{Name: "praxis_session", Value: session})
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "code=")
	})

	t.Run("no session defers to login preserving the query", func(t *testing.T) {
		target := authorizeURL(nil)
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/login", loc.Path)

		returnTo := loc.Query().Get("return_to")
		require.Equal(t, target, returnTo, "original query must survive byte-for-byte")
	})

	t.Run("expired session is treated as no session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(nil), nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "/login?return_to=")
	})

	t.Run("unknown client fails locally, never redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(url.Values{"client_id": {"nope"}}), nil)
		req.Header.Set("Authorization", "Bearer "+session)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("unregistered redirect URI fails locally", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(url.Values{"redirect_uri": {"https://evil.example/cb"}}), nil)
		req.Header.Set("Authorization", "Bearer "+session)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, rec.Header().Get("Location"))
	})

	t.Run("plain challenge method rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(url.Values{"code_challenge_method": {"plain"}}), nil)
		req.Header.Set("Authorization", "Bearer "+session)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("excess scope reported on the callback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, authorizeURL(url.Values{"scope": {"admin:everything"}}), nil)
		req.Header.Set("Authorization", "Bearer "+session)
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "app.example", loc.Host)
		require.Equal(t, "invalid_scope", loc.Query().Get("error"))
		require.Equal(t, "opaque-state", loc.Query().Get("state"))
	})
}

func TestTokenHandlerAuthorizationCodeGrant(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "alice@example.com", "correct horse battery")
	client := env.createClient(t, "")

	h := &TokenHandler{TokenService: env.token}

	verifier := "example-code-verifier"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	issueCode := func(t *testing.T) string {
		t.Helper()
		resp, err := env.authorize.IssueAuthorizationCode(context.Background(), service.AuthorizeRequest{
			ResponseType:        "code",
			ClientID:            client.ID,
			RedirectURI:         "https://app.example/callback",
			Scope:               []string{"profile:read"},
			CodeChallenge:       challenge,
			CodeChallengeMethod: "S256",
			UserID:              user.ID,
		})
		require.NoError(t, err)
		return resp.Code
	}

	postForm := func(t *testing.T, form url.Values) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("exchange succeeds once then fails", func(t *testing.T) {
		code := issueCode(t)
		form := url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"redirect_uri":  {"https://app.example/callback"},
			"client_id":     {client.ID},
			"code_verifier": {verifier},
		}

		rec := postForm(t, form)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.NotEmpty(t, body["access_token"])
		require.Equal(t, "profile:read", body["scope"])

		replay := postForm(t, form)
		require.Equal(t, http.StatusBadRequest, replay.Code)
		require.Equal(t, "invalid_grant", decodeBody(t, replay)["error"])
	})

	t.Run("wrong verifier rejected", func(t *testing.T) {
		code := issueCode(t)
		rec := postForm(t, url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"redirect_uri":  {"https://app.example/callback"},
			"client_id":     {client.ID},
			"code_verifier": {"wrong"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_grant", decodeBody(t, rec)["error"])
	})

	t.Run("JSON content type rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		rec := postForm(t, url.Values{"grant_type": {"password"}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "unsupported_grant_type", decodeBody(t, rec)["error"])
	})
}

func TestTokenHandlerClientCredentialsGrant(t *testing.T) {
	env := newTestEnv(t)

	secret := "machine-secret-value"
	hash, err := cryptox.HashPassword(secret)
	require.NoError(t, err)
	client := env.createClient(t, hash)

	h := &TokenHandler{TokenService: env.token}

	postForm := func(t *testing.T, form url.Values) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid secret", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {client.ID},
			"client_secret": {secret},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		require.NotEmpty(t, body["access_token"])
		require.Equal(t, "profile:read", body["scope"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {client.ID},
			"client_secret": {"wrong"},
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_client", decodeBody(t, rec)["error"])
	})
}

func TestPasswordResetHandlers(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice@example.com", "correct horse battery")

	h := &PasswordResetHandler{ResetService: env.reset}

	t.Run("forgot-password responds identically for any address", func(t *testing.T) {
		known := postJSON(t, h.HandleForgot, "/auth/forgot-password", map[string]string{"email": "alice@example.com"})
		unknown := postJSON(t, h.HandleForgot, "/auth/forgot-password", map[string]string{"email": "nobody@example.com"})

		require.Equal(t, http.StatusOK, known.Code)
		require.Equal(t, known.Code, unknown.Code)
		require.JSONEq(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("verify reports invalid for an unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/verify-reset-token/bogus", nil)
		req.SetPathValue("token", "bogus")
		rec := httptest.NewRecorder()
		h.HandleVerifyToken(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, false, body["valid"])
		require.NotContains(t, body, "masked_email")
	})

	t.Run("set-new-password rejects unknown tokens", func(t *testing.T) {
		rec := postJSON(t, h.HandleSetNewPassword, "/auth/set-new-password", map[string]string{
			"token":        "bogus",
			"new_password": "brand new password",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_grant", decodeBody(t, rec)["error"])
	})

	t.Run("set-new-password rejects weak passwords", func(t *testing.T) {
		rec := postJSON(t, h.HandleSetNewPassword, "/auth/set-new-password", map[string]string{
			"token":        "bogus",
			"new_password": "short",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		require.Equal(t, "invalid_request", body["error"])
	})
}
