package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the praxis auth service. All operations are
// unauthenticated except Authorize, which optionally carries a session token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new auth service client. The HTTP client never follows
// redirects so the authorize flow can inspect the Location header.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Login performs a password login. On MFA-enabled accounts it returns a
// *MFARequiredError; callers complete the flow with VerifyMFA.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.postJSONToken(ctx, "/auth/login", LoginRequest{Email: email, Password: password})
}

// VerifyMFA completes a login for an MFA-enabled account.
func (c *Client) VerifyMFA(ctx context.Context, email, code string) (*TokenResponse, error) {
	return c.postJSONToken(ctx, "/auth/mfa/verify", MFAVerifyRequest{Email: email, MFACode: code})
}

// ClientToken issues a machine token via the client_id/client_secret grant.
func (c *Client) ClientToken(ctx context.Context, clientID, clientSecret string) (*TokenResponse, error) {
	return c.postJSONToken(ctx, "/auth/token", ClientTokenRequest{ClientID: clientID, ClientSecret: clientSecret})
}

// AuthorizeParams are the query parameters for the authorize endpoint.
type AuthorizeParams struct {
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	State               string

	// SessionToken, when set, authenticates the call via the
	// Authorization header.
	SessionToken string
}

// Authorize drives GET /oauth/authorize and decodes the redirect outcome.
func (c *Client) Authorize(ctx context.Context, p AuthorizeParams) (*AuthorizeRedirect, error) {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("code_challenge", p.CodeChallenge)
	q.Set("code_challenge_method", p.CodeChallengeMethod)
	if p.State != "" {
		q.Set("state", p.State)
	}

	headers := map[string]string{}
	if p.SessionToken != "" {
		headers["Authorization"] = "Bearer " + p.SessionToken
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/oauth/authorize?"+q.Encode(), nil, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		return nil, parseErrorResponse(resp, body)
	}

	loc := resp.Header.Get("Location")
	u, err := url.Parse(loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redirect location: %w", err)
	}

	out := &AuthorizeRedirect{RedirectURI: loc}
	out.Code = u.Query().Get("code")
	out.State = u.Query().Get("state")
	out.LoginRequired = out.Code == ""
	return out, nil
}

// ExchangeCode redeems an authorization code at the token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, clientID, code, redirectURI, codeVerifier string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", clientID)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", codeVerifier)

	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth/token",
		strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// ForgotPassword initiates a password reset. The response is identical
// whether or not the address exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body, err := json.Marshal(ForgotPasswordRequest{Email: email})
	if err != nil {
		return err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/forgot-password",
		bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}

	var out ForgotPasswordResponse
	return decodeJSON(resp, &out, http.StatusOK)
}

// VerifyResetToken checks a reset token without consuming it.
func (c *Client) VerifyResetToken(ctx context.Context, token string) (*ResetTokenStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/verify-reset-token/"+url.PathEscape(token), nil, nil)
	if err != nil {
		return nil, err
	}

	var out ResetTokenStatus
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetNewPassword redeems a reset token and sets the new password.
func (c *Client) SetNewPassword(ctx context.Context, token, newPassword string) error {
	body, err := json.Marshal(SetNewPasswordRequest{Token: token, NewPassword: newPassword})
	if err != nil {
		return err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/set-new-password",
		bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return parseErrorResponse(resp, b)
}

// Livez calls the liveness probe.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSONToken(ctx context.Context, path string, payload any) (*TokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, path,
		bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}
