package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/praxishq/praxis-auth/pkg/httpx"
	"github.com/praxishq/praxis-auth/pkg/jwtx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

const sessionCookieName = "praxis_session"

// AuthorizeHandler processes OAuth2 authorization requests (authorization code flow).
type AuthorizeHandler struct {
	AuthorizeService *service.AuthorizeService
	Verifier         *jwtx.Verifier
	LoginURL         string
	Logger           *slog.Logger
}

// HandleGet godoc
//
//	@Summary		OAuth2 authorization endpoint
//	@Description	Initiates the OAuth2 authorization code flow. The caller must already
//	@Description	hold a session token, supplied either as a Bearer token or a session
//	@Description	cookie. PKCE with the S256 method is mandatory for every client.
//	@Description
//	@Description	**Response:**
//	@Description	- Success: 302 redirect to redirect_uri with code and state parameters
//	@Description	- No session: 302 redirect to the login page carrying the original query
//	@Description	- Invalid client or redirect_uri: 400 JSON error, never a redirect
//	@Tags			OAuth2
//	@Produce		json
//	@Param			response_type			query		string	true	"Must be 'code'"	default(code)
//	@Param			client_id				query		string	true	"OAuth2 client identifier"
//	@Param			redirect_uri			query		string	true	"Callback URI (must exactly match a registered redirect URI)"
//	@Param			scope					query		string	false	"Space-delimited list of scopes"
//	@Param			state					query		string	false	"Opaque value echoed back on the redirect (recommended)"
//	@Param			code_challenge			query		string	true	"PKCE code challenge"
//	@Param			code_challenge_method	query		string	true	"PKCE method, must be S256"
//	@Success		302						{string}	string	"Redirect to redirect_uri with code and state"
//	@Failure		400						{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/oauth/authorize [get]
func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	query := r.URL.Query()
	authReq := service.AuthorizeRequest{
		ResponseType:        query.Get("response_type"),
		ClientID:            query.Get("client_id"),
		RedirectURI:         query.Get("redirect_uri"),
		Scope:               httpx.ParseSpaceDelimitedFields(query.Get("scope")),
		State:               query.Get("state"),
		CodeChallenge:       query.Get("code_challenge"),
		CodeChallengeMethod: query.Get("code_challenge_method"),
		UserID:              h.resolveUser(r),
	}

	resp, err := h.AuthorizeService.IssueAuthorizationCode(ctx, authReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoginRequired):
			h.redirectToLogin(w, r)
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		case errors.Is(err, service.ErrInvalidRequest):
			authsdk.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, service.ErrInvalidScope):
			// The client and redirect URI validated, so the error may be
			// reported on the callback per RFC 6749 section 4.1.2.1.
			h.redirectError(w, r, authReq, "invalid_scope")
		default:
			log.Error("authorize failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	redirect, err := buildCallbackURL(resp.RedirectURI, url.Values{
		"code":  {resp.Code},
		"state": {resp.State},
	}, resp.State != "")
	if err != nil {
		log.Error("failed to build redirect", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// resolveUser extracts the authenticated subject from a Bearer token or the
// session cookie. An invalid token is treated the same as no token; the flow
// then defers to the login page.
func (h *AuthorizeHandler) resolveUser(r *http.Request) string {
	raw := ""
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	} else if cookie, err := r.Cookie(sessionCookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		return ""
	}

	claims, err := h.Verifier.Verify(raw)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// redirectToLogin defers the flow to the login page. The original query
// string rides along untouched so the client's state survives byte-for-byte
// when the login page replays the authorize request.
func (h *AuthorizeHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Path
	if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}

	target := h.LoginURL
	if strings.Contains(target, "?") {
		target += "&return_to=" + url.QueryEscape(returnTo)
	} else {
		target += "?return_to=" + url.QueryEscape(returnTo)
	}

	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthorizeHandler) redirectError(w http.ResponseWriter, r *http.Request, req service.AuthorizeRequest, code string) {
	redirect, err := buildCallbackURL(req.RedirectURI, url.Values{
		"error": {code},
		"state": {req.State},
	}, req.State != "")
	if err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	httpx.NoCache(w)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// buildCallbackURL appends the given parameters to a registered redirect URI,
// preserving any query parameters the client registered.
func buildCallbackURL(redirectURI string, params url.Values, includeState bool) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, vs := range params {
		if k == "state" && !includeState {
			continue
		}
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
