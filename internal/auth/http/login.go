package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/praxishq/praxis-auth/pkg/httpx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

// LoginHandler serves POST /auth/login.
type LoginHandler struct {
	LoginService *service.LoginService
}

// HandleLogin godoc
//
//	@Summary		Password Login
//	@Description	Verifies an email/password pair and issues a JWT session token.
//	@Description	Accounts with a second factor configured receive 402 with the available
//	@Description	MFA methods instead of a token; complete the login via /auth/mfa/verify.
//	@Description	Unknown email and wrong password produce identical error responses.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"email and password"
//	@Success		200		{object}	authsdk.TokenResponse	"access_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		402		{object}	authsdk.ErrorResponse	"error, error_description, mfa_methods"
//	@Failure		500		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/auth/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tok, err := h.LoginService.Login(ctx, req.Email, req.Password)
	if err != nil {
		var mfaErr *authsdk.MFARequiredError
		switch {
		case errors.As(err, &mfaErr):
			mfaErr.WriteError(w)
		case errors.Is(err, service.ErrInvalidCredentials):
			authsdk.ErrInvalidCredentials.WriteError(w)
		default:
			log.Error("login failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	response := authsdk.TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
		Scope:       strings.TrimSpace(tok.Scope),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}
