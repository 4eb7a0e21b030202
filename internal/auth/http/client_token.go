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

// ClientTokenHandler serves POST /auth/token, the JSON face of the
// client_credentials grant for machine clients.
type ClientTokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Client Token Endpoint
//	@Description	Issues a machine token to a confidential client authenticating with
//	@Description	client_id and client_secret. The granted scope is fixed by the client
//	@Description	registration. No refresh token is issued; clients re-authenticate.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ClientTokenRequest	true	"client_id and client_secret"
//	@Success		200		{object}	authsdk.TokenResponse		"access_token, token_type, expires_in, scope"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/auth/token [post].
func (h *ClientTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ClientTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" || req.ClientSecret == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tok, err := h.TokenService.ExchangeClientCredentials(ctx, clientID, req.ClientSecret)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			authsdk.ErrInvalidClient.WriteError(w)
		default:
			log.Error("client_credentials grant failed", "err", err)
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
