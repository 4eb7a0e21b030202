package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/praxishq/praxis-auth/pkg/httpx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

// MFAHandler serves the second-factor endpoints: completing a challenged
// login, and authenticated enrolment/removal.
type MFAHandler struct {
	LoginService *service.LoginService
	MFAService   *service.MFAService
}

type mfaSetupRequest struct {
	Method string `json:"method"`
}

// HandleVerify godoc
//
//	@Summary		Complete MFA Login
//	@Description	Completes a login that answered 402 mfa_required. The code is checked
//	@Description	against the method configured on the account: TOTP codes allow one
//	@Description	period of clock skew, email codes are single-use. All failures return
//	@Description	the same invalid_grant error.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.MFAVerifyRequest	true	"email and mfa_code"
//	@Success		200		{object}	authsdk.TokenResponse		"access_token, token_type, expires_in"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/auth/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.MFAVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	tok, err := h.LoginService.VerifyMFA(ctx, req.Email, req.MFACode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidGrant):
			authsdk.ErrInvalidGrant.WriteError(w)
		default:
			log.Error("mfa verification failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	response := authsdk.TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleSetup godoc
//
//	@Summary		Enable MFA
//	@Description	Enables a second factor for the authenticated account. For totp the
//	@Description	response carries the secret and provisioning URI; rendering the QR code
//	@Description	is the caller's job. For email no secret exists, codes are issued per
//	@Description	login attempt.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		mfaSetupRequest			true	"method: totp or email"
//	@Success		200		{object}	authsdk.MFASetupResponse	"secret, provisioning_uri (totp only)"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/auth/mfa/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req mfaSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Method)) {
	case domain.MFAMethodTOTP:
		enrollment, err := h.MFAService.SetupTOTP(ctx, userID)
		if err != nil {
			h.writeSetupError(w, log, err)
			return
		}
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, authsdk.MFASetupResponse{
			Secret:          enrollment.Secret,
			ProvisioningURI: enrollment.ProvisioningURI,
		})

	case domain.MFAMethodEmail:
		if err := h.MFAService.SetupEmail(ctx, userID); err != nil {
			h.writeSetupError(w, log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": "email MFA enabled",
		})

	default:
		authsdk.ErrInvalidRequest.WriteError(w)
	}
}

// HandleRemove godoc
//
//	@Summary		Disable MFA
//	@Description	Disables any configured second factor for the authenticated account.
//	@Description	Removing when nothing is enabled succeeds, the operation is idempotent.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204	"MFA disabled"
//	@Failure		401	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/auth/mfa [delete].
func (h *MFAHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.MFAService.Remove(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			authsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("mfa removal failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MFAHandler) writeSetupError(w http.ResponseWriter, log interface{ Error(string, ...any) }, err error) {
	switch {
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		authsdk.NewOAuth2Error(http.StatusConflict, authsdk.ErrorCodeInvalidRequest,
			"MFA is already enabled for this account").WriteError(w)
	case errors.Is(err, store.ErrNotFound):
		authsdk.ErrInvalidToken.WriteError(w)
	default:
		log.Error("mfa setup failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}
