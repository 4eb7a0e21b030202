package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/praxishq/praxis-auth/pkg/httpx"
	"github.com/praxishq/praxis-auth/pkg/slogx"
)

// forgotPasswordMessage is returned for every forgot-password request,
// known address or not.
const forgotPasswordMessage = "If that address belongs to an account, a reset link has been sent."

// PasswordResetHandler serves the forgot-password lifecycle endpoints.
type PasswordResetHandler struct {
	ResetService *service.PasswordResetService
}

// HandleForgot godoc
//
//	@Summary		Request Password Reset
//	@Description	Issues a single-use reset token and emails it as a link. The response is
//	@Description	identical whether or not the address belongs to an account, so the
//	@Description	endpoint cannot be used to probe which emails are registered.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	authsdk.ForgotPasswordResponse	"message"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/auth/forgot-password [post].
func (h *PasswordResetHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.ResetService.RequestReset(ctx, req.Email); err != nil {
		log.Error("reset request failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ForgotPasswordResponse{
		Message: forgotPasswordMessage,
	})
}

// HandleVerifyToken godoc
//
//	@Summary		Check Reset Token
//	@Description	Checks a reset token without consuming it, so a reset form can validate
//	@Description	the link before the user types a new password. A valid token reveals
//	@Description	only the masked email of the account it belongs to.
//	@Tags			Auth
//	@Produce		json
//	@Param			token	path		string					true	"Raw reset token from the emailed link"
//	@Success		200		{object}	authsdk.ResetTokenStatus	"valid, masked_email"
//	@Failure		500		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/auth/verify-reset-token/{token} [get].
func (h *PasswordResetHandler) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	masked, err := h.ResetService.VerifyToken(ctx, r.PathValue("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidGrant) {
			httpx.NoCache(w)
			httpx.WriteJSON(w, http.StatusOK, authsdk.ResetTokenStatus{Valid: false})
			return
		}
		log.Error("reset token verification failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ResetTokenStatus{
		Valid:       true,
		MaskedEmail: masked,
	})
}

// HandleSetNewPassword godoc
//
//	@Summary		Redeem Reset Token
//	@Description	Consumes a reset token and sets the new password atomically. A token can
//	@Description	only ever be redeemed once; expired, unknown, and already-used tokens
//	@Description	all produce the same invalid_grant error.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SetNewPasswordRequest	true	"token and new_password"
//	@Success		200		{object}	map[string]string				"message"
//	@Failure		400		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/auth/set-new-password [post].
func (h *PasswordResetHandler) HandleSetNewPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.SetNewPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if req.Token == "" || req.NewPassword == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.ResetService.Redeem(ctx, req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			authsdk.NewOAuth2Error(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest,
				"password does not meet minimum requirements").WriteError(w)
		case errors.Is(err, service.ErrInvalidGrant):
			authsdk.ErrInvalidGrant.WriteError(w)
		default:
			log.Error("reset redemption failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "password updated",
	})
}
