package authsdk

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
// This is used internally for parsing HTTP error responses. Client code
// should use the OAuth2Error type from errors.go instead.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse is returned by the login, MFA verify, client token, and
// code-exchange endpoints.
type TokenResponse struct {
	// AccessToken is the JWT session token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the session token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited scope list (client_credentials only)
	Scope string `json:"scope,omitempty"`
}

// ============================================================================
// Request / Response Bodies
// ============================================================================

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFAVerifyRequest is the body for POST /auth/mfa/verify.
type MFAVerifyRequest struct {
	Email   string `json:"email"`
	MFACode string `json:"mfa_code"`
}

// ClientTokenRequest is the body for POST /auth/token.
type ClientTokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordResponse is intentionally identical for known and unknown
// addresses.
type ForgotPasswordResponse struct {
	Message string `json:"message"`
}

// ResetTokenStatus is returned by GET /auth/verify-reset-token/{token}.
type ResetTokenStatus struct {
	Valid bool `json:"valid"`

	// MaskedEmail shows only the first character and the domain, e.g.
	// "a***@example.com". Present only when Valid is true.
	MaskedEmail string `json:"masked_email,omitempty"`
}

// SetNewPasswordRequest is the body for POST /auth/set-new-password.
type SetNewPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MFASetupResponse is returned by POST /auth/mfa/setup. The provisioning URI
// is rendered as a QR code by the caller; this service never renders it.
type MFASetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// AuthorizeRedirect captures the Location of a successful authorize call.
type AuthorizeRedirect struct {
	// RedirectURI is the full callback URL including code and state.
	RedirectURI string

	// Code is the authorization code extracted from the redirect.
	Code string

	// State is the echoed state parameter.
	State string

	// LoginRequired is true when the server deferred to the login flow
	// instead of issuing a code.
	LoginRequired bool
}

// ============================================================================
// Health Types
// ============================================================================

// HealthChecks reports per-dependency status in readiness probes.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
