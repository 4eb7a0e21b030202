package domain

import "time"

// Token is what the login, MFA verify, client token, and code exchange
// endpoints return.
type Token struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type,omitempty"` // always "Bearer"
	ExpiresIn   time.Duration `json:"expires_in"`           // seconds until expiry
	Scope       string        `json:"scope,omitempty"`      // space-delimited
}
