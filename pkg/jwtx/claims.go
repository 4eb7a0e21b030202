package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the session flows.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultSessionTTL is the default lifetime for interactive user sessions.
	DefaultSessionTTL = 1 * time.Hour

	// DefaultClientTokenTTL is the default lifetime for client_credentials
	// tokens. Machine clients re-authenticate rarely, so these run longer.
	DefaultClientTokenTTL = 12 * time.Hour
)

// Claims are the session-token claims used across the service. We are keeping
// additive changes to preserve compatibility for later.
type Claims struct {
	jwt.RegisteredClaims

	/* Cross-service custom fields */

	// Email of the authenticated user. Empty for machine clients.
	Email string `json:"email,omitempty"`

	// IsAdmin mirrors the credential record's admin flag.
	IsAdmin bool `json:"is_admin,omitempty"`

	// Roles assigned to the user, e.g. ["billing", "reviewer"].
	Roles []string `json:"roles,omitempty"`

	// Scopes granted to a machine client ("export:read export:write").
	Scopes []string `json:"scopes,omitempty"`

	// ClientID records the OAuth client a delegated session was issued
	// through. Kept for audit trails; empty for direct logins.
	ClientID string `json:"client_id,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for an interactive user
// session. The subject is the user id.
func NewSessionClaims(
	userID, email string,
	isAdmin bool,
	roles []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:   email,
		IsAdmin: isAdmin,
		Roles:   roles,
	}
}

// NewClientClaims builds claims for a machine client token. The subject is
// the client id and the scope set is fixed by the client record.
func NewClientClaims(
	clientID string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Scopes:   scopes,
		ClientID: clientID,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. There
// might be a better way of doing this, but I'm being lazy and using random.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	// Check expired (exp)
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrInvalidToken
	}

	// Check if a valid token isn't used before it is valid (nbf)
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrInvalidToken
	}

	return nil
}
