package domain

import "time"

// CodeChallengeMethodS256 is the only PKCE method accepted, at issuance and
// at redemption alike.
const CodeChallengeMethodS256 = "S256"

// AuthorizationCode represents an OAuth 2.0 authorization code issuance. The
// code itself is never stored, only its fingerprint.
type AuthorizationCode struct {
	ID                  string
	UserID              string
	ClientID            string
	CodeHash            string
	RedirectURI         string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	UsedAt              *time.Time
	CreatedAt           time.Time
}

// Expired reports whether the code is past its expiry at the given instant.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
