package domain

import "time"

// MFA method identifiers stored on a credential record.
const (
	MFAMethodTOTP  = "totp"
	MFAMethodEmail = "email"
)

// Credential is a user credential record. MFASecret is only set for TOTP
// enrolment; email MFA stores no secret because codes are issued per login.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string  // argon2 encoded
	MFAMethod    *string // "totp" or "email" (nullable, nil = MFA disabled)
	MFASecret    *string // TOTP secret (nullable, base32 encoded)
	Roles        []string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAEnabled reports whether a second factor is configured.
func (c *Credential) MFAEnabled() bool {
	return c.MFAMethod != nil && *c.MFAMethod != ""
}
