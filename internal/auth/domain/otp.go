package domain

import "time"

// Email OTP purposes. Issuing a new code for a (user, purpose) pair
// invalidates any prior unused codes for that pair.
const (
	OTPPurposeLogin = "login"
)

// EmailOTP is a short-lived numeric code delivered by email. Only the
// fingerprint of the code is stored.
type EmailOTP struct {
	ID        string
	UserID    string
	Purpose   string
	CodeHash  string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
