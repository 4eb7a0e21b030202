package store

import (
	"context"
	"errors"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrAlreadyConsumed is returned by conditional consume operations when
	// the row exists but was already marked used by a concurrent caller.
	ErrAlreadyConsumed = errors.New("store: already consumed")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Clients() Clients
	AuthorizationCodes() AuthorizationCodes
	ResetTokens() ResetTokens
	EmailOTPs() EmailOTPs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., reset
	// redemption). The caller MUST call Commit() or Rollback() on the
	// returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a credential record by id.
	GetUserByID(ctx context.Context, id string) (domain.Credential, error)

	// GetUserByEmail is used during password login and the reset flow.
	GetUserByEmail(ctx context.Context, email string) (domain.Credential, error)

	// CreateUser inserts a new credential (id is provided by app via ULID).
	CreateUser(ctx context.Context, c domain.Credential) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateMFA sets the MFA method and secret together. Passing nil for both
	// disables MFA.
	UpdateMFA(ctx context.Context, userID string, method *string, secret *string) error

	// DeleteUser cascades to authorization codes and reset tokens (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Clients interface {
	// GetClientByID fetches a client (for both grants).
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClients returns all clients ordered by creation date (newest first).
	ListClients(ctx context.Context) ([]domain.Client, error)

	// UpsertClient inserts or replaces a client registration. Used by the
	// seed loader at startup.
	UpsertClient(ctx context.Context, c domain.Client) error

	// DeleteClient cascades to authorization codes (per schema).
	DeleteClient(ctx context.Context, clientID string) error

	// IsEmpty returns true if there are no clients.
	IsEmpty(ctx context.Context) (bool, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode stores a freshly minted authorization code.
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// GetAuthorizationCodeByHash fetches a code by its hashed value when redeeming.
	GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error)

	// ConsumeAuthorizationCode atomically marks a code used. It only succeeds
	// if the code is currently unused; a concurrent second redemption gets
	// ErrAlreadyConsumed.
	ConsumeAuthorizationCode(ctx context.Context, id string) error

	// DeleteExpiredAuthorizationCodes removes any codes that are no longer valid.
	DeleteExpiredAuthorizationCodes(ctx context.Context) error
}

type ResetTokens interface {
	// CreateResetToken stores a new password reset token record.
	CreateResetToken(ctx context.Context, t domain.ResetToken) error

	// GetResetTokenByHash fetches a reset token by its hashed value.
	GetResetTokenByHash(ctx context.Context, hash string) (domain.ResetToken, error)

	// ConsumeResetToken atomically marks a token used, failing with
	// ErrAlreadyConsumed if it was already redeemed.
	ConsumeResetToken(ctx context.Context, id string) error

	// DeleteExpiredResetTokens is housekeeping.
	DeleteExpiredResetTokens(ctx context.Context) error
}

type EmailOTPs interface {
	// CreateEmailOTP stores a new one-time code record.
	CreateEmailOTP(ctx context.Context, otp domain.EmailOTP) error

	// GetActiveEmailOTP returns the newest unused, unexpired code for a
	// (user, purpose) pair.
	GetActiveEmailOTP(ctx context.Context, userID, purpose string) (domain.EmailOTP, error)

	// InvalidateUnusedEmailOTPs marks all unused codes for a (user, purpose)
	// pair as used. Called before issuing a replacement code.
	InvalidateUnusedEmailOTPs(ctx context.Context, userID, purpose string) error

	// ConsumeEmailOTP atomically marks a code used, failing with
	// ErrAlreadyConsumed if it was already redeemed.
	ConsumeEmailOTP(ctx context.Context, id string) error

	// DeleteExpiredEmailOTPs is housekeeping.
	DeleteExpiredEmailOTPs(ctx context.Context) error
}
