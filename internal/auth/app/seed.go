package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/cryptox"
	"github.com/praxishq/praxis-auth/pkg/idx"
)

// clientRegistration is one entry in the clients file. Secrets are given in
// plaintext in the file and hashed before they reach the database, so the
// database never holds a recoverable secret.
type clientRegistration struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Secret       string   `json:"secret,omitempty"`
	RedirectURIs []string `json:"redirect_uris,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// userRegistration is one entry in the users file.
type userRegistration struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles,omitempty"`
	IsAdmin  bool     `json:"is_admin,omitempty"`
}

// seedClients loads the OAuth client registrations from the configured JSON
// file and upserts them into the database. Re-running with the same file is
// idempotent. A missing ClientsFile setting is a no-op.
func (app *Application) seedClients(ctx context.Context) error {
	if app.cfg.ClientsFile == "" {
		return nil
	}

	data, err := os.ReadFile(app.cfg.ClientsFile)
	if err != nil {
		return fmt.Errorf("failed to read clients file: %w", err)
	}

	var regs []clientRegistration
	if err := json.Unmarshal(data, &regs); err != nil {
		return fmt.Errorf("failed to parse clients file: %w", err)
	}

	now := time.Now().UTC()
	for _, reg := range regs {
		if reg.ID == "" {
			return fmt.Errorf("clients file entry missing id")
		}

		var secretHash string
		if reg.Secret != "" {
			secretHash, err = cryptox.HashPassword(reg.Secret)
			if err != nil {
				return fmt.Errorf("failed to hash secret for client %q: %w", reg.ID, err)
			}
		}

		active := true
		if reg.Active != nil {
			active = *reg.Active
		}

		client := domain.Client{
			ID:           reg.ID,
			Name:         reg.Name,
			SecretHash:   secretHash,
			RedirectURIs: reg.RedirectURIs,
			Scopes:       reg.Scopes,
			Active:       active,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := app.db.Clients().UpsertClient(ctx, client); err != nil {
			return fmt.Errorf("failed to register client %q: %w", reg.ID, err)
		}
	}

	app.logger.Info("oauth clients registered", "count", len(regs))
	return nil
}

// seedUsers loads credential records from the configured JSON file. Unlike
// clients, existing users are left untouched so a restart never reverts a
// password the user has since changed.
func (app *Application) seedUsers(ctx context.Context) error {
	if app.cfg.UsersFile == "" {
		return nil
	}

	data, err := os.ReadFile(app.cfg.UsersFile)
	if err != nil {
		return fmt.Errorf("failed to read users file: %w", err)
	}

	var regs []userRegistration
	if err := json.Unmarshal(data, &regs); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}

	created := 0
	for _, reg := range regs {
		if reg.Email == "" || reg.Password == "" {
			return fmt.Errorf("users file entry missing email or password")
		}

		_, err := app.db.Users().GetUserByEmail(ctx, reg.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hash, err := cryptox.HashPassword(reg.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %q: %w", reg.Email, err)
		}

		now := time.Now().UTC()
		user := domain.Credential{
			ID:           idx.New().String(),
			Email:        reg.Email,
			PasswordHash: hash,
			Roles:        reg.Roles,
			IsAdmin:      reg.IsAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := app.db.Users().CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %q: %w", reg.Email, err)
		}
		created++
	}

	if created > 0 {
		app.logger.Info("users seeded", "count", created)
	}
	return nil
}
