package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, redirect_uris, scopes, active, created_at, updated_at`

func scanClient(scan func(dest ...any) error) (domain.Client, error) {
	var (
		c            domain.Client
		secretHash   sql.NullString
		redirectURIs string
		scopes       string
	)
	err := scan(&c.ID, &c.Name, &secretHash, &redirectURIs, &scopes, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	if secretHash.Valid {
		c.SecretHash = secretHash.String
	}
	c.RedirectURIs = splitAndFilter(redirectURIs)
	c.Scopes = splitAndFilter(scopes)
	return c, nil
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	return scanClient(row.Scan)
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) UpsertClient(ctx context.Context, c domain.Client) error {
	now := time.Now().UTC()
	var secretHash sql.NullString
	if c.SecretHash != "" {
		secretHash = sql.NullString{String: c.SecretHash, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, secret_hash, redirect_uris, scopes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   secret_hash = excluded.secret_hash,
		   redirect_uris = excluded.redirect_uris,
		   scopes = excluded.scopes,
		   active = excluded.active,
		   updated_at = excluded.updated_at`,
		c.ID, c.Name, secretHash, joinList(c.RedirectURIs), joinList(c.Scopes), c.Active, now, now,
	)
	return err
}

func (r *clientsRepo) DeleteClient(ctx context.Context, clientID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, clientID)
	return err
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
