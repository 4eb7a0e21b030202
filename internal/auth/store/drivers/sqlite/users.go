package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password_hash, mfa_method, mfa_secret, roles, is_admin, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.Credential, error) {
	var (
		c         domain.Credential
		mfaMethod sql.NullString
		mfaSecret sql.NullString
		roles     string
	)
	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &mfaMethod, &mfaSecret, &roles, &c.IsAdmin, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.MFAMethod = mapNullStringPtr(mfaMethod)
	c.MFASecret = mapNullStringPtr(mfaSecret)
	c.Roles = splitAndFilter(roles)
	return c, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, c domain.Credential) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, mfa_method, mfa_secret, roles, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Email, c.PasswordHash,
		mapOptionalString(c.MFAMethod), mapOptionalString(c.MFASecret),
		joinList(c.Roles), c.IsAdmin, now, now,
	)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) UpdateMFA(ctx context.Context, userID string, method *string, secret *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET mfa_method = ?, mfa_secret = ?, updated_at = ? WHERE id = ?`,
		mapOptionalString(method), mapOptionalString(secret), time.Now().UTC(), userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
