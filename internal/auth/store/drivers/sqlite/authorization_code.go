package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/store"
)

type authorizationCodesRepo struct {
	db dbtx
}

const authorizationCodeColumns = `id, user_id, client_id, code_hash, redirect_uri, scopes,
	code_challenge, code_challenge_method, expires_at, used_at, created_at`

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes (id, user_id, client_id, code_hash, redirect_uri, scopes,
		   code_challenge, code_challenge_method, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.ID, code.UserID, code.ClientID, code.CodeHash, code.RedirectURI, joinList(code.Scopes),
		code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+authorizationCodeColumns+` FROM authorization_codes WHERE code_hash = ?`, hash)

	var (
		c      domain.AuthorizationCode
		scopes string
		usedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UserID, &c.ClientID, &c.CodeHash, &c.RedirectURI, &scopes,
		&c.CodeChallenge, &c.CodeChallengeMethod, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.Scopes = splitAndFilter(scopes)
	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

// ConsumeAuthorizationCode is the single-use gate for the code exchange. The
// guarded UPDATE only matches an unused row, so when two exchanges race
// exactly one sees an affected row.
func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyConsumed
	}
	return nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at < ?`, time.Now().UTC())
	return err
}
