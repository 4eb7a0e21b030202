package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/domain"
	"github.com/praxishq/praxis-auth/internal/auth/store"
)

type emailOTPsRepo struct {
	db dbtx
}

func (r *emailOTPsRepo) CreateEmailOTP(ctx context.Context, otp domain.EmailOTP) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_otps (id, user_id, purpose, code_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		otp.ID, otp.UserID, otp.Purpose, otp.CodeHash, otp.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

func (r *emailOTPsRepo) GetActiveEmailOTP(ctx context.Context, userID, purpose string) (domain.EmailOTP, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, purpose, code_hash, expires_at, used_at, created_at
		 FROM email_otps
		 WHERE user_id = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID, purpose, time.Now().UTC())

	var (
		otp    domain.EmailOTP
		usedAt sql.NullTime
	)
	err := row.Scan(&otp.ID, &otp.UserID, &otp.Purpose, &otp.CodeHash, &otp.ExpiresAt, &usedAt, &otp.CreatedAt)
	if err != nil {
		return domain.EmailOTP{}, mapNotFound(err)
	}
	otp.UsedAt = mapNullTimePtr(usedAt)
	return otp, nil
}

// InvalidateUnusedEmailOTPs retires every outstanding code for the pair so a
// reissued code is the only one that can verify.
func (r *emailOTPsRepo) InvalidateUnusedEmailOTPs(ctx context.Context, userID, purpose string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE email_otps SET used_at = ? WHERE user_id = ? AND purpose = ? AND used_at IS NULL`,
		time.Now().UTC(), userID, purpose)
	return err
}

// ConsumeEmailOTP marks the code used only if it is still unused.
func (r *emailOTPsRepo) ConsumeEmailOTP(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE email_otps SET used_at = ? WHERE id = ? AND used_at IS NULL`,
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

func (r *emailOTPsRepo) DeleteExpiredEmailOTPs(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_otps WHERE expires_at < ?`, time.Now().UTC())
	return err
}
