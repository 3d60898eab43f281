package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/repository/common"
)

const otpColumns = `id, phone, purpose, code_hash, attempts, max_attempts, verified, created_at, expires_at, verified_at`

// OTPRepository хранит записи otp_verifications.
// Каждая операция это отдельный запрос к базе; состояние в памяти не кешируется.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт репозиторий поверх уже открытого соединения.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// FindLiveChallenge возвращает последний неподтверждённый и не истёкший код для пары (phone, purpose).
func (r *OTPRepository) FindLiveChallenge(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPVerification, error) {
	query := `SELECT ` + otpColumns + `
		FROM otp_verifications
		WHERE phone = $1 AND purpose = $2 AND verified = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1`

	return r.getOne(ctx, "find live challenge", query, phone, purpose, now)
}

// CreateChallenge удаляет все неподтверждённые коды пары и вставляет новый в одной транзакции.
// Заполняет ID, Attempts и Verified у переданной записи.
func (r *OTPRepository) CreateChallenge(ctx context.Context, c *models.OTPVerification) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM otp_verifications
			WHERE phone = $1 AND purpose = $2 AND verified = FALSE
		`, c.Phone, c.Purpose); err != nil {
			return common.Unavailable("otp repository: supersede challenges", err)
		}

		err := tx.QueryRowxContext(ctx, `
			INSERT INTO otp_verifications (phone, purpose, code_hash, max_attempts, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, attempts, verified
		`, c.Phone, c.Purpose, c.CodeHash, c.MaxAttempts, c.CreatedAt, c.ExpiresAt).
			Scan(&c.ID, &c.Attempts, &c.Verified)
		if err != nil {
			return common.Unavailable("otp repository: insert challenge", err)
		}
		return nil
	})
}

// FindLatestUnverified возвращает самый свежий неподтверждённый код, даже если он истёк.
func (r *OTPRepository) FindLatestUnverified(ctx context.Context, phone, purpose string) (*models.OTPVerification, error) {
	query := `SELECT ` + otpColumns + `
		FROM otp_verifications
		WHERE phone = $1 AND purpose = $2 AND verified = FALSE
		ORDER BY created_at DESC
		LIMIT 1`

	return r.getOne(ctx, "find latest unverified", query, phone, purpose)
}

// IncrementAttempts атомарно увеличивает счётчик неверных попыток и возвращает новое значение.
// Счётчик никогда не превышает max_attempts: если лимит уже достигнут, возвращается ErrOTPNotFound.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts, `
		UPDATE otp_verifications
		SET attempts = attempts + 1
		WHERE id = $1 AND verified = FALSE AND attempts < max_attempts
		RETURNING attempts
	`, id)
	if err != nil {
		return 0, wrapOTPError("increment attempts", err)
	}
	return attempts, nil
}

// MarkVerified переводит код в состояние verified. Переход выполняется ровно один раз.
func (r *OTPRepository) MarkVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE otp_verifications
		SET verified = TRUE, verified_at = $2
		WHERE id = $1 AND verified = FALSE
	`, id, verifiedAt)
	if err != nil {
		return wrapOTPError("mark verified", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapOTPError("mark verified", err)
	}
	if affected == 0 {
		return ErrOTPNotFound
	}
	return nil
}

// DeleteChallenge удаляет запись по id. Удаление отсутствующей записи не считается ошибкой.
func (r *OTPRepository) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_verifications WHERE id = $1`, id); err != nil {
		return wrapOTPError("delete challenge", err)
	}
	return nil
}

// FindLiveVerifiedGrant возвращает последнее подтверждение пары с verified_at не раньше since.
func (r *OTPRepository) FindLiveVerifiedGrant(ctx context.Context, phone, purpose string, since time.Time) (*models.OTPVerification, error) {
	query := `SELECT ` + otpColumns + `
		FROM otp_verifications
		WHERE phone = $1 AND purpose = $2 AND verified = TRUE AND verified_at >= $3
		ORDER BY verified_at DESC
		LIMIT 1`

	return r.getOne(ctx, "find live verified grant", query, phone, purpose, since)
}

// DeleteStaleVerifiedGrants удаляет подтверждения пары, выданные раньше before.
func (r *OTPRepository) DeleteStaleVerifiedGrants(ctx context.Context, phone, purpose string, before time.Time) (int64, error) {
	return r.deleteGrants(ctx, "delete stale verified grants", `
		DELETE FROM otp_verifications
		WHERE phone = $1 AND purpose = $2 AND verified = TRUE AND verified_at < $3
	`, phone, purpose, before)
}

// DeleteVerifiedGrants удаляет все подтверждения пары, включая действующие.
func (r *OTPRepository) DeleteVerifiedGrants(ctx context.Context, phone, purpose string) (int64, error) {
	return r.deleteGrants(ctx, "delete verified grants", `
		DELETE FROM otp_verifications
		WHERE phone = $1 AND purpose = $2 AND verified = TRUE
	`, phone, purpose)
}

// PurgeExpired удаляет истёкшие неподтверждённые коды и подтверждения старше verifiedBefore.
func (r *OTPRepository) PurgeExpired(ctx context.Context, expiredBefore, verifiedBefore time.Time) (int64, error) {
	return r.deleteGrants(ctx, "purge expired", `
		DELETE FROM otp_verifications
		WHERE (verified = FALSE AND expires_at < $1)
		   OR (verified = TRUE AND verified_at < $2)
	`, expiredBefore, verifiedBefore)
}

func (r *OTPRepository) getOne(ctx context.Context, op, query string, args ...interface{}) (*models.OTPVerification, error) {
	var v models.OTPVerification
	if err := r.db.GetContext(ctx, &v, query, args...); err != nil {
		return nil, wrapOTPError(op, err)
	}
	return &v, nil
}

func (r *OTPRepository) deleteGrants(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapOTPError(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapOTPError(op, err)
	}
	return affected, nil
}

// wrapOTPError различает "нет строк" и сбой хранилища.
func wrapOTPError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOTPNotFound
	}
	return common.Unavailable("otp repository: "+op, err)
}
