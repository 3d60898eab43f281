package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/repository/common"
)

// InquiryRepository сохраняет заявки покупателей.
type InquiryRepository struct {
	db *sqlx.DB
}

// NewInquiryRepository создаёт экземпляр репозитория.
func NewInquiryRepository(db *sqlx.DB) *InquiryRepository {
	return &InquiryRepository{db: db}
}

const insertInquiryQuery = `
	INSERT INTO truck_inquiries (truck_id, truck_name, name, email, phone, message, phone_verified)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, inquired_at
`

// Create сохраняет заявку и заполняет ID и время создания.
func (r *InquiryRepository) Create(ctx context.Context, inquiry *models.TruckInquiry) error {
	if err := insertInquiry(ctx, r.db, inquiry); err != nil {
		return common.Unavailable("inquiry repository: create", err)
	}
	return nil
}

// CreateWithGrant в одной транзакции гасит подтверждение grantID и сохраняет заявку.
// Если подтверждение уже погашено, возвращается ErrOTPNotFound и заявка не пишется.
func (r *InquiryRepository) CreateWithGrant(ctx context.Context, inquiry *models.TruckInquiry, grantID uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var claimed uuid.UUID
		err := tx.QueryRowxContext(ctx, `
			DELETE FROM otp_verifications
			WHERE id = $1 AND verified = TRUE
			RETURNING id
		`, grantID).Scan(&claimed)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOTPNotFound
			}
			return common.Unavailable("inquiry repository: claim grant", err)
		}

		if err := insertInquiry(ctx, tx, inquiry); err != nil {
			return common.Unavailable("inquiry repository: create verified", err)
		}
		return nil
	})
}

func insertInquiry(ctx context.Context, q sqlx.QueryerContext, inquiry *models.TruckInquiry) error {
	return q.QueryRowxContext(
		ctx, insertInquiryQuery,
		inquiry.TruckID, inquiry.TruckName, inquiry.Name, inquiry.Email,
		inquiry.Phone, inquiry.Message, inquiry.PhoneVerified,
	).Scan(&inquiry.ID, &inquiry.InquiredAt)
}
