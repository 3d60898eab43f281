package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
	"github.com/ignatzorin/truck-storefront/internal/repository"
	"github.com/ignatzorin/truck-storefront/internal/validation"
)

// InquiryRepository описывает хранилище заявок.
type InquiryRepository interface {
	Create(ctx context.Context, inquiry *models.TruckInquiry) error
	CreateWithGrant(ctx context.Context, inquiry *models.TruckInquiry, grantID uuid.UUID) error
}

// GrantVerifier проверяет и гасит подтверждение телефона.
type GrantVerifier interface {
	CheckToken(ctx context.Context, phone, purpose, token string) GrantCheck
	ConsumeGrant(ctx context.Context, phone, purpose string) error
}

// CreateInquiryInput данные заявки покупателя.
type CreateInquiryInput struct {
	TruckID   int64
	TruckName string
	Name      string
	Email     string
	Phone     string
	Message   *string
	OTPToken  string
}

// InquiryService принимает заявки по грузовикам.
type InquiryService struct {
	inquiries  InquiryRepository
	trucks     TruckRepository
	gate       GrantVerifier
	requireOTP bool
}

// NewInquiryService создаёт сервис заявок. При requireOTP заявки без токена отклоняются.
func NewInquiryService(inquiries InquiryRepository, trucks TruckRepository, gate GrantVerifier, requireOTP bool) *InquiryService {
	return &InquiryService{
		inquiries:  inquiries,
		trucks:     trucks,
		gate:       gate,
		requireOTP: requireOTP,
	}
}

// Create сохраняет заявку. С токеном подтверждение проверяется до записи
// и гасится только после успешной записи.
func (s *InquiryService) Create(ctx context.Context, in CreateInquiryInput) (*models.TruckInquiry, error) {
	inquiry, err := s.buildInquiry(in)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	verified := in.OTPToken != ""
	if !verified && s.requireOTP {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, apperror.MsgGrantRequired)
	}

	var grantID uuid.UUID
	if verified {
		check := s.gate.CheckToken(ctx, inquiry.Phone, models.OTPPurposeInquiry, in.OTPToken)
		if !check.Valid {
			if check.Unavailable {
				return nil, apperror.New(apperror.ErrCodeStoreUnavailable, check.Reason)
			}
			return nil, apperror.New(apperror.ErrCodeUnauthorized, check.Reason)
		}
		grantID = check.Grant.ID
	}

	if _, err := s.trucks.GetByID(ctx, inquiry.TruckID); err != nil {
		if errors.Is(err, repository.ErrTruckNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, apperror.MsgTruckNotFound)
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgInquiryUnavailable)
	}

	inquiry.PhoneVerified = verified
	log := logger.Log.WithFields(logger.OTPFields("create inquiry", inquiry.Phone, models.OTPPurposeInquiry)).
		WithField("truck_id", inquiry.TruckID)

	if verified {
		// Подтверждение гасится в одной транзакции с записью заявки.
		err = s.inquiries.CreateWithGrant(ctx, inquiry, grantID)
	} else {
		err = s.inquiries.Create(ctx, inquiry)
	}
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, apperror.MsgGrantMissing)
		}
		log.WithError(err).Error("не удалось сохранить заявку")
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgInquiryUnavailable)
	}

	if verified {
		// Остальные подтверждения пары; заявка уже сохранена, сбой тут её не отменяет.
		_ = s.gate.ConsumeGrant(ctx, inquiry.Phone, models.OTPPurposeInquiry)
	}

	log.WithField("inquiry_id", inquiry.ID).WithField("phone_verified", verified).Info("заявка сохранена")
	return inquiry, nil
}

func (s *InquiryService) buildInquiry(in CreateInquiryInput) (*models.TruckInquiry, error) {
	if in.TruckID <= 0 {
		return nil, errors.New("truckId must be a positive number")
	}

	truckName := strings.TrimSpace(in.TruckName)
	if err := validation.ValidateNonEmpty("truckName", truckName); err != nil {
		return nil, err
	}
	if err := validation.ValidateLength("truckName", truckName, 0, validation.MaxTruckName); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateLength("name", name, validation.MinNameLength, validation.MaxNameLength); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	phone := validation.NormalizePhone(in.Phone)
	if err := validation.ValidatePhone(phone); err != nil {
		return nil, err
	}

	if err := validation.ValidateMessage(in.Message); err != nil {
		return nil, err
	}
	var message *string
	if in.Message != nil {
		if trimmed := strings.TrimSpace(*in.Message); trimmed != "" {
			message = &trimmed
		}
	}

	if len(in.OTPToken) > validation.MaxOTPTokenLen {
		return nil, errors.New("otpToken is too long")
	}

	return &models.TruckInquiry{
		TruckID:   in.TruckID,
		TruckName: truckName,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Message:   message,
	}, nil
}
