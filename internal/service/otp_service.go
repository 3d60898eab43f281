package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
	"github.com/ignatzorin/truck-storefront/internal/repository"
	"github.com/ignatzorin/truck-storefront/internal/sms"
	"github.com/ignatzorin/truck-storefront/internal/validation"
)

// OTPRepository описывает зависимости сервиса подтверждений от хранилища.
type OTPRepository interface {
	FindLiveChallenge(ctx context.Context, phone, purpose string, now time.Time) (*models.OTPVerification, error)
	CreateChallenge(ctx context.Context, c *models.OTPVerification) error
	FindLatestUnverified(ctx context.Context, phone, purpose string) (*models.OTPVerification, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	MarkVerified(ctx context.Context, id uuid.UUID, verifiedAt time.Time) error
	DeleteChallenge(ctx context.Context, id uuid.UUID) error
	FindLiveVerifiedGrant(ctx context.Context, phone, purpose string, since time.Time) (*models.OTPVerification, error)
	DeleteStaleVerifiedGrants(ctx context.Context, phone, purpose string, before time.Time) (int64, error)
	DeleteVerifiedGrants(ctx context.Context, phone, purpose string) (int64, error)
}

// rollbackTimeout ограничивает удаление неотправленного кода после отмены запроса.
const rollbackTimeout = 5 * time.Second

// OTPSettings параметры жизненного цикла кодов.
type OTPSettings struct {
	Expiry          time.Duration
	ResendCooldown  time.Duration
	VerificationTTL time.Duration
	MaxAttempts     int
	// Production включает откат кода при сбое отправки SMS.
	Production bool
}

// ChallengeIssued результат успешной выдачи кода.
type ChallengeIssued struct {
	ExpiresAt time.Time
	ExpiresIn string
}

// VerificationResult результат успешной проверки кода.
type VerificationResult struct {
	Verified  bool
	Token     string
	ExpiresAt time.Time
	Purpose   string
}

// OTPService выдаёт и проверяет одноразовые коды подтверждения телефона.
type OTPService struct {
	repo      OTPRepository
	sender    sms.Sender
	passcodes *PasscodeGenerator
	tokens    *GrantTokenManager
	settings  OTPSettings
	now       func() time.Time
}

// NewOTPService создаёт сервис подтверждений.
func NewOTPService(repo OTPRepository, sender sms.Sender, passcodes *PasscodeGenerator, tokens *GrantTokenManager, settings OTPSettings) *OTPService {
	return &OTPService{
		repo:      repo,
		sender:    sender,
		passcodes: passcodes,
		tokens:    tokens,
		settings:  settings,
		now:       time.Now,
	}
}

// RequestChallenge выдаёт новый код для пары (phone, purpose) и отправляет его по SMS.
func (s *OTPService) RequestChallenge(ctx context.Context, phone, purpose string) (*ChallengeIssued, error) {
	phone = validation.NormalizePhone(phone)
	if err := validateTarget(phone, purpose); err != nil {
		return nil, err
	}

	log := logger.Log.WithFields(logger.OTPFields("request challenge", phone, purpose))
	now := s.now()

	existing, err := s.repo.FindLiveChallenge(ctx, phone, purpose, now)
	switch {
	case err == nil:
		if since := now.Sub(existing.CreatedAt); since < s.settings.ResendCooldown {
			return nil, apperror.RateLimited(s.settings.ResendCooldown - since)
		}
	case errors.Is(err, repository.ErrOTPNotFound):
	default:
		log.WithError(err).Error("не удалось проверить действующий код")
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgGenerateFailed)
	}

	code, err := s.passcodes.Generate()
	if err != nil {
		log.WithError(err).Error("не удалось сгенерировать код")
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, apperror.MsgInternal)
	}

	challenge := &models.OTPVerification{
		Phone:       phone,
		Purpose:     purpose,
		CodeHash:    s.passcodes.Hash(code),
		MaxAttempts: s.settings.MaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.settings.Expiry),
	}
	if err := s.repo.CreateChallenge(ctx, challenge); err != nil {
		log.WithError(err).Error("не удалось сохранить код")
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgGenerateFailed)
	}

	if err := s.sender.SendCode(ctx, phone, code, purpose); err != nil {
		if s.settings.Production {
			log.WithError(err).Error("не удалось отправить SMS, код отозван")
			if delErr := s.rollbackChallenge(ctx, challenge.ID); delErr != nil {
				log.WithError(delErr).Error("не удалось удалить неотправленный код")
			}
			return nil, apperror.Wrap(err, apperror.ErrCodeDispatchFailed, apperror.MsgDispatchFailed)
		}
		log.WithError(err).WithField("code", code).Warn("не удалось отправить SMS, код оставлен для разработки")
	}

	log.WithField("challenge_id", challenge.ID).Info("код подтверждения выдан")

	return &ChallengeIssued{
		ExpiresAt: challenge.ExpiresAt,
		ExpiresIn: humanizeMinutes(s.settings.Expiry),
	}, nil
}

// ValidateChallenge проверяет введённый код. Срок действия проверяется раньше лимита попыток.
func (s *OTPService) ValidateChallenge(ctx context.Context, phone, purpose, code string) (*VerificationResult, error) {
	phone = validation.NormalizePhone(phone)
	if err := validateTarget(phone, purpose); err != nil {
		return nil, err
	}
	if err := validation.ValidateOTPCode(code, s.passcodes.Length()); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	log := logger.Log.WithFields(logger.OTPFields("validate challenge", phone, purpose))

	challenge, err := s.repo.FindLatestUnverified(ctx, phone, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, apperror.MsgOTPNotFound)
		}
		log.WithError(err).Error("не удалось прочитать код")
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgVerifyUnavailable)
	}

	now := s.now()

	if challenge.IsExpired(now) {
		s.discard(ctx, challenge, "expired")
		return nil, apperror.New(apperror.ErrCodeOTPExpired, apperror.MsgOTPExpired)
	}

	if challenge.AttemptsExhausted() {
		s.discard(ctx, challenge, "attempts exhausted")
		return nil, apperror.New(apperror.ErrCodeAttemptsExhausted, apperror.MsgAttemptsExhausted)
	}

	if !s.passcodes.Matches(code, challenge.CodeHash) {
		attempts, err := s.repo.IncrementAttempts(ctx, challenge.ID)
		if err != nil {
			if errors.Is(err, repository.ErrOTPNotFound) {
				// Параллельный запрос уже израсходовал попытки или удалил запись.
				s.discard(ctx, challenge, "attempts exhausted")
				return nil, apperror.New(apperror.ErrCodeAttemptsExhausted, apperror.MsgAttemptsExhausted)
			}
			log.WithError(err).Error("не удалось увеличить счётчик попыток")
			return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgVerifyUnavailable)
		}
		return nil, apperror.InvalidCode(challenge.MaxAttempts - attempts)
	}

	if err := s.repo.MarkVerified(ctx, challenge.ID, now); err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, apperror.MsgOTPNotFound)
		}
		log.WithError(err).Error("не удалось отметить код подтверждённым")
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgVerifyUnavailable)
	}

	expiresAt := now.Add(s.settings.VerificationTTL)
	token, err := s.tokens.Issue(challenge.ID, phone, purpose, now, expiresAt)
	if err != nil {
		log.WithError(err).Error("не удалось выпустить токен подтверждения")
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, apperror.MsgInternal)
	}

	// Старые подтверждения пары больше не нужны; ошибка тут не влияет на результат.
	if n, err := s.repo.DeleteStaleVerifiedGrants(ctx, phone, purpose, now.Add(-s.settings.VerificationTTL)); err != nil {
		log.WithError(err).Warn("не удалось удалить устаревшие подтверждения")
	} else if n > 0 {
		log.WithField("deleted", n).Debug("удалены устаревшие подтверждения")
	}

	log.WithField("challenge_id", challenge.ID).Info("телефон подтверждён")

	return &VerificationResult{
		Verified:  true,
		Token:     token,
		ExpiresAt: expiresAt,
		Purpose:   purpose,
	}, nil
}

// rollbackChallenge удаляет неотправленный код даже если запрос уже отменён.
func (s *OTPService) rollbackChallenge(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	return s.repo.DeleteChallenge(ctx, id)
}

// discard удаляет мёртвую запись. Ошибка удаления только логируется,
// клиент всё равно получает исходную причину отказа.
func (s *OTPService) discard(ctx context.Context, challenge *models.OTPVerification, reason string) {
	if err := s.repo.DeleteChallenge(ctx, challenge.ID); err != nil && !errors.Is(err, repository.ErrOTPNotFound) {
		logger.Log.WithFields(logger.OTPFields("discard challenge", challenge.Phone, challenge.Purpose)).
			WithError(err).
			WithField("reason", reason).
			Warn("не удалось удалить запись подтверждения")
	}
}

func validateTarget(phone, purpose string) error {
	if err := validation.ValidatePhone(phone); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePurpose(purpose); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return nil
}

func humanizeMinutes(d time.Duration) string {
	minutes := int(d.Round(time.Minute).Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
