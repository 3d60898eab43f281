package service

import (
	"context"
	"errors"
	"time"

	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
	"github.com/ignatzorin/truck-storefront/internal/repository"
	"github.com/ignatzorin/truck-storefront/internal/validation"
)

// GrantCheck результат проверки подтверждения телефона.
type GrantCheck struct {
	Valid  bool
	Reason string
	// Unavailable выставляется, когда хранилище не ответило. Valid при этом false.
	Unavailable bool
	Grant       *models.OTPVerification
}

// OTPGate единственная точка, через которую остальные сервисы узнают о подтверждении телефона.
type OTPGate struct {
	repo   OTPRepository
	tokens *GrantTokenManager
	ttl    time.Duration
	now    func() time.Time
}

// NewOTPGate создаёт гейт с окном действия подтверждения ttl.
func NewOTPGate(repo OTPRepository, tokens *GrantTokenManager, ttl time.Duration) *OTPGate {
	return &OTPGate{
		repo:   repo,
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
	}
}

// CheckLiveGrant проверяет, что для пары есть подтверждение внутри окна TTL.
func (g *OTPGate) CheckLiveGrant(ctx context.Context, phone, purpose string) GrantCheck {
	phone = validation.NormalizePhone(phone)
	now := g.now()

	grant, err := g.repo.FindLiveVerifiedGrant(ctx, phone, purpose, now.Add(-g.ttl))
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return denied()
		}
		logger.Log.WithFields(logger.OTPFields("check live grant", phone, purpose)).
			WithError(err).
			Error("не удалось проверить подтверждение")
		return GrantCheck{Reason: apperror.MsgVerifyUnavailable, Unavailable: true}
	}

	// Окно перепроверяется здесь, запрос к базе лишь сужает выборку.
	if grant.Purpose != purpose || !grant.GrantLiveAt(now, g.ttl) {
		return denied()
	}

	return GrantCheck{Valid: true, Grant: grant}
}

// CheckToken проверяет токен, выданный при подтверждении, и живое подтверждение,
// к которому он привязан.
func (g *OTPGate) CheckToken(ctx context.Context, phone, purpose, token string) GrantCheck {
	phone = validation.NormalizePhone(phone)
	if token == "" {
		return GrantCheck{Reason: apperror.MsgGrantRequired}
	}

	claims, err := g.tokens.Parse(token, g.now())
	if err != nil || claims.Subject != phone || claims.Purpose != purpose {
		return denied()
	}

	check := g.CheckLiveGrant(ctx, phone, purpose)
	if !check.Valid {
		return check
	}
	if check.Grant.ID != claims.ChallengeID() {
		return denied()
	}
	return check
}

// ConsumeGrant удаляет подтверждения пары после успешного действия.
// Повторное использование того же подтверждения после этого невозможно.
func (g *OTPGate) ConsumeGrant(ctx context.Context, phone, purpose string) error {
	phone = validation.NormalizePhone(phone)

	n, err := g.repo.DeleteVerifiedGrants(ctx, phone, purpose)
	if err != nil {
		logger.Log.WithFields(logger.OTPFields("consume grant", phone, purpose)).
			WithError(err).
			Warn("не удалось погасить подтверждение")
		return err
	}

	logger.Log.WithFields(logger.OTPFields("consume grant", phone, purpose)).
		WithField("deleted", n).
		Debug("подтверждение погашено")
	return nil
}

func denied() GrantCheck {
	return GrantCheck{Reason: apperror.MsgGrantMissing}
}
