package service

import (
	"context"
	"time"

	"github.com/ignatzorin/truck-storefront/internal/logger"
)

// expiredChallengeGrace столько истёкший код ещё хранится, чтобы проверка отвечала OTP_EXPIRED, а не "не найден".
const expiredChallengeGrace = time.Hour

// ExpiredPurger удаляет записи, которые больше не могут пройти проверку.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, expiredBefore, verifiedBefore time.Time) (int64, error)
}

// OTPSweeper периодически чистит таблицу кодов подтверждения.
type OTPSweeper struct {
	repo ExpiredPurger
	ttl  time.Duration
	now  func() time.Time
}

func NewOTPSweeper(repo ExpiredPurger, verificationTTL time.Duration) *OTPSweeper {
	return &OTPSweeper{repo: repo, ttl: verificationTTL, now: time.Now}
}

// Sweep выполняет один проход очистки.
func (s *OTPSweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	return s.repo.PurgeExpired(ctx, now.Add(-expiredChallengeGrace), now.Add(-s.ttl))
}

// Run чистит таблицу каждые interval до отмены ctx.
func (s *OTPSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				logger.Log.WithError(err).Warn("otp sweeper: очистка не удалась")
				continue
			}
			if removed > 0 {
				logger.Log.WithField("removed", removed).Debug("otp sweeper: удалены устаревшие записи")
			}
		}
	}
}
