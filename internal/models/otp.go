package models

import (
	"time"

	"github.com/google/uuid"
)

// Назначения кодов подтверждения. Для одного телефона коды разных назначений независимы.
const (
	OTPPurposeInquiry    = "inquiry"
	OTPPurposeReportView = "report_view"
)

// OTPPurposes перечисляет допустимые назначения кодов.
var OTPPurposes = []string{OTPPurposeInquiry, OTPPurposeReportView}

// OTPVerification одна выданная попытка подтверждения телефона (challenge).
// Открытый код никогда не сохраняется, только его хеш.
type OTPVerification struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Phone       string     `db:"phone" json:"phone"`
	Purpose     string     `db:"purpose" json:"purpose"`
	CodeHash    string     `db:"code_hash" json:"-"`
	Attempts    int        `db:"attempts" json:"attempts"`
	MaxAttempts int        `db:"max_attempts" json:"max_attempts"`
	Verified    bool       `db:"verified" json:"verified"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	VerifiedAt  *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

// IsExpired сообщает, истёк ли срок действия кода к моменту now.
func (v *OTPVerification) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// AttemptsExhausted сообщает, исчерпан ли лимит неверных попыток.
func (v *OTPVerification) AttemptsExhausted() bool {
	return v.Attempts >= v.MaxAttempts
}

// RemainingAttempts количество оставшихся попыток ввода.
func (v *OTPVerification) RemainingAttempts() int {
	if left := v.MaxAttempts - v.Attempts; left > 0 {
		return left
	}
	return 0
}

// GrantLiveAt сообщает, действует ли подтверждение в момент now при заданном TTL.
func (v *OTPVerification) GrantLiveAt(now time.Time, ttl time.Duration) bool {
	if !v.Verified || v.VerifiedAt == nil {
		return false
	}
	return !now.Before(*v.VerifiedAt) && !now.After(v.VerifiedAt.Add(ttl))
}
