package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/models"
)

// Sender доставляет код подтверждения на телефон.
// Ошибка означает, что доставка не состоялась.
type Sender interface {
	SendCode(ctx context.Context, phone, code, purpose string) error
}

// FormatMessage текст SMS для назначения purpose.
func FormatMessage(code, purpose string, validFor time.Duration) string {
	action := "verify your phone number"
	switch purpose {
	case models.OTPPurposeInquiry:
		action = "submit your truck inquiry"
	case models.OTPPurposeReportView:
		action = "view the inspection report"
	}
	return fmt.Sprintf("%s is your code to %s. Valid for %d minutes. Do not share it with anyone.",
		code, action, int(validFor.Minutes()))
}

// LogSender пишет код в лог вместо отправки. Только для разработки.
type LogSender struct{}

// SendCode логирует код подтверждения.
func (LogSender) SendCode(_ context.Context, phone, code, purpose string) error {
	fields := logger.OTPFields("sms.LogSender", phone, purpose)
	fields["code"] = code
	logger.Log.WithFields(fields).Warn("SMS не отправляется, код выведен в лог")
	return nil
}
