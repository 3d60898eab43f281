package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Log глобальный логгер приложения. До вызова Init используется логгер по умолчанию.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// visiblePhoneDigits сколько первых символов номера попадает в логи.
const visiblePhoneDigits = 4

// MaskPhone оставляет только префикс номера телефона.
func MaskPhone(phone string) string {
	runes := []rune(phone)
	if len(runes) <= visiblePhoneDigits {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:visiblePhoneDigits]) + strings.Repeat("*", len(runes)-visiblePhoneDigits)
}

// OTPFields собирает стандартные поля для логов подсистемы OTP.
func OTPFields(op, phone, purpose string) logrus.Fields {
	return logrus.Fields{
		"op":      op,
		"phone":   MaskPhone(phone),
		"purpose": purpose,
	}
}
