package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/truck-storefront/internal/models"
)

// Константы валидации
const (
	MinPhoneDigits   = 10
	MaxPhoneDigits   = 15
	MinNameLength    = 2
	MaxNameLength    = 100
	MaxTruckName     = 200
	MaxMessageLength = 2000
	MaxOTPTokenLen   = 2048
)

var (
	phoneDigitsRegex = regexp.MustCompile(`^[0-9]+$`)
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
)

// NormalizePhone убирает '+', пробелы и дефисы. Остальные символы не трогает,
// их отсекает ValidatePhone.
func NormalizePhone(phone string) string {
	return strings.NewReplacer("+", "", " ", "", "-", "").Replace(strings.TrimSpace(phone))
}

// ValidatePhone проверяет уже нормализованный номер: только цифры, 10..15 знаков.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}
	if !phoneDigitsRegex.MatchString(phone) {
		return fmt.Errorf("invalid phone number format")
	}
	if len(phone) < MinPhoneDigits || len(phone) > MaxPhoneDigits {
		return fmt.Errorf("phone number must contain %d to %d digits", MinPhoneDigits, MaxPhoneDigits)
	}
	return nil
}

// ValidatePurpose проверяет назначение подтверждения.
func ValidatePurpose(purpose string) error {
	for _, p := range models.OTPPurposes {
		if purpose == p {
			return nil
		}
	}
	return fmt.Errorf("invalid purpose. Must be one of: %s", strings.Join(models.OTPPurposes, ", "))
}

// ValidateOTPCode проверяет, что код состоит ровно из length цифр.
func ValidateOTPCode(code string, length int) error {
	if code == "" {
		return fmt.Errorf("otp is required")
	}
	if len(code) != length || !phoneDigitsRegex.MatchString(code) {
		return fmt.Errorf("invalid OTP format. Must be %d digits", length)
	}
	return nil
}

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email is required")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("invalid email format")
	}

	localPart, domainPart := parts[0], parts[1]
	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("invalid email format")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("invalid email format")
	}
	if !emailLocalRegex.MatchString(localPart) || !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMessage проверяет необязательный текст заявки.
func ValidateMessage(message *string) error {
	if message == nil {
		return nil
	}
	return ValidateLength("message", strings.TrimSpace(*message), 0, MaxMessageLength)
}
