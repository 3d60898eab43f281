package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
	ErrCodeOTPExpired        ErrorCode = "OTP_EXPIRED"
	ErrCodeAttemptsExhausted ErrorCode = "ATTEMPTS_EXHAUSTED"
	ErrCodeInvalidCode       ErrorCode = "INVALID_CODE"
	ErrCodeDispatchFailed    ErrorCode = "DISPATCH_FAILED"
	ErrCodeStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
)

// Сообщения, которые видит клиент. Текст ошибок драйвера наружу не попадает.
const (
	MsgInvalidInput       = "Invalid input data"
	MsgCooldown           = "Please wait before requesting a new OTP. Check your SMS for the previous code."
	MsgOTPNotFound        = "OTP not found. Please request a new OTP."
	MsgOTPExpired         = "OTP has expired. Please request a new OTP."
	MsgAttemptsExhausted  = "Maximum verification attempts exceeded. Please request a new OTP."
	MsgGenerateFailed     = "Failed to generate OTP. Please try again later."
	MsgDispatchFailed     = "Failed to send OTP. Please check your phone number and try again."
	MsgVerifyUnavailable  = "Verification is temporarily unavailable. Please try again later."
	MsgGrantMissing       = "OTP verification not found or expired. Please verify your OTP again."
	MsgGrantRequired      = "OTP verification required. Please verify your phone number first."
	MsgTruckNotFound      = "Truck not found"
	MsgReportNotFound     = "Inspection report not found"
	MsgInquiryUnavailable = "Failed to save inquiry. Please try again later."
	MsgInternal           = "An unexpected error occurred. Please try again later."
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error

	// RemainingAttempts заполняется для INVALID_CODE.
	RemainingAttempts *int
	// RetryAfter заполняется для RATE_LIMITED.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// InvalidCode ошибка неверного кода с числом оставшихся попыток.
func InvalidCode(remaining int) *AppError {
	if remaining < 0 {
		remaining = 0
	}
	msg := "Invalid OTP. Maximum attempts exceeded."
	if remaining > 0 {
		msg = fmt.Sprintf("Invalid OTP. %d attempt(s) remaining.", remaining)
	}
	e := New(ErrCodeInvalidCode, msg)
	e.RemainingAttempts = &remaining
	return e
}

// RateLimited ошибка слишком частого запроса кода.
func RateLimited(retryAfter time.Duration) *AppError {
	e := New(ErrCodeRateLimited, MsgCooldown)
	e.RetryAfter = retryAfter
	return e
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeOTPExpired, ErrCodeInvalidCode:
		return http.StatusBadRequest
	case ErrCodeRateLimited, ErrCodeAttemptsExhausted:
		return http.StatusTooManyRequests
	case ErrCodeDispatchFailed, ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HasCode сообщает, является ли err ошибкой приложения с кодом code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}
