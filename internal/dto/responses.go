package dto

import (
	"time"

	"github.com/ignatzorin/truck-storefront/internal/models"
)

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	Details           string `json:"details,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
	RetryAfter        int    `json:"retryAfter,omitempty"`
}

// SuccessResponse стандартный ответ с данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OTPSentResponse ответ на POST /api/otp/send.
type OTPSentResponse struct {
	Message   string    `json:"message"`
	ExpiresIn string    `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPVerifiedResponse ответ на POST /api/otp/verify.
type OTPVerifiedResponse struct {
	Verified  bool      `json:"verified"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Purpose   string    `json:"purpose"`
}

// TruckReportResponse отчёт об осмотре вместе с карточкой грузовика.
type TruckReportResponse struct {
	Truck  *models.Truck            `json:"truck"`
	Report *models.InspectionReport `json:"report"`
}
