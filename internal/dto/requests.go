package dto

// SendOTPRequest запрос на выдачу кода подтверждения.
type SendOTPRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// VerifyOTPRequest запрос на проверку кода.
type VerifyOTPRequest struct {
	Phone   string `json:"phone" binding:"required"`
	OTP     string `json:"otp" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

// CreateInquiryRequest заявка покупателя. OTPToken необязателен.
type CreateInquiryRequest struct {
	TruckID   int64   `json:"truckId" binding:"required"`
	TruckName string  `json:"truckName" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	Phone     string  `json:"phone" binding:"required"`
	Message   *string `json:"message"`
	OTPToken  string  `json:"otpToken"`
}
