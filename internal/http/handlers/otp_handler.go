package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/truck-storefront/internal/dto"
	"github.com/ignatzorin/truck-storefront/internal/http/handlers/common"
	"github.com/ignatzorin/truck-storefront/internal/service"
)

// OTPIssuer выдаёт и проверяет коды подтверждения.
type OTPIssuer interface {
	RequestChallenge(ctx context.Context, phone, purpose string) (*service.ChallengeIssued, error)
	ValidateChallenge(ctx context.Context, phone, purpose, code string) (*service.VerificationResult, error)
}

type OTPHandler struct {
	otp OTPIssuer
}

func NewOTPHandler(otp OTPIssuer) *OTPHandler {
	return &OTPHandler{otp: otp}
}

// Send POST /api/otp/send
func (h *OTPHandler) Send(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	issued, err := h.otp.RequestChallenge(c.Request.Context(), req.Phone, req.Purpose)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OTPSentResponse{
		Message:   "OTP sent successfully",
		ExpiresIn: issued.ExpiresIn,
		ExpiresAt: issued.ExpiresAt,
	})
}

// Verify POST /api/otp/verify
func (h *OTPHandler) Verify(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	res, err := h.otp.ValidateChallenge(c.Request.Context(), req.Phone, req.Purpose, req.OTP)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OTPVerifiedResponse{
		Verified:  res.Verified,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Purpose:   res.Purpose,
	})
}
