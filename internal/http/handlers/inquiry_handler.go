package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/truck-storefront/internal/dto"
	"github.com/ignatzorin/truck-storefront/internal/http/handlers/common"
	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/service"
)

// InquiryCreator сохраняет заявки покупателей.
type InquiryCreator interface {
	Create(ctx context.Context, in service.CreateInquiryInput) (*models.TruckInquiry, error)
}

type InquiryHandler struct {
	inquiries InquiryCreator
}

func NewInquiryHandler(inquiries InquiryCreator) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiries}
}

// Create POST /api/inquiries
func (h *InquiryHandler) Create(c *gin.Context) {
	var req dto.CreateInquiryRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondError(c, err)
		return
	}

	inquiry, err := h.inquiries.Create(c.Request.Context(), service.CreateInquiryInput{
		TruckID:   req.TruckID,
		TruckName: req.TruckName,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		OTPToken:  req.OTPToken,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	message := "Inquiry submitted successfully."
	if inquiry.PhoneVerified {
		message = "Inquiry submitted successfully. Your phone number has been verified."
	}
	common.RespondSuccess(c, http.StatusCreated, message, inquiry)
}
