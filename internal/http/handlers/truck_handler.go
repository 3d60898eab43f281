package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/truck-storefront/internal/dto"
	"github.com/ignatzorin/truck-storefront/internal/http/handlers/common"
	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
)

// TruckReader отдаёт карточки и отчёты об осмотре.
type TruckReader interface {
	GetTruck(ctx context.Context, id int64) (*models.Truck, error)
	GetReport(ctx context.Context, truckID int64) (*models.Truck, *models.InspectionReport, error)
}

type TruckHandler struct {
	trucks TruckReader
}

func NewTruckHandler(trucks TruckReader) *TruckHandler {
	return &TruckHandler{trucks: trucks}
}

// GetTruck GET /api/trucks/:id
func (h *TruckHandler) GetTruck(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error()))
		return
	}

	truck, err := h.trucks.GetTruck(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, truck)
}

// GetReport GET /api/trucks/:id/report
// Подтверждение телефона проверяет middleware.RequireLiveGrant.
func (h *TruckHandler) GetReport(c *gin.Context) {
	id, err := common.ParseIDParam(c, "id")
	if err != nil {
		common.RespondError(c, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error()))
		return
	}

	truck, report, err := h.trucks.GetReport(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TruckReportResponse{Truck: truck, Report: report})
}
