package service

import (
	"context"
	"errors"

	"github.com/ignatzorin/truck-storefront/internal/logger"
	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/pkg/apperror"
	"github.com/ignatzorin/truck-storefront/internal/repository"
)

// TruckRepository описывает чтение карточек и отчётов.
type TruckRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Truck, error)
	GetInspectionReport(ctx context.Context, truckID int64) (*models.InspectionReport, error)
}

// TruckService отдаёт карточки грузовиков и отчёты об осмотре.
type TruckService struct {
	repo TruckRepository
}

// NewTruckService создаёт сервис грузовиков.
func NewTruckService(repo TruckRepository) *TruckService {
	return &TruckService{repo: repo}
}

// GetTruck возвращает карточку грузовика.
func (s *TruckService) GetTruck(ctx context.Context, id int64) (*models.Truck, error) {
	truck, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTruckNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, apperror.MsgTruckNotFound)
		}
		logger.Log.WithError(err).WithField("truck_id", id).Error("не удалось получить грузовик")
		return nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgInternal)
	}
	return truck, nil
}

// GetReport возвращает грузовик и его отчёт об осмотре. Доступ проверяется до вызова.
func (s *TruckService) GetReport(ctx context.Context, truckID int64) (*models.Truck, *models.InspectionReport, error) {
	truck, err := s.GetTruck(ctx, truckID)
	if err != nil {
		return nil, nil, err
	}

	report, err := s.repo.GetInspectionReport(ctx, truckID)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return nil, nil, apperror.New(apperror.ErrCodeNotFound, apperror.MsgReportNotFound)
		}
		logger.Log.WithError(err).WithField("truck_id", truckID).Error("не удалось получить отчёт об осмотре")
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeStoreUnavailable, apperror.MsgInternal)
	}
	return truck, report, nil
}
