package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/truck-storefront/internal/models"
	"github.com/ignatzorin/truck-storefront/internal/repository/common"
)

const truckColumns = `id, name, manufacturer, model, year, kilometers, horsepower, price, image_url,
	subtitle, certified, state, location, city, created_at, updated_at`

// TruckRepository читает карточки грузовиков и отчёты об осмотре.
type TruckRepository struct {
	db *sqlx.DB
}

// NewTruckRepository создаёт экземпляр репозитория.
func NewTruckRepository(db *sqlx.DB) *TruckRepository {
	return &TruckRepository{db: db}
}

// GetByID возвращает грузовик по идентификатору.
func (r *TruckRepository) GetByID(ctx context.Context, id int64) (*models.Truck, error) {
	return common.GetByID[models.Truck](ctx, r.db, "trucks", truckColumns, id, ErrTruckNotFound)
}

// GetInspectionReport возвращает отчёт об осмотре грузовика.
func (r *TruckRepository) GetInspectionReport(ctx context.Context, truckID int64) (*models.InspectionReport, error) {
	var report models.InspectionReport
	err := r.db.GetContext(ctx, &report, `
		SELECT truck_id, summary, overall_score, sections, inspected_at
		FROM truck_inspection_reports
		WHERE truck_id = $1
	`, truckID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, common.Unavailable("truck repository: get inspection report", err)
	}
	return &report, nil
}
