package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Truck карточка грузовика на витрине.
type Truck struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer"`
	Model        string    `db:"model" json:"model"`
	Year         int       `db:"year" json:"year"`
	Kilometers   int       `db:"kilometers" json:"kilometers"`
	Horsepower   int       `db:"horsepower" json:"horsepower"`
	Price        float64   `db:"price" json:"price"`
	ImageURL     string    `db:"image_url" json:"imageUrl"`
	Subtitle     *string   `db:"subtitle" json:"subtitle"`
	Certified    bool      `db:"certified" json:"certified"`
	State        *string   `db:"state" json:"state"`
	Location     *string   `db:"location" json:"location"`
	City         *string   `db:"city" json:"city"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// InspectionReport полный отчёт об осмотре, доступный после подтверждения телефона.
type InspectionReport struct {
	TruckID      int64          `db:"truck_id" json:"truckId"`
	Summary      string         `db:"summary" json:"summary"`
	OverallScore int            `db:"overall_score" json:"overallScore"`
	Sections     types.JSONText `db:"sections" json:"sections"`
	InspectedAt  time.Time      `db:"inspected_at" json:"inspectedAt"`
}
