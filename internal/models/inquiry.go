package models

import "time"

// TruckInquiry заявка покупателя по конкретному грузовику.
type TruckInquiry struct {
	ID            int64     `db:"id" json:"id"`
	TruckID       int64     `db:"truck_id" json:"truckId"`
	TruckName     string    `db:"truck_name" json:"truckName"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Phone         string    `db:"phone" json:"phone"`
	Message       *string   `db:"message" json:"message"`
	PhoneVerified bool      `db:"phone_verified" json:"phoneVerified"`
	InquiredAt    time.Time `db:"inquired_at" json:"inquiredAt"`
}
