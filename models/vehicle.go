package models

import "time"

type Vehicle struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Brand       string    `json:"brand" gorm:"not null"`
	Model       string    `json:"model" gorm:"not null"`
	Year        int       `json:"year"`
	Price       float64   `json:"price" gorm:"not null"` // rental price per day
	Type        string    `json:"type"`
	FuelType    string    `json:"fuel_type"`
	Seats       int       `json:"seats"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	// Available is derived from validated reservations, never authoritative
	// on its own; the deriver recomputes it wholesale on every pass.
	Available bool      `json:"available" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
