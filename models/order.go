package models

import "time"

// OrderStatus is the canonical status every raw order vocabulary maps onto.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusValidated OrderStatus = "validated"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// rawStatusMap translates every known upstream and legacy-local status
// vocabulary onto the canonical enum. Unknown statuses fall back to pending.
var rawStatusMap = map[string]OrderStatus{
	"pending":    StatusPending,
	"en_attente": StatusPending,
	"confirmed":  StatusValidated,
	"completed":  StatusValidated,
	"validated":  StatusValidated,
	"validee":    StatusValidated,
	"approved":   StatusValidated,
	"cancelled":  StatusRejected,
	"rejected":   StatusRejected,
	"rejetee":    StatusRejected,
	"annulee":    StatusCancelled,
}

// backendStatusMap translates the canonical enum back into the upstream
// API vocabulary {pending, confirmed, cancelled}. Distinct from rawStatusMap:
// the round trip is deliberately lossy (rejected and cancelled both map to
// the upstream "cancelled").
var backendStatusMap = map[OrderStatus]string{
	StatusPending:   "pending",
	StatusValidated: "confirmed",
	StatusRejected:  "cancelled",
	StatusCancelled: "cancelled",
}

// CanonicalStatus maps a raw status string to the canonical enum.
func CanonicalStatus(raw string) OrderStatus {
	if s, ok := rawStatusMap[raw]; ok {
		return s
	}
	return StatusPending
}

// BackendStatus maps a canonical status to the upstream API vocabulary.
func BackendStatus(s OrderStatus) string {
	if b, ok := backendStatusMap[s]; ok {
		return b
	}
	return string(s)
}

// VehicleSnapshot is the denormalized vehicle data carried on an order.
type VehicleSnapshot struct {
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
	Type  string  `json:"type"`
}

// Order is the canonical, shape-independent representation of a reservation.
// Every raw record (upstream API shape, legacy-local, new-local) is converted
// to this before any reconciliation logic touches it.
type Order struct {
	ID            string          `json:"id"`
	Status        OrderStatus     `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UserID        string          `json:"user_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	Address       string          `json:"address"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	Duration      int             `json:"duration"` // rental days
	PricePerDay   float64         `json:"price_per_day"`
	TotalPrice    float64         `json:"total_price"`
	Notes         string          `json:"notes"`
	VehicleID     string          `json:"vehicle_id"`
	Vehicle       VehicleSnapshot `json:"vehicle"`
	IsLocal       bool            `json:"is_local"`
	IsValid       bool            `json:"is_valid"`
	Archived      bool            `json:"archived,omitempty"`
}

// OrderStats is the admin dashboard summary computed over the merged set.
type OrderStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Validated int `json:"validated"`
	Rejected  int `json:"rejected"`
	Invalid   int `json:"invalid"`
}
