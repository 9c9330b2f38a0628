package reconcile

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"vehicle-rental-api/models"
)

const (
	// LocalIDPrefix namespaces queue-sourced order ids so they can never
	// collide with upstream ids, and so mutations route to the right store.
	LocalIDPrefix = "local-"

	// DefaultDailyRate is the fallback price per day when neither the order
	// nor its vehicle snapshot carries one.
	DefaultDailyRate = 89000

	defaultVehicleImage = "https://images.unsplash.com/photo-1492144534655-ae79c964c9d7?w=800&q=80"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize converts one raw order record of any known shape into the
// canonical Order. It is total: malformed or missing fields degrade to
// defaults (duration 0, IsValid false) instead of failing.
func Normalize(raw RawOrder, isLocal bool) models.Order {
	if raw == nil {
		raw = RawOrder{}
	}

	reservation := raw.orFallback("reservation")
	shipping := raw.orFallback("shipping")
	user := raw.Sub("user")
	if user == nil {
		user = RawOrder{}
	}
	vehicleData := raw.First("vehicles")
	if vehicleData == nil {
		vehicleData = raw.Sub("vehicle")
	}
	if vehicleData == nil {
		vehicleData = RawOrder{}
	}

	startDate := firstNonEmpty(raw.Str("startDate"), reservation.Str("startDate"))
	endDate := firstNonEmpty(raw.Str("endDate"), reservation.Str("endDate"))

	duration := int(raw.Num("duration"))
	if duration == 0 {
		duration = int(reservation.Num("duration"))
	}
	if duration == 0 && startDate != "" && endDate != "" {
		if start, ok := parseDate(startDate); ok {
			if end, ok := parseDate(endDate); ok {
				diff := end.Sub(start)
				if diff < 0 {
					diff = -diff
				}
				duration = int(math.Ceil(diff.Hours() / 24))
				if duration < 1 {
					duration = 1
				}
			}
		}
	}

	pricePerDay := vehicleData.Num("price")
	if pricePerDay == 0 {
		pricePerDay = raw.Num("pricePerDay")
	}
	if pricePerDay == 0 {
		pricePerDay = reservation.Num("pricePerDay")
	}
	if pricePerDay == 0 {
		pricePerDay = DefaultDailyRate
	}

	totalPrice := raw.Num("totalPrice")
	if totalPrice == 0 {
		totalPrice = reservation.Num("totalPrice")
	}
	if totalPrice == 0 && duration > 0 {
		totalPrice = float64(duration) * pricePerDay
	}

	name := firstNonEmpty(
		raw.Str("userName"),
		user.Str("name"),
		user.Str("fullName"),
		strings.TrimSpace(shipping.Str("firstName")+" "+shipping.Str("lastName")),
	)
	if name == "" {
		if userID := raw.Str("userId"); userID != "" {
			name = "Customer " + userID
		} else {
			name = "Unknown customer"
		}
	}

	vehicleName := raw.Str("vehicleName")
	brand := firstNonEmpty(vehicleData.Str("brand"), vehicleData.Str("make"), firstWord(vehicleName), "Vehicle")
	model := firstNonEmpty(vehicleData.Str("model"), vehicleData.Str("name"), restOfWords(vehicleName), "Unknown")

	vehiclePrice := vehicleData.Num("price")
	if vehiclePrice == 0 {
		vehiclePrice = pricePerDay
	}

	id := raw.Str("_id", "id")
	if id == "" {
		id = "temp-" + uuid.NewString()
	}
	if isLocal && !strings.HasPrefix(id, LocalIDPrefix) {
		id = LocalIDPrefix + id
	}

	createdAt := time.Now()
	if t, ok := parseDate(raw.Str("createdAt", "timestamp")); ok {
		createdAt = t
	}

	return models.Order{
		ID:            id,
		Status:        models.CanonicalStatus(raw.Str("status")),
		CreatedAt:     createdAt,
		UserID:        firstNonEmpty(raw.Str("userId"), user.Str("id", "_id")),
		CustomerName:  name,
		CustomerEmail: firstNonEmpty(raw.Str("userEmail"), user.Str("email"), shipping.Str("email"), "Not provided"),
		CustomerPhone: firstNonEmpty(raw.Str("userPhone"), user.Str("phone"), shipping.Str("phone"), raw.Str("phone"), "Not provided"),
		Address:       firstNonEmpty(raw.Str("address"), user.Str("address"), shipping.Str("address"), "Not provided"),
		StartDate:     startDate,
		EndDate:       endDate,
		Duration:      duration,
		PricePerDay:   pricePerDay,
		TotalPrice:    totalPrice,
		Notes:         firstNonEmpty(raw.Str("notes"), reservation.Str("notes")),
		VehicleID:     firstNonEmpty(raw.Str("vehicleId"), vehicleData.Str("_id", "id")),
		Vehicle: models.VehicleSnapshot{
			Brand: brand,
			Model: model,
			Price: vehiclePrice,
			Image: firstNonEmpty(vehicleData.Str("imageUrl"), vehicleData.Str("image"), defaultVehicleImage),
			Type:  firstNonEmpty(vehicleData.Str("type"), vehicleData.Str("fuelType"), "Unspecified"),
		},
		IsLocal: isLocal,
		IsValid: startDate != "" && endDate != "" && duration > 0 && totalPrice > 0,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstWord(s string) string {
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func restOfWords(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return ""
}
