package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-rental-api/models"
)

func TestDeriveAvailabilityLocksOnlyValidatedOrders(t *testing.T) {
	vehicles := []models.Vehicle{
		{ID: "v1", Available: true},
		{ID: "v2", Available: true},
	}
	// One confirmed upstream order for v1, one still-pending local order
	// for v2. Only the confirmed one locks its vehicle.
	orders := []models.Order{
		Normalize(RawOrder{"_id": "s1", "status": "confirmed", "vehicleId": "v1", "startDate": "2026-05-01", "endDate": "2026-05-03"}, false),
		Normalize(RawOrder{"id": "q1", "status": "en_attente", "vehicleId": "v2", "startDate": "2026-05-01", "endDate": "2026-05-03"}, true),
	}

	updated := DeriveAvailability(vehicles, orders, false)
	require.Len(t, updated, 2)
	assert.False(t, updated[0].Available)
	assert.True(t, updated[1].Available)
}

func TestDeriveAvailabilityIsIdempotent(t *testing.T) {
	vehicles := []models.Vehicle{
		{ID: "v1", Available: true},
		{ID: "v2", Available: true},
	}
	orders := []models.Order{
		{ID: "a", Status: models.StatusValidated, VehicleID: "v1"},
	}

	once := DeriveAvailability(vehicles, orders, true)
	twice := DeriveAvailability(once, orders, true)
	assert.Equal(t, once, twice)
}

func TestDeriveAvailabilityResetClearsStaleLocks(t *testing.T) {
	// v1 locked by a reservation that has since been cancelled.
	vehicles := []models.Vehicle{{ID: "v1", Available: false}}
	orders := []models.Order{
		{ID: "a", Status: models.StatusCancelled, VehicleID: "v1"},
	}

	updated := DeriveAvailability(vehicles, orders, true)
	assert.True(t, updated[0].Available)

	// Without the reset pass the stale lock survives.
	kept := DeriveAvailability(vehicles, orders, false)
	assert.False(t, kept[0].Available)
}

func TestDeriveAvailabilityIgnoresOrdersWithoutVehicle(t *testing.T) {
	vehicles := []models.Vehicle{{ID: "v1", Available: true}}
	orders := []models.Order{
		{ID: "a", Status: models.StatusValidated, VehicleID: ""},
	}

	updated := DeriveAvailability(vehicles, orders, false)
	assert.True(t, updated[0].Available)
}

func TestDeriveAvailabilityDoesNotMutateInput(t *testing.T) {
	vehicles := []models.Vehicle{{ID: "v1", Available: true}}
	orders := []models.Order{{ID: "a", Status: models.StatusValidated, VehicleID: "v1"}}

	_ = DeriveAvailability(vehicles, orders, false)
	assert.True(t, vehicles[0].Available)
}
