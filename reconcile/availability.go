package reconcile

import "vehicle-rental-api/models"

// DeriveAvailability recomputes every vehicle's Available flag from the
// current order set. Only validated reservations lock a vehicle; pending,
// rejected and cancelled orders never do.
//
// This is a full recomputation, not an incremental update: it is safe to run
// repeatedly from any trigger (manual refresh, status-change event, initial
// load) without accumulating drift. With resetFirst every vehicle is forced
// back to available before the locked set is applied, clearing stale state
// left by a prior partial run.
func DeriveAvailability(vehicles []models.Vehicle, orders []models.Order, resetFirst bool) []models.Vehicle {
	locked := make(map[string]bool)
	for _, o := range orders {
		if o.Status == models.StatusValidated && o.VehicleID != "" {
			locked[o.VehicleID] = true
		}
	}

	updated := make([]models.Vehicle, len(vehicles))
	for i, v := range vehicles {
		if resetFirst {
			v.Available = true
		}
		if locked[v.ID] {
			v.Available = false
		}
		updated[i] = v
	}
	return updated
}
