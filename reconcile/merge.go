package reconcile

import (
	"sort"

	"vehicle-rental-api/models"
)

// Fingerprint identifies a reservation by its business fields. Local and
// upstream copies of the same reservation never share an id (the local copy
// was created offline), so identity matching has to go through these fields.
//
// Known limitation, preserved on purpose: two genuinely distinct reservations
// by the same customer for the same vehicle and dates collide and the local
// one is dropped.
type Fingerprint struct {
	Brand    string
	Model    string
	Start    string
	End      string
	Customer string
}

// FingerprintOf builds the structural fingerprint of a canonical order.
func FingerprintOf(o models.Order) Fingerprint {
	return Fingerprint{
		Brand:    o.Vehicle.Brand,
		Model:    o.Vehicle.Model,
		Start:    o.StartDate,
		End:      o.EndDate,
		Customer: o.CustomerName,
	}
}

// Merge combines the upstream-truth list with the locally-queued list.
// A local order whose fingerprint already exists upstream is assumed to have
// been synced since submission and is discarded; keeping it would double-count
// the reservation in lists and statistics. The result is sorted newest first.
func Merge(serverOrders, localOrders []models.Order) []models.Order {
	seen := make(map[Fingerprint]bool, len(serverOrders))
	for _, o := range serverOrders {
		seen[FingerprintOf(o)] = true
	}

	merged := make([]models.Order, 0, len(serverOrders)+len(localOrders))
	merged = append(merged, serverOrders...)
	for _, o := range localOrders {
		if !seen[FingerprintOf(o)] {
			merged = append(merged, o)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// Stats computes the admin dashboard summary over a merged order set.
func Stats(orders []models.Order) models.OrderStats {
	var s models.OrderStats
	s.Total = len(orders)
	for _, o := range orders {
		switch o.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusValidated:
			s.Validated++
		case models.StatusRejected, models.StatusCancelled:
			s.Rejected++
		}
		if !o.IsValid {
			s.Invalid++
		}
	}
	return s
}
