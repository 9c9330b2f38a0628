// Package service orchestrates the order reconciliation engine: it merges
// upstream-truth orders with the locally-queued fallback list, applies admin
// status transitions to whichever store owns the record, and keeps the
// derived vehicle availability in sync.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"vehicle-rental-api/events"
	"vehicle-rental-api/localqueue"
	"vehicle-rental-api/metrics"
	"vehicle-rental-api/models"
	"vehicle-rental-api/notify"
	"vehicle-rental-api/reconcile"
	"vehicle-rental-api/statemachine"
	"vehicle-rental-api/store"
	"vehicle-rental-api/upstream"
)

// ErrOrderNotFound is returned when a mutation cannot locate its target in
// either store.
var ErrOrderNotFound = errors.New("order not found")

type Service struct {
	api      upstream.OrderAPI
	queue    *localqueue.Store
	vehicles store.VehicleStore
	bus      *events.Bus
	mailer   notify.Notifier
	metrics  *metrics.Registry

	pollInterval time.Duration

	mu          sync.Mutex
	lastPending int
}

func New(api upstream.OrderAPI, queue *localqueue.Store, vehicles store.VehicleStore,
	bus *events.Bus, mailer notify.Notifier, reg *metrics.Registry, pollInterval time.Duration) *Service {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Service{
		api:          api,
		queue:        queue,
		vehicles:     vehicles,
		bus:          bus,
		mailer:       mailer,
		metrics:      reg,
		pollInterval: pollInterval,
	}
}

// serverRaw fetches the upstream order list. Upstream unavailability is a
// degraded mode, not an error: the caller proceeds with the local queue only.
func (s *Service) serverRaw(ctx context.Context) []reconcile.RawOrder {
	raw, err := s.api.List(ctx)
	if err != nil {
		s.metrics.UpstreamFailures.Inc()
		log.Printf("[RECONCILE] upstream list failed, serving local queue only: %v", err)
		return nil
	}
	return raw
}

func (s *Service) localOrders() ([]models.Order, error) {
	raw, err := s.queue.Load()
	if err != nil {
		return nil, fmt.Errorf("load local queue: %w", err)
	}
	orders := make([]models.Order, 0, len(raw))
	for _, r := range raw {
		orders = append(orders, reconcile.Normalize(r, true))
	}
	return orders, nil
}

func normalizeServer(raw []reconcile.RawOrder) []models.Order {
	orders := make([]models.Order, 0, len(raw))
	for _, r := range raw {
		orders = append(orders, reconcile.Normalize(r, false))
	}
	return orders
}

// FetchOrders returns the active merged view: upstream orders that are not
// raw-cancelled, plus local queue entries not already represented upstream,
// newest first.
func (s *Service) FetchOrders(ctx context.Context) ([]models.Order, error) {
	var active []reconcile.RawOrder
	for _, r := range s.serverRaw(ctx) {
		if r.Str("status") != "cancelled" {
			active = append(active, r)
		}
	}
	local, err := s.localOrders()
	if err != nil {
		return nil, err
	}
	serverOrders := normalizeServer(active)
	merged := reconcile.Merge(serverOrders, local)
	s.metrics.DuplicatesDropped.Add(float64(len(serverOrders) + len(local) - len(merged)))

	s.trackPending(merged)
	return merged, nil
}

// trackPending flags the arrival of new pending reservations between passes.
func (s *Service) trackPending(merged []models.Order) {
	pending := 0
	for _, o := range merged {
		if o.Status == models.StatusPending {
			pending++
		}
	}
	s.mu.Lock()
	last := s.lastPending
	s.lastPending = pending
	s.mu.Unlock()

	s.metrics.PendingOrders.Set(float64(pending))
	if last > 0 && pending > last {
		log.Printf("[RECONCILE] %d new pending reservation(s) awaiting review", pending-last)
		s.bus.Publish(events.Event{Topic: events.NewPendingOrders, Count: pending - last})
	}
}

// FetchHistory returns only cancelled/rejected orders from both stores,
// marked as archived, newest first.
func (s *Service) FetchHistory(ctx context.Context) ([]models.Order, error) {
	var serverOrders []models.Order
	for _, r := range s.serverRaw(ctx) {
		if status := r.Str("status"); status == "cancelled" || status == "rejected" {
			o := reconcile.Normalize(r, false)
			o.Archived = true
			serverOrders = append(serverOrders, o)
		}
	}
	local, err := s.localOrders()
	if err != nil {
		return nil, err
	}
	var localHistory []models.Order
	for _, o := range local {
		if o.Status == models.StatusRejected || o.Status == models.StatusCancelled {
			o.Archived = true
			localHistory = append(localHistory, o)
		}
	}
	return reconcile.Merge(serverOrders, localHistory), nil
}

// FetchOrdersForUser returns the merged view restricted to one customer,
// matched by email or user id.
func (s *Service) FetchOrdersForUser(ctx context.Context, email, userID string) ([]models.Order, error) {
	merged, err := s.mergedAll(ctx)
	if err != nil {
		return nil, err
	}
	var mine []models.Order
	for _, o := range merged {
		if (email != "" && o.CustomerEmail == email) || (userID != "" && o.UserID == userID) {
			mine = append(mine, o)
		}
	}
	return mine, nil
}

// mergedAll merges every order from both stores without the active filter;
// the statistics and the availability deriver need the full set.
func (s *Service) mergedAll(ctx context.Context) ([]models.Order, error) {
	serverOrders := normalizeServer(s.serverRaw(ctx))
	local, err := s.localOrders()
	if err != nil {
		return nil, err
	}
	return reconcile.Merge(serverOrders, local), nil
}

// GlobalStats computes the dashboard summary over the full merged set.
func (s *Service) GlobalStats(ctx context.Context) (models.OrderStats, error) {
	merged, err := s.mergedAll(ctx)
	if err != nil {
		return models.OrderStats{}, err
	}
	stats := reconcile.Stats(merged)
	s.metrics.InvalidOrders.Set(float64(stats.Invalid))
	return stats, nil
}

// RefreshAvailability recomputes every vehicle's availability from the
// current merged order set and overwrites the persisted vehicle list.
func (s *Service) RefreshAvailability(ctx context.Context, resetFirst bool) ([]models.Vehicle, error) {
	orders, err := s.mergedAll(ctx)
	if err != nil {
		return nil, err
	}
	vehicles, err := s.vehicles.List()
	if err != nil {
		return nil, err
	}
	updated := reconcile.DeriveAvailability(vehicles, orders, resetFirst)
	if err := s.vehicles.SaveAll(updated); err != nil {
		return nil, fmt.Errorf("persist availability: %w", err)
	}

	locked := 0
	for _, v := range updated {
		if !v.Available {
			locked++
		}
	}
	s.metrics.ReconcilePasses.Inc()
	s.metrics.LockedVehicles.Set(float64(locked))
	return updated, nil
}

// SetStatus applies an admin-initiated status transition to whichever store
// owns the order. Failures leave the order state unchanged; success triggers
// the best-effort decision email and the reconciliation events.
func (s *Service) SetStatus(ctx context.Context, id string, newStatus models.OrderStatus) error {
	var vehicleID string

	if localID, ok := localqueue.StripLocalID(id); ok {
		raw, err := s.queue.Load()
		if err != nil {
			return err
		}
		idx := localqueue.IndexOf(raw, localID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		current := models.CanonicalStatus(raw[idx].Str("status"))
		if err := statemachine.CanTransition(current, newStatus, "admin"); err != nil {
			return err
		}
		updated, err := s.queue.UpdateStatus(localID, string(newStatus))
		if err != nil {
			return err
		}
		vehicleID = reconcile.Normalize(updated, true).VehicleID
	} else {
		current, err := s.upstreamStatus(ctx, id)
		if err != nil {
			return err
		}
		if err := statemachine.CanTransition(current, newStatus, "admin"); err != nil {
			return err
		}
		if err := s.api.UpdateStatus(ctx, id, newStatus); err != nil {
			s.metrics.UpstreamFailures.Inc()
			return err
		}
	}

	s.metrics.StatusUpdates.Inc()
	if err := s.mailer.OrderDecision(ctx, id, newStatus); err != nil {
		// best-effort: the status change stands
		s.metrics.EmailFailures.Inc()
		log.Printf("[MAIL] decision email for order %s failed: %v", id, err)
	}
	s.bus.Publish(events.Event{Topic: events.OrderStatusUpdated, OrderID: id, Status: string(newStatus), VehicleID: vehicleID})
	s.bus.Publish(events.Event{Topic: events.OrderStatusChanged, OrderID: id, Status: string(newStatus), VehicleID: vehicleID})
	return nil
}

func (s *Service) upstreamStatus(ctx context.Context, id string) (models.OrderStatus, error) {
	raw, err := s.api.List(ctx)
	if err != nil {
		s.metrics.UpstreamFailures.Inc()
		return "", err
	}
	for _, r := range raw {
		if r.Str("_id", "id") == id {
			return models.CanonicalStatus(r.Str("status")), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOrderNotFound, id)
}

// DeleteOrder removes a reservation from the admin's view. The two stores
// have intentionally different semantics: a local entry is spliced out of the
// persisted queue (it has no server record to retain), while an upstream
// order is soft-deleted by cancelling it.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if localID, ok := localqueue.StripLocalID(id); ok {
		if err := s.queue.Delete(localID); err != nil {
			if errors.Is(err, localqueue.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
			}
			return err
		}
	} else {
		if err := s.api.UpdateStatus(ctx, id, models.StatusCancelled); err != nil {
			s.metrics.UpstreamFailures.Inc()
			return err
		}
	}
	s.bus.Publish(events.Event{Topic: events.OrderStatusChanged, OrderID: id, Status: string(models.StatusCancelled)})
	return nil
}

// CleanInvalid rewrites the local queue keeping only records that normalize
// to a valid order, returning how many were dropped.
func (s *Service) CleanInvalid(ctx context.Context) (int, error) {
	removed, err := s.queue.Prune(func(r reconcile.RawOrder) bool {
		return reconcile.Normalize(r, true).IsValid
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.bus.Publish(events.Event{Topic: events.OrderStatusChanged})
	}
	return removed, nil
}

// CreateOrder submits a reservation upstream; when the upstream is
// unreachable the raw record is appended to the local queue instead. Either
// way the created event fires and the admin is alerted best-effort.
func (s *Service) CreateOrder(ctx context.Context, raw reconcile.RawOrder) (models.Order, bool, error) {
	if raw == nil {
		raw = reconcile.RawOrder{}
	}
	if raw.Str("id", "_id") == "" {
		raw["id"] = uuid.NewString()
	}
	if raw.Str("status") == "" {
		raw["status"] = string(models.StatusPending)
	}
	if raw.Str("createdAt") == "" {
		raw["createdAt"] = time.Now().Format(time.RFC3339)
	}

	queued := false
	if err := s.api.Create(ctx, raw); err != nil {
		s.metrics.UpstreamFailures.Inc()
		log.Printf("[ORDER] upstream create failed, queueing locally: %v", err)
		if qErr := s.queue.Append(raw); qErr != nil {
			return models.Order{}, false, qErr
		}
		queued = true
	}

	order := reconcile.Normalize(raw, queued)
	s.bus.Publish(events.Event{Topic: events.OrderCreated, OrderID: order.ID, VehicleID: order.VehicleID})
	if err := s.mailer.NewOrderAlert(ctx, order); err != nil {
		s.metrics.EmailFailures.Inc()
		log.Printf("[MAIL] admin alert for order %s failed: %v", order.ID, err)
	}
	return order, queued, nil
}

// Run drives the periodic reconciliation pass and reacts to in-process
// events. The fixed-interval poll and the event-triggered passes can race;
// the later-completing pass overwrites, which is accepted (no ordering
// guarantee is provided across refresh triggers).
func (s *Service) Run(ctx context.Context) {
	created := s.bus.Subscribe(events.OrderCreated)
	changed := s.bus.Subscribe(events.OrderStatusChanged)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.pass(ctx)
	for {
		select {
		case <-ticker.C:
			s.pass(ctx)
		case <-created:
			s.pass(ctx)
		case <-changed:
			s.pass(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) pass(ctx context.Context) {
	if _, err := s.GlobalStats(ctx); err != nil {
		log.Printf("[RECONCILE] stats pass failed: %v", err)
	}
	if _, err := s.FetchOrders(ctx); err != nil {
		log.Printf("[RECONCILE] fetch pass failed: %v", err)
	}
	if _, err := s.RefreshAvailability(ctx, true); err != nil {
		log.Printf("[RECONCILE] availability pass failed: %v", err)
	}
}
