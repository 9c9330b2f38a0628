package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-rental-api/events"
	"vehicle-rental-api/localqueue"
	"vehicle-rental-api/metrics"
	"vehicle-rental-api/models"
	"vehicle-rental-api/notify"
	"vehicle-rental-api/reconcile"
	"vehicle-rental-api/upstream"
)

// fakeAPI is an in-memory stand-in for the upstream order API.
type fakeAPI struct {
	orders  []reconcile.RawOrder
	listErr error

	created     []reconcile.RawOrder
	createErr   error
	statusCalls []statusCall
}

type statusCall struct {
	id     string
	status models.OrderStatus
}

func (f *fakeAPI) List(ctx context.Context) ([]reconcile.RawOrder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.orders, nil
}

func (f *fakeAPI) Create(ctx context.Context, order reconcile.RawOrder) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, order)
	return nil
}

func (f *fakeAPI) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	f.statusCalls = append(f.statusCalls, statusCall{id: id, status: status})
	return nil
}

type fakeVehicles struct {
	vehicles []models.Vehicle
	saved    [][]models.Vehicle
}

func (f *fakeVehicles) List() ([]models.Vehicle, error) { return f.vehicles, nil }

func (f *fakeVehicles) Get(id string) (models.Vehicle, error) {
	for _, v := range f.vehicles {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Vehicle{}, errors.New("not found")
}
func (f *fakeVehicles) Create(v *models.Vehicle) error { return nil }
func (f *fakeVehicles) Update(v *models.Vehicle) error { return nil }
func (f *fakeVehicles) Delete(id string) error         { return nil }
func (f *fakeVehicles) SaveAll(vehicles []models.Vehicle) error {
	f.vehicles = vehicles
	f.saved = append(f.saved, vehicles)
	return nil
}

type fakeMailer struct {
	decisions []statusCall
	alerts    []string
	err       error
}

func (f *fakeMailer) OrderDecision(ctx context.Context, orderID string, status models.OrderStatus) error {
	f.decisions = append(f.decisions, statusCall{id: orderID, status: status})
	return f.err
}
func (f *fakeMailer) NewOrderAlert(ctx context.Context, order models.Order) error {
	f.alerts = append(f.alerts, order.ID)
	return f.err
}
func (f *fakeMailer) PaymentReminder(ctx context.Context, orderID string) error { return f.err }
func (f *fakeMailer) RentalSummary(ctx context.Context, orderID string) error   { return f.err }

var _ notify.Notifier = (*fakeMailer)(nil)

type fixture struct {
	svc    *Service
	api    *fakeAPI
	queue  *localqueue.Store
	store  *fakeVehicles
	mailer *fakeMailer
	bus    *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	queue, err := localqueue.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = queue.Close() })

	api := &fakeAPI{}
	vehicles := &fakeVehicles{}
	mailer := &fakeMailer{}
	bus := events.NewBus()
	svc := New(api, queue, vehicles, bus, mailer, metrics.NewRegistry(), time.Minute)
	return &fixture{svc: svc, api: api, queue: queue, store: vehicles, mailer: mailer, bus: bus}
}

func TestFetchOrdersMergesAndDeduplicates(t *testing.T) {
	f := newFixture(t)
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "confirmed", "userName": "Awa Diop", "startDate": "2026-03-10", "endDate": "2026-03-14",
			"vehicle": map[string]any{"brand": "Toyota", "model": "Corolla", "price": 45000.0}},
		{"_id": "s2", "status": "cancelled", "userName": "Old", "startDate": "2026-01-01", "endDate": "2026-01-02"},
	}
	// Same reservation queued locally before it was synced upstream.
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending", "userName": "Awa Diop", "startDate": "2026-03-10", "endDate": "2026-03-14",
			"vehicle": map[string]any{"brand": "Toyota", "model": "Corolla", "price": 45000.0}},
		{"id": "q2", "status": "pending", "userName": "Moussa Ba", "startDate": "2026-04-01", "endDate": "2026-04-03"},
	}))

	orders, err := f.svc.FetchOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	byID := map[string]models.Order{}
	for _, o := range orders {
		byID[o.ID] = o
	}
	assert.Contains(t, byID, "s1") // upstream copy wins over local duplicate
	assert.Contains(t, byID, "local-q2")
	assert.NotContains(t, byID, "s2") // raw-cancelled hidden from active view
	assert.NotContains(t, byID, "local-q1")
}

func TestFetchOrdersDegradesWhenUpstreamDown(t *testing.T) {
	f := newFixture(t)
	f.api.listErr = upstream.ErrUnavailable
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending", "startDate": "2026-04-01", "endDate": "2026-04-03"},
	}))

	orders, err := f.svc.FetchOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "local-q1", orders[0].ID)
	assert.True(t, orders[0].IsLocal)
}

func TestSetStatusLocalOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending", "vehicleId": "v1", "startDate": "2026-04-01", "endDate": "2026-04-03"},
	}))

	require.NoError(t, f.svc.SetStatus(context.Background(), "local-q1", models.StatusValidated))

	raw, err := f.queue.Load()
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "validated", raw[0].Str("status"))

	require.Len(t, f.mailer.decisions, 1)
	assert.Equal(t, "local-q1", f.mailer.decisions[0].id)
	assert.Equal(t, models.StatusValidated, f.mailer.decisions[0].status)

	// No upstream call for a queue-owned order.
	assert.Empty(t, f.api.statusCalls)
}

func TestSetStatusServerOrder(t *testing.T) {
	f := newFixture(t)
	f.api.orders = []reconcile.RawOrder{{"_id": "s1", "status": "pending"}}

	require.NoError(t, f.svc.SetStatus(context.Background(), "s1", models.StatusRejected))

	require.Len(t, f.api.statusCalls, 1)
	assert.Equal(t, "s1", f.api.statusCalls[0].id)
	assert.Equal(t, models.StatusRejected, f.api.statusCalls[0].status)
}

func TestSetStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "validated"},
	}))

	err := f.svc.SetStatus(context.Background(), "local-q1", models.StatusRejected)
	require.Error(t, err)

	// State unchanged, no email sent.
	raw, loadErr := f.queue.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, "validated", raw[0].Str("status"))
	assert.Empty(t, f.mailer.decisions)
}

func TestSetStatusUnknownOrder(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SetStatus(context.Background(), "local-ghost", models.StatusValidated)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSetStatusSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("mail backend down")
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending"},
	}))

	require.NoError(t, f.svc.SetStatus(context.Background(), "local-q1", models.StatusValidated))

	raw, err := f.queue.Load()
	require.NoError(t, err)
	assert.Equal(t, "validated", raw[0].Str("status"))
}

func TestDeleteOrderLocalIsHardDelete(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending"},
		{"id": "q2", "status": "pending"},
	}))

	require.NoError(t, f.svc.DeleteOrder(context.Background(), "local-q1"))

	raw, err := f.queue.Load()
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "q2", raw[0].Str("id"))
	assert.Empty(t, f.api.statusCalls)
}

func TestDeleteOrderUpstreamIsCancel(t *testing.T) {
	f := newFixture(t)
	f.api.orders = []reconcile.RawOrder{{"_id": "s1", "status": "pending"}}

	require.NoError(t, f.svc.DeleteOrder(context.Background(), "s1"))

	require.Len(t, f.api.statusCalls, 1)
	assert.Equal(t, "s1", f.api.statusCalls[0].id)
	assert.Equal(t, models.StatusCancelled, f.api.statusCalls[0].status)
}

func TestCreateOrderSubmitsUpstream(t *testing.T) {
	f := newFixture(t)

	order, queued, err := f.svc.CreateOrder(context.Background(), reconcile.RawOrder{
		"vehicleId": "v1", "startDate": "2026-05-01", "endDate": "2026-05-04",
	})
	require.NoError(t, err)
	assert.False(t, queued)
	assert.False(t, order.IsLocal)
	require.Len(t, f.api.created, 1)

	// Nothing lands in the queue on the happy path.
	raw, err := f.queue.Load()
	require.NoError(t, err)
	assert.Empty(t, raw)

	require.Len(t, f.mailer.alerts, 1)
}

func TestCreateOrderFallsBackToQueue(t *testing.T) {
	f := newFixture(t)
	f.api.createErr = upstream.ErrUnavailable

	order, queued, err := f.svc.CreateOrder(context.Background(), reconcile.RawOrder{
		"vehicleId": "v1", "startDate": "2026-05-01", "endDate": "2026-05-04",
	})
	require.NoError(t, err)
	assert.True(t, queued)
	assert.True(t, order.IsLocal)
	assert.Equal(t, models.StatusPending, order.Status)

	raw, loadErr := f.queue.Load()
	require.NoError(t, loadErr)
	require.Len(t, raw, 1)
	assert.Equal(t, "pending", raw[0].Str("status"))
}

func TestRefreshAvailabilityLocksValidatedVehicles(t *testing.T) {
	f := newFixture(t)
	f.store.vehicles = []models.Vehicle{
		{ID: "v1", Available: true},
		{ID: "v2", Available: true},
	}
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "confirmed", "vehicleId": "v1", "startDate": "2026-05-01", "endDate": "2026-05-03"},
	}
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending", "vehicleId": "v2", "startDate": "2026-05-01", "endDate": "2026-05-03"},
	}))

	updated, err := f.svc.RefreshAvailability(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.False(t, updated[0].Available)
	assert.True(t, updated[1].Available)
	require.Len(t, f.store.saved, 1) // derived state was persisted
}

func TestRefreshAvailabilityReleasesAfterRejection(t *testing.T) {
	f := newFixture(t)
	f.store.vehicles = []models.Vehicle{{ID: "v1", Available: false}}
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "rejected", "vehicleId": "v1", "startDate": "2026-05-01", "endDate": "2026-05-03"},
	}

	updated, err := f.svc.RefreshAvailability(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, updated[0].Available)
}

func TestFetchHistoryArchivesDecidedOrders(t *testing.T) {
	f := newFixture(t)
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "pending", "startDate": "2026-05-01", "endDate": "2026-05-03"},
		{"_id": "s2", "status": "cancelled", "startDate": "2026-01-01", "endDate": "2026-01-02"},
	}
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "rejetee", "userName": "A", "startDate": "2026-02-01", "endDate": "2026-02-02"},
		{"id": "q2", "status": "pending", "userName": "B", "startDate": "2026-03-01", "endDate": "2026-03-02"},
	}))

	history, err := f.svc.FetchHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, o := range history {
		assert.True(t, o.Archived)
		assert.NotEqual(t, models.StatusPending, o.Status)
	}
}

func TestFetchOrdersForUserMatchesEmail(t *testing.T) {
	f := newFixture(t)
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "pending", "userEmail": "awa@example.com", "startDate": "2026-05-01", "endDate": "2026-05-03"},
		{"_id": "s2", "status": "pending", "userEmail": "other@example.com", "startDate": "2026-05-01", "endDate": "2026-05-03"},
	}

	mine, err := f.svc.FetchOrdersForUser(context.Background(), "awa@example.com", "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "s1", mine[0].ID)
}

func TestFetchOrdersForUserMatchesUserID(t *testing.T) {
	f := newFixture(t)
	// A queued record that carries a user id and a display name but no email.
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending", "userId": "u1", "userName": "Awa Diop",
			"startDate": "2026-05-01", "endDate": "2026-05-03"},
		{"id": "q2", "status": "pending", "userId": "u2", "userName": "Moussa Ba",
			"startDate": "2026-05-01", "endDate": "2026-05-03"},
	}))

	mine, err := f.svc.FetchOrdersForUser(context.Background(), "", "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "local-q1", mine[0].ID)
	assert.Equal(t, "u1", mine[0].UserID)
}

func TestRisingPendingCountPublishesEvent(t *testing.T) {
	f := newFixture(t)
	notifications := f.bus.Subscribe(events.NewPendingOrders)
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "pending", "userName": "A", "startDate": "2026-05-01", "endDate": "2026-05-03"},
	}

	// First pass establishes the baseline; no notification yet.
	_, err := f.svc.FetchOrders(context.Background())
	require.NoError(t, err)
	select {
	case <-notifications:
		t.Fatal("baseline pass must not notify")
	default:
	}

	f.api.orders = append(f.api.orders,
		reconcile.RawOrder{"_id": "s2", "status": "pending", "userName": "B", "startDate": "2026-06-01", "endDate": "2026-06-03"})
	_, err = f.svc.FetchOrders(context.Background())
	require.NoError(t, err)

	select {
	case e := <-notifications:
		assert.Equal(t, 1, e.Count)
	default:
		t.Fatal("expected a new-pending notification")
	}
}

func TestCleanInvalidPrunesQueue(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "ok", "status": "pending", "startDate": "2026-05-01", "endDate": "2026-05-03"},
		{"id": "broken"}, // no dates, never validates
	}))

	removed, err := f.svc.CleanInvalid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	raw, err := f.queue.Load()
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "ok", raw[0].Str("id"))
}

func TestGlobalStatsCountsMergedSet(t *testing.T) {
	f := newFixture(t)
	f.api.orders = []reconcile.RawOrder{
		{"_id": "s1", "status": "confirmed", "userName": "A", "startDate": "2026-05-01", "endDate": "2026-05-03"},
		{"_id": "s2", "status": "cancelled", "userName": "B", "startDate": "2026-01-01", "endDate": "2026-01-02"},
	}
	require.NoError(t, f.queue.Save([]reconcile.RawOrder{
		{"id": "q1", "status": "pending", "userName": "C", "startDate": "2026-06-01", "endDate": "2026-06-02"},
	}))

	stats, err := f.svc.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Validated)
	assert.Equal(t, 1, stats.Rejected)
}
