package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	ReconcilePasses   prometheus.Counter
	DuplicatesDropped prometheus.Counter
	StatusUpdates     prometheus.Counter
	EmailFailures     prometheus.Counter
	UpstreamFailures  prometheus.Counter
	InvalidOrders     prometheus.Gauge
	PendingOrders     prometheus.Gauge
	LockedVehicles    prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	passes := prometheus.NewCounter(prometheus.CounterOpts{Name: "rental_reconcile_passes_total"})
	dups := prometheus.NewCounter(prometheus.CounterOpts{Name: "rental_dedup_dropped_total"})
	updates := prometheus.NewCounter(prometheus.CounterOpts{Name: "rental_status_updates_total"})
	emailFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "rental_email_failures_total"})
	upstreamFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "rental_upstream_failures_total"})
	invalid := prometheus.NewGauge(prometheus.GaugeOpts{Name: "rental_invalid_orders"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{Name: "rental_pending_orders"})
	locked := prometheus.NewGauge(prometheus.GaugeOpts{Name: "rental_locked_vehicles"})

	r.MustRegister(passes, dups, updates, emailFail, upstreamFail, invalid, pending, locked)
	return &Registry{
		reg:               r,
		ReconcilePasses:   passes,
		DuplicatesDropped: dups,
		StatusUpdates:     updates,
		EmailFailures:     emailFail,
		UpstreamFailures:  upstreamFail,
		InvalidOrders:     invalid,
		PendingOrders:     pending,
		LockedVehicles:    locked,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
