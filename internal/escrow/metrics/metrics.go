package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RemittancesCreated   prometheus.Counter
	ContributionsTotal   prometheus.Counter
	RemittancesReleased  prometheus.Counter
	RemittancesCancelled prometheus.Counter
	RemittancesExpired   prometheus.Counter
	ActiveRemittances    prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		RemittancesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_escrow_remittances_created_total",
			Help: "Total number of remittances created",
		}),
		ContributionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_escrow_contributions_total",
			Help: "Total number of contributions recorded",
		}),
		RemittancesReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_escrow_remittances_released_total",
			Help: "Total number of remittances released",
		}),
		RemittancesCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_escrow_remittances_cancelled_total",
			Help: "Total number of remittances cancelled",
		}),
		RemittancesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_escrow_remittances_expired_total",
			Help: "Total number of remittances transitioned to expired",
		}),
		ActiveRemittances: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "remitpool_escrow_active_remittances",
			Help: "Current number of remittances in the active state",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.RemittancesCreated.Inc()
	m.ActiveRemittances.Inc()
}

func (m *Metrics) IncrementContributions() {
	m.ContributionsTotal.Inc()
}

func (m *Metrics) IncrementReleased() {
	m.RemittancesReleased.Inc()
	m.ActiveRemittances.Dec()
}

func (m *Metrics) IncrementCancelled() {
	m.RemittancesCancelled.Inc()
	m.ActiveRemittances.Dec()
}

func (m *Metrics) IncrementExpired() {
	m.RemittancesExpired.Inc()
	m.ActiveRemittances.Dec()
}
