package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal     prometheus.Counter
	RejectionsTotal prometheus.Counter
	UsageRecorded   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_compliance_checks_total",
			Help: "Total number of compliance checks evaluated",
		}),
		RejectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_compliance_rejections_total",
			Help: "Total number of compliance checks that failed",
		}),
		UsageRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "remitpool_compliance_usage_recorded_total",
			Help: "Total number of usage records written",
		}),
	}
}

func (m *Metrics) IncrementChecks() {
	m.ChecksTotal.Inc()
}

func (m *Metrics) IncrementRejections() {
	m.RejectionsTotal.Inc()
}

func (m *Metrics) IncrementUsageRecorded() {
	m.UsageRecorded.Inc()
}
