package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers member self-service.
type Metrics struct {
	FormsSubmitted prometheus.Counter
	SyncOutcomes   *prometheus.CounterVec
	Verifications  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FormsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "unionhub_financial_forms_submitted_total",
			Help: "Financial forms saved",
		}),
		SyncOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_member_sync_total",
			Help: "External membership sync attempts by outcome",
		}, []string{"status"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_member_verifications_total",
			Help: "Member verification attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementFormSubmitted() { m.FormsSubmitted.Inc() }

func (m *Metrics) IncrementSync(status string) { m.SyncOutcomes.WithLabelValues(status).Inc() }

func (m *Metrics) IncrementVerification(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}
