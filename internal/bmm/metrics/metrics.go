package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers workflow transitions and campaign outcomes.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	CampaignItems    *prometheus.CounterVec
	CampaignDuration *prometheus.HistogramVec
	Tickets          *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_bmm_stage_transitions_total",
			Help: "BMM stage transitions by target stage",
		}, []string{"stage"}),
		CampaignItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_bmm_campaign_items_total",
			Help: "Campaign items by campaign and outcome",
		}, []string{"campaign", "outcome"}),
		CampaignDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unionhub_bmm_campaign_duration_seconds",
			Help:    "Duration of campaign and batch runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"campaign"}),
		Tickets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_bmm_tickets_total",
			Help: "Tickets issued by delivery status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementTransition(stage string) {
	m.Transitions.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveCampaign(campaign string, start time.Time, success, failed, skipped int) {
	m.CampaignDuration.WithLabelValues(campaign).Observe(time.Since(start).Seconds())
	m.CampaignItems.WithLabelValues(campaign, "success").Add(float64(success))
	m.CampaignItems.WithLabelValues(campaign, "failed").Add(float64(failed))
	m.CampaignItems.WithLabelValues(campaign, "skipped").Add(float64(skipped))
}

func (m *Metrics) IncrementTicket(status string) {
	m.Tickets.WithLabelValues(status).Inc()
}
