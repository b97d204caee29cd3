package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Sent          *prometheus.CounterVec
	TemplateCache *prometheus.CounterVec
	Delivered     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_notifications_sent_total",
			Help: "Notification dispatch attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		TemplateCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_notification_template_cache_total",
			Help: "Template lookups by cache result",
		}, []string{"result"}),
		Delivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_notifications_delivered_total",
			Help: "Queue deliveries to the final provider by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
}

func (m *Metrics) IncrementSent(channel string, ok bool) {
	m.Sent.WithLabelValues(channel, outcome(ok)).Inc()
}

func (m *Metrics) IncrementCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TemplateCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementDelivered(channel string, ok bool) {
	m.Delivered.WithLabelValues(channel, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
