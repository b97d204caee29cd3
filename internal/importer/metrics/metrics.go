package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Records  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unionhub_import_records_total",
			Help: "Imported records by source and outcome",
		}, []string{"source", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unionhub_import_duration_seconds",
			Help:    "Import run duration by source",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"source"}),
	}
}

func (m *Metrics) IncrementRecord(source, outcome string) {
	m.Records.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveRun(source string, start time.Time) {
	m.Duration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
