package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for the webhook pipeline.
type WebhookMetrics struct {
	receivedTotal   *prometheus.CounterVec
	processedTotal  *prometheus.CounterVec
	duplicatesTotal prometheus.Counter
	latency         *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		receivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialdesk",
			Subsystem: "webhooks",
			Name:      "received_total",
			Help:      "Total inbound Vapi webhooks by classified kind",
		}, []string{"kind"}),
		processedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dialdesk",
			Subsystem: "webhooks",
			Name:      "processed_total",
			Help:      "Processing outcomes per webhook kind",
		}, []string{"kind", "outcome"}),
		duplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dialdesk",
			Subsystem: "webhooks",
			Name:      "duplicate_calls_reconciled_total",
			Help:      "Duplicate call records removed during resolution",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dialdesk",
			Subsystem: "webhooks",
			Name:      "processing_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.receivedTotal, m.processedTotal, m.duplicatesTotal, m.latency)
	return m
}

func (m *WebhookMetrics) ObserveReceived(kind string) {
	if m == nil {
		return
	}
	m.receivedTotal.WithLabelValues(kind).Inc()
}

func (m *WebhookMetrics) ObserveProcessed(kind, outcome string) {
	if m == nil {
		return
	}
	m.processedTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *WebhookMetrics) ObserveDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duplicatesTotal.Add(float64(n))
}

func (m *WebhookMetrics) ObserveLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(kind).Observe(seconds)
}
