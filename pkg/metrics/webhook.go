package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts payment webhook ingestion outcomes. Operators watch
// these instead of HTTP statuses, since the endpoint answers 200 even when
// processing fails.
type WebhookMetrics struct {
	received         prometheus.Counter
	invalidSignature prometheus.Counter
	duplicate        prometheus.Counter
	dropped          *prometheus.CounterVec
	processed        prometheus.Counter
	failed           prometheus.Counter
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_received_total",
		Help: "Webhook deliveries received, any outcome.",
	})
	invalidSignature := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_invalid_signature_total",
		Help: "Webhook deliveries rejected for a bad or stale signature.",
	})
	duplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_duplicate_total",
		Help: "Webhook deliveries skipped by the dedup guard.",
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_dropped_total",
		Help: "Webhook events accepted but not applied.",
	}, []string{"reason"})
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_processed_total",
		Help: "Webhook events that applied an order transition.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_failed_total",
		Help: "Webhook events that errored after signature validation.",
	})
	reg.MustRegister(received, invalidSignature, duplicate, dropped, processed, failed)
	return &WebhookMetrics{
		received:         received,
		invalidSignature: invalidSignature,
		duplicate:        duplicate,
		dropped:          dropped,
		processed:        processed,
		failed:           failed,
	}
}

func (m *WebhookMetrics) IncReceived() {
	if m == nil || m.received == nil {
		return
	}
	m.received.Inc()
}

func (m *WebhookMetrics) IncInvalidSignature() {
	if m == nil || m.invalidSignature == nil {
		return
	}
	m.invalidSignature.Inc()
}

func (m *WebhookMetrics) IncDuplicate() {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.Inc()
}

func (m *WebhookMetrics) IncDropped(reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *WebhookMetrics) IncProcessed() {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.Inc()
}

func (m *WebhookMetrics) IncFailed() {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.Inc()
}
