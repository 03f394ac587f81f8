package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portiq_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portiq_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	FeatureInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portiq_feature_invocations_total",
			Help: "Feature invocations by outcome",
		},
		[]string{"feature", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portiq_webhook_duration_seconds",
			Help:    "Analysis webhook call duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"feature"},
	)

	UsageIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portiq_usage_increments_total",
			Help: "Usage increments by feature and status",
		},
		[]string{"feature", "status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portiq_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portiq_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	SubscriptionsActivatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portiq_subscriptions_activated_total",
			Help: "Total number of subscription activations",
		},
		[]string{"plan", "gateway"},
	)

	SubscriptionCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portiq_subscription_cancellations_total",
			Help: "Total number of subscription cancellations",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordInvocation(feature, outcome string) {
	FeatureInvocationsTotal.WithLabelValues(feature, outcome).Inc()
}

func RecordWebhook(feature string, seconds float64) {
	WebhookDuration.WithLabelValues(feature).Observe(seconds)
}

func RecordUsageIncrement(feature, status string) {
	UsageIncrementsTotal.WithLabelValues(feature, status).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordSubscription(plan, gateway string) {
	SubscriptionsActivatedTotal.WithLabelValues(plan, gateway).Inc()
}

func RecordCancellation() {
	SubscriptionCancellationsTotal.Inc()
}
